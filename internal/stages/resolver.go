// Package stages resolves human readable stage names to provider stage ids
// valid within one pipeline.
package stages

import (
	"sort"
	"strings"

	"github.com/straye-as/opportunity-sync/internal/domain"
	"github.com/straye-as/opportunity-sync/internal/normalize"
	"go.uber.org/zap"
)

// FuzzyThreshold is the minimum name similarity for the fuzzy steps
const FuzzyThreshold = 0.85

// legacyPipelineID has stages whose names drifted from the ids the child
// account still reports. Ids found here are still checked against the
// pipeline's current stage map.
const legacyPipelineID = "OYXsfalmHRurVTGchofz"

var legacyStages = map[string]string{
	"chargeback fix form":              "7e7d888c-35f9-4ef4-ae60-8beb170fdfb4",
	"approved customer - not paid":     "c3525ee4-5d03-41bb-b1c8-4ea946c64d06",
	"first draft payment failure":      "993da8ed-ccd9-4c57-a9f4-7fa749ced916",
	"active placed - paid as earned":   "616cedb1-542c-42a4-bd83-701eea8fd6ee",
	"active placed - paid as advanced": "441e0dd2-277f-40b8-837d-69ed87ab4204",
	"pending lapse":                    "40d37746-094d-4cdd-8376-d6f58c9b33bb",
	"charge-back / payment failure":    "b5eded38-9784-4720-94dd-811bf48b2026",
	"charged-back / canceled policy":   "b752e7ff-8a76-46d9-912b-ebbf88a054d3",
	"active - 3 months +":              "b844925a-a050-4728-8f50-b5fe4cf13c26",
	"active - 6 months +":              "d300118d-d20a-4548-9a36-452fc3bb64a7",
	"active - past charge-back period": "e19c1f3e-7d68-483d-b2bb-344ea6d9a1a4",
}

// Resolver maps stage names to stage ids
type Resolver struct {
	logger *zap.Logger
}

// NewResolver creates a resolver
func NewResolver(logger *zap.Logger) *Resolver {
	return &Resolver{logger: logger}
}

// Resolve returns the id of stageName within pipelineID. Steps, first hit wins:
// exact name in the pipeline, exact name in the global index when the id
// belongs to the pipeline, fuzzy name in the pipeline, fuzzy name in the
// global index when the id belongs to the pipeline, then the legacy table.
// A returned id is always present in mapping.PipelineStages[pipelineID].
func (r *Resolver) Resolve(stageName, pipelineID string, mapping *domain.PipelineMapping) (string, bool) {
	key := strings.ToLower(strings.TrimSpace(stageName))
	if key == "" || mapping == nil {
		return "", false
	}
	scoped := mapping.PipelineStages[pipelineID]
	inPipeline := func(id string) bool {
		return mapping.HasStage(pipelineID, id)
	}

	if id, ok := scoped[key]; ok {
		return id, true
	}

	if id, ok := mapping.Stages[key]; ok {
		if inPipeline(id) {
			return id, true
		}
		r.logger.Debug("Global stage id belongs to another pipeline",
			zap.String("stage", stageName),
			zap.String("pipeline_id", pipelineID),
		)
	}

	if id, name, ok := bestFuzzy(key, scoped, nil); ok {
		r.logger.Debug("Stage resolved by fuzzy match in pipeline",
			zap.String("stage", stageName),
			zap.String("matched", name),
		)
		return id, true
	}

	if id, name, ok := bestFuzzy(key, mapping.Stages, inPipeline); ok {
		r.logger.Debug("Stage resolved by fuzzy match in global index",
			zap.String("stage", stageName),
			zap.String("matched", name),
		)
		return id, true
	}

	if pipelineID == legacyPipelineID {
		if id, ok := legacyStages[key]; ok && inPipeline(id) {
			r.logger.Info("Stage resolved from legacy table",
				zap.String("stage", stageName),
				zap.String("pipeline_id", pipelineID),
			)
			return id, true
		}
	}

	r.logger.Warn("Stage could not be resolved",
		zap.String("stage", stageName),
		zap.String("pipeline_id", pipelineID),
		zap.Int("pipeline_stages", len(scoped)),
	)
	return "", false
}

// bestFuzzy picks the most similar name at or above FuzzyThreshold. Names
// are visited in sorted order so ties resolve deterministically.
func bestFuzzy(key string, index map[string]string, accept func(id string) bool) (string, string, bool) {
	names := make([]string, 0, len(index))
	for name := range index {
		names = append(names, name)
	}
	sort.Strings(names)

	bestID, bestName, bestScore := "", "", 0.0
	for _, name := range names {
		id := index[name]
		if accept != nil && !accept(id) {
			continue
		}
		if s := normalize.Similarity(key, name); s >= FuzzyThreshold && s > bestScore {
			bestID, bestName, bestScore = id, name, s
		}
	}
	return bestID, bestName, bestID != ""
}
