package matching

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/straye-as/opportunity-sync/internal/domain"
	"go.uber.org/zap"
)

// unmatchedNote accompanies every UnmatchedSummary
const unmatchedNote = "Each child opportunity matches to at most one master opportunity"

// Thresholds classify a score as no match, fuzzy or exact
type Thresholds struct {
	Match          float64
	HighConfidence float64
}

// DefaultThresholds are used when the caller supplies none
var DefaultThresholds = Thresholds{Match: 0.7, HighConfidence: 0.9}

// Observer is called after every child with the number processed so far
type Observer func(processed int, record domain.MatchRecord)

// Result is the outcome of one matching pass
type Result struct {
	Records      []domain.MatchRecord
	Exact        int
	Fuzzy        int
	NoMatch      int
	RecordErrors int
	Summary      domain.UnmatchedSummary
}

// Engine scores pairs and builds MatchRecords using a Strategy
type Engine struct {
	scorer   Scorer
	strategy Strategy
	logger   *zap.Logger
}

// NewEngine creates an engine; a nil strategy means greedy
func NewEngine(strategy Strategy, logger *zap.Logger) *Engine {
	if strategy == nil {
		strategy = Greedy{}
	}
	return &Engine{strategy: strategy, logger: logger}
}

// Strategy returns the assignment strategy in use
func (e *Engine) Strategy() Strategy {
	return e.strategy
}

// Run pairs every child with at most one master. Masters sharing an id are
// collapsed to the first occurrence so an id is never paired twice. A failure
// while scoring or building one record is logged and counted; the pass always
// completes.
func (e *Engine) Run(masters, children []domain.Opportunity, th Thresholds, observe Observer) Result {
	masters = e.uniqueMasters(masters)
	res := Result{Records: make([]domain.MatchRecord, 0, len(children))}
	failed := make(map[int]bool)

	score := func(m, c int) (s float64) {
		defer func() {
			if r := recover(); r != nil {
				if !failed[c] {
					failed[c] = true
					res.RecordErrors++
				}
				e.logger.Error("Scoring failed",
					zap.Int("child_row", children[c].RowNumber),
					zap.String("master_id", masters[m].ID),
					zap.Any("panic", r),
				)
				s = 0
			}
		}()
		return e.scorer.Score(&masters[m], &children[c])
	}

	e.strategy.Assign(len(masters), len(children), score, th.Match, func(c, m int, s float64) {
		var master *domain.Opportunity
		if m >= 0 {
			master = &masters[m]
		}
		rec := e.safeBuild(master, children[c], s, th, &res)

		switch rec.MatchType {
		case domain.MatchTypeExact:
			res.Exact++
		case domain.MatchTypeFuzzy:
			res.Fuzzy++
		default:
			res.NoMatch++
		}
		res.Records = append(res.Records, rec)

		if observe != nil {
			observe(len(res.Records), rec)
		}
	})

	res.Summary = domain.UnmatchedSummary{
		TotalChild: len(children),
		Matched:    res.Exact + res.Fuzzy,
		Unmatched:  res.NoMatch,
		Note:       unmatchedNote,
	}

	e.logger.Info("Matching completed",
		zap.String("strategy", e.strategy.Name()),
		zap.Int("matched", res.Summary.Matched),
		zap.Int("exact", res.Exact),
		zap.Int("fuzzy", res.Fuzzy),
		zap.Int("unmatched", res.NoMatch),
		zap.Int("record_errors", res.RecordErrors),
	)

	return res
}

// uniqueMasters drops every master whose id was already seen. Masters
// without an id are kept as they cannot collide on update.
func (e *Engine) uniqueMasters(masters []domain.Opportunity) []domain.Opportunity {
	seen := make(map[string]bool, len(masters))
	out := masters[:0:0]
	dropped := 0
	for _, m := range masters {
		if m.ID != "" {
			if seen[m.ID] {
				dropped++
				continue
			}
			seen[m.ID] = true
		}
		out = append(out, m)
	}
	if dropped > 0 {
		e.logger.Warn("Duplicate master opportunities ignored", zap.Int("duplicates", dropped))
	}
	return out
}

func (e *Engine) safeBuild(master *domain.Opportunity, child domain.Opportunity, score float64, th Thresholds, res *Result) (rec domain.MatchRecord) {
	defer func() {
		if r := recover(); r != nil {
			res.RecordErrors++
			e.logger.Error("Building match record failed",
				zap.Int("child_row", child.RowNumber),
				zap.Any("panic", r),
			)
			reason := fmt.Sprintf("Matching failed: %v", r)
			rec = domain.MatchRecord{
				Child:      child,
				MatchType:  domain.MatchTypeNoMatch,
				Confidence: domain.ConfidenceNone,
				SkipReason: &reason,
			}
		}
	}()
	return BuildRecord(master, child, score, th)
}

// BuildRecord classifies a pairing and computes its sync diff
func BuildRecord(master *domain.Opportunity, child domain.Opportunity, score float64, th Thresholds) domain.MatchRecord {
	if master == nil {
		reason := domain.SkipReasonNoMaster
		return domain.MatchRecord{
			Child:      child,
			MatchType:  domain.MatchTypeNoMatch,
			Confidence: domain.ConfidenceNone,
			SkipReason: &reason,
		}
	}

	rec := domain.MatchRecord{
		Master:     master,
		Child:      child,
		Score:      score,
		MatchType:  domain.MatchTypeFuzzy,
		Confidence: domain.ConfidenceMedium,
		CanUpdate:  true,
	}
	if score >= th.HighConfidence {
		rec.MatchType = domain.MatchTypeExact
		rec.Confidence = domain.ConfidenceHigh
	}

	diff := DiffOf(master, &child)
	if domain.SameStage(master.Stage, child.Stage) {
		reason := domain.SkipReasonSameStage
		rec.CanUpdate = false
		rec.SkipReason = &reason
	}
	if !diff.IsEmpty() {
		rec.SyncDiff = diff
	}
	return rec
}

// DiffOf returns the child fields that differ from the master: the stage
// name when it differs case-insensitively, and the value when the child's
// parses and is not equal to the master's. A master without a value counts
// as zero.
func DiffOf(master, child *domain.Opportunity) *domain.SyncDiff {
	diff := &domain.SyncDiff{
		SourcePipelineID: child.PipelineID,
		TargetPipelineID: master.PipelineID,
	}
	if child.Stage != "" && !domain.SameStage(master.Stage, child.Stage) {
		diff.TargetStageName = child.Stage
	}
	if child.Value != nil {
		current := decimal.Zero
		if master.Value != nil {
			current = *master.Value
		}
		if !child.Value.Equal(current) {
			v := *child.Value
			diff.TargetValue = &v
		}
	}
	return diff
}
