package domain

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Side tags an opportunity as belonging to the master or the child account
type Side string

const (
	SideMaster Side = "master"
	SideChild  Side = "child"
)

// MatchType classifies a MatchRecord
type MatchType string

const (
	MatchTypeExact   MatchType = "exact"
	MatchTypeFuzzy   MatchType = "fuzzy"
	MatchTypeNoMatch MatchType = "no_match"
)

// Confidence mirrors MatchType for display
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceNone   Confidence = "none"
)

// Skip reasons attached to MatchRecords
const (
	SkipReasonSameStage = "Same stage - no change needed"
	SkipReasonNoMaster  = "No matching master opportunity found"
)

// Operation status values. Running operations also report granular values
// built by ProcessingChildStatus and ProcessingBatchStatus.
const (
	StatusInitializing   = "initializing"
	StatusLoadingMapping = "loading_pipeline_mappings"
	StatusCompleted      = "completed"
	StatusFailed         = "failed"
)

// ProcessingChildStatus is the matching status after child i of total
func ProcessingChildStatus(i, total int) string {
	return fmt.Sprintf("processing_child_%d/%d", i, total)
}

// ProcessingBatchStatus is the sync status while batch n runs
func ProcessingBatchStatus(n int) string {
	return fmt.Sprintf("processing_batch_%d", n)
}

// IsTerminalStatus reports whether an operation has finished
func IsTerminalStatus(status string) bool {
	return status == StatusCompleted || status == StatusFailed
}

// Opportunity is a sales pipeline record from either account. Fields are
// fixed; HasAssignment is only meaningful on the master side.
type Opportunity struct {
	ID              string           `json:"id"`
	Side            Side             `json:"side"`
	AccountID       string           `json:"accountId"`
	PipelineID      string           `json:"pipelineId"`
	PipelineName    string           `json:"pipelineName,omitempty"`
	Stage           string           `json:"stage"`
	StageID         string           `json:"stageId,omitempty"`
	ContactName     string           `json:"contactName"`
	Phone           string           `json:"phone,omitempty"`
	NormalizedPhone string           `json:"normalizedPhone,omitempty"`
	Name            string           `json:"opportunityName,omitempty"`
	Value           *decimal.Decimal `json:"value,omitempty"`
	Status          string           `json:"status,omitempty"`
	Source          string           `json:"source,omitempty"`
	CreatedAt       string           `json:"createdAt,omitempty"`
	AssignedTo      string           `json:"assignedTo,omitempty"`
	HasAssignment   bool             `json:"hasAssignment,omitempty"`
	RowNumber       int              `json:"rowNumber,omitempty"`
}

// IsMaster reports whether the opportunity belongs to the master account
func (o *Opportunity) IsMaster() bool {
	return o.Side == SideMaster
}

// SameStage compares stage names case-insensitively
func SameStage(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// SyncDiff holds the child values that differ from the matched master
type SyncDiff struct {
	TargetStageName  string           `json:"targetStageName,omitempty"`
	TargetValue      *decimal.Decimal `json:"targetValue,omitempty"`
	SourcePipelineID string           `json:"sourcePipelineId,omitempty"`
	TargetPipelineID string           `json:"targetPipelineId,omitempty"`
}

// IsEmpty reports whether no field needs an update
func (d *SyncDiff) IsEmpty() bool {
	return d == nil || (d.TargetStageName == "" && d.TargetValue == nil)
}

// MatchRecord pairs one child with at most one master
type MatchRecord struct {
	Master     *Opportunity `json:"master"`
	Child      Opportunity  `json:"child"`
	Score      float64      `json:"score"`
	MatchType  MatchType    `json:"matchType"`
	Confidence Confidence   `json:"confidence"`
	CanUpdate  bool         `json:"canUpdate"`
	SkipReason *string      `json:"skipReason"`
	SyncDiff   *SyncDiff    `json:"syncDiff"`
}

// UnmatchedSummary is reported once matching completes
type UnmatchedSummary struct {
	TotalChild int    `json:"totalChild"`
	Matched    int    `json:"matched"`
	Unmatched  int    `json:"unmatched"`
	Note       string `json:"note"`
}

// MatchingOperation is the polled state of one matching pass
type MatchingOperation struct {
	ID               uuid.UUID         `json:"id"`
	Status           string            `json:"status"`
	Strategy         string            `json:"strategy"`
	TotalMaster      int               `json:"totalMaster"`
	TotalChild       int               `json:"totalChild"`
	Processed        int               `json:"processed"`
	MatchesFound     int               `json:"matchesFound"`
	Exact            int               `json:"exact"`
	Fuzzy            int               `json:"fuzzy"`
	NoMatch          int               `json:"noMatch"`
	RecordErrors     int               `json:"recordErrors"`
	Records          []MatchRecord     `json:"records"`
	UnmatchedSummary *UnmatchedSummary `json:"unmatchedSummary,omitempty"`
	FailureReason    string            `json:"failureReason,omitempty"`
	StartedAt        time.Time         `json:"startedAt"`
	CompletedAt      *time.Time        `json:"completedAt,omitempty"`
}

// Snapshot returns a copy that shares no mutable state with o
func (o MatchingOperation) Snapshot() MatchingOperation {
	cp := o
	cp.Records = slices.Clone(o.Records)
	if o.UnmatchedSummary != nil {
		s := *o.UnmatchedSummary
		cp.UnmatchedSummary = &s
	}
	if o.CompletedAt != nil {
		t := *o.CompletedAt
		cp.CompletedAt = &t
	}
	return cp
}

// Terminal reports whether the operation has finished
func (o MatchingOperation) Terminal() (bool, time.Time) {
	if o.CompletedAt == nil {
		return false, time.Time{}
	}
	return IsTerminalStatus(o.Status), *o.CompletedAt
}

// SyncError is one entry of the recent errors ring
type SyncError struct {
	OpportunityID string    `json:"opportunityId,omitempty"`
	ContactName   string    `json:"contactName,omitempty"`
	Message       string    `json:"message"`
	OccurredAt    time.Time `json:"occurredAt"`
}

// SyncOperation is the polled state of one sync run
type SyncOperation struct {
	ID            uuid.UUID   `json:"id"`
	MatchingID    *uuid.UUID  `json:"matchingId,omitempty"`
	Status        string      `json:"status"`
	Total         int         `json:"total"`
	Completed     int         `json:"completed"`
	Success       int         `json:"success"`
	Errors        int         `json:"error"`
	Skipped       int         `json:"skipped"`
	CurrentBatch  int         `json:"currentBatch"`
	TotalBatches  int         `json:"totalBatches"`
	RecentErrors  []SyncError `json:"recentErrors"`
	Rate          string      `json:"rate"`
	ETA           string      `json:"eta"`
	DryRun        bool        `json:"dryRun"`
	ExactOnly     bool        `json:"exactOnly"`
	ArchivePath   string      `json:"archivePath,omitempty"`
	FailureReason string      `json:"failureReason,omitempty"`
	StartedAt     time.Time   `json:"startedAt"`
	CompletedAt   *time.Time  `json:"completedAt,omitempty"`
}

// Snapshot returns a copy that shares no mutable state with o
func (o SyncOperation) Snapshot() SyncOperation {
	cp := o
	cp.RecentErrors = slices.Clone(o.RecentErrors)
	if o.MatchingID != nil {
		id := *o.MatchingID
		cp.MatchingID = &id
	}
	if o.CompletedAt != nil {
		t := *o.CompletedAt
		cp.CompletedAt = &t
	}
	return cp
}

// Terminal reports whether the operation has finished
func (o SyncOperation) Terminal() (bool, time.Time) {
	if o.CompletedAt == nil {
		return false, time.Time{}
	}
	return IsTerminalStatus(o.Status), *o.CompletedAt
}

// PushError appends to RecentErrors keeping only the newest limit entries
func (o *SyncOperation) PushError(e SyncError, limit int) {
	o.RecentErrors = append(o.RecentErrors, e)
	if limit > 0 && len(o.RecentErrors) > limit {
		o.RecentErrors = slices.Clone(o.RecentErrors[len(o.RecentErrors)-limit:])
	}
}

// Stage is one named step of a pipeline
type Stage struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Pipeline is a named workflow with its stages
type Pipeline struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Stages []Stage `json:"stages"`
}

// PipelineMapping indexes the pipelines of one account.
// Stages is keyed by lower-cased name and is ambiguous across pipelines;
// PipelineStages is the authoritative pipeline-scoped index.
type PipelineMapping struct {
	Pipelines      map[string]string            `json:"pipelines"`
	Stages         map[string]string            `json:"stages"`
	PipelineStages map[string]map[string]string `json:"pipelineStages"`
}

// NewPipelineMapping builds the three indexes from a pipeline listing
func NewPipelineMapping(pipelines []Pipeline) *PipelineMapping {
	m := &PipelineMapping{
		Pipelines:      make(map[string]string, len(pipelines)),
		Stages:         make(map[string]string),
		PipelineStages: make(map[string]map[string]string, len(pipelines)),
	}
	for _, p := range pipelines {
		if p.ID == "" {
			continue
		}
		m.Pipelines[p.Name] = p.ID
		scoped := make(map[string]string, len(p.Stages))
		for _, s := range p.Stages {
			if s.ID == "" || s.Name == "" {
				continue
			}
			key := strings.ToLower(strings.TrimSpace(s.Name))
			scoped[key] = s.ID
			m.Stages[key] = s.ID
		}
		m.PipelineStages[p.ID] = scoped
	}
	return m
}

// StageName returns the lower-cased name of a stage id within a pipeline
func (m *PipelineMapping) StageName(pipelineID, stageID string) (string, bool) {
	for name, id := range m.PipelineStages[pipelineID] {
		if id == stageID {
			return name, true
		}
	}
	return "", false
}

// HasStage reports whether stageID belongs to the pipeline
func (m *PipelineMapping) HasStage(pipelineID, stageID string) bool {
	_, ok := m.StageName(pipelineID, stageID)
	return ok
}
