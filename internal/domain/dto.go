package domain

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/straye-as/opportunity-sync/internal/normalize"
)

// OpportunityFields are the columns shared by master and child rows
type OpportunityFields struct {
	PipelineName string `json:"pipelineName,omitempty"`
	Stage        string `json:"stage" validate:"required,max=200"`
	StageID      string `json:"stageId,omitempty"`
	ContactName  string `json:"contactName" validate:"required,max=300"`
	Phone        string `json:"phone" validate:"max=50"`
	Name         string `json:"opportunityName,omitempty" validate:"max=500"`
	// Value accepts a JSON number or a string such as "$1,250.00"
	Value      json.RawMessage `json:"value,omitempty"`
	Status     string          `json:"status,omitempty"`
	Source     string          `json:"source,omitempty"`
	CreatedAt  string          `json:"createdAt,omitempty"`
	AssignedTo string          `json:"assignedTo,omitempty"`
	// Fields carries raw spreadsheet columns ("Created on", "created_date", "date")
	Fields map[string]string `json:"fields,omitempty"`
}

// MasterOpportunityInput is a master row; ids are required to address updates
type MasterOpportunityInput struct {
	OpportunityFields
	ID         string `json:"id" validate:"required"`
	AccountID  string `json:"accountId" validate:"required"`
	PipelineID string `json:"pipelineId" validate:"required"`
}

// ChildOpportunityInput is a child row; ids are informational
type ChildOpportunityInput struct {
	OpportunityFields
	ID         string `json:"id,omitempty"`
	AccountID  string `json:"accountId,omitempty"`
	PipelineID string `json:"pipelineId,omitempty"`
}

// ToOpportunity converts a validated master row
func (in MasterOpportunityInput) ToOpportunity(row int) Opportunity {
	o := in.OpportunityFields.toOpportunity(SideMaster, row, in.ID, in.AccountID, in.PipelineID)
	o.HasAssignment = strings.TrimSpace(o.AssignedTo) != ""
	return o
}

// ToOpportunity converts a validated child row
func (in ChildOpportunityInput) ToOpportunity(row int) Opportunity {
	return in.OpportunityFields.toOpportunity(SideChild, row, in.ID, in.AccountID, in.PipelineID)
}

func (f OpportunityFields) toOpportunity(side Side, row int, id, accountID, pipelineID string) Opportunity {
	createdAt := strings.TrimSpace(f.CreatedAt)
	if createdAt == "" {
		if _, raw, ok := normalize.ExtractDate(f.Fields); ok {
			createdAt = raw
		}
	}
	return Opportunity{
		ID:              strings.TrimSpace(id),
		Side:            side,
		AccountID:       strings.TrimSpace(accountID),
		PipelineID:      strings.TrimSpace(pipelineID),
		PipelineName:    f.PipelineName,
		Stage:           strings.TrimSpace(f.Stage),
		StageID:         f.StageID,
		ContactName:     strings.TrimSpace(f.ContactName),
		Phone:           f.Phone,
		NormalizedPhone: normalize.Phone(f.Phone),
		Name:            f.Name,
		Value:           ParseValue(f.Value),
		Status:          f.Status,
		Source:          f.Source,
		CreatedAt:       createdAt,
		AssignedTo:      f.AssignedTo,
		RowNumber:       row,
	}
}

// ParseValue reads a monetary value from a JSON number or string.
// Currency symbols and thousands separators are ignored; anything else
// unparseable yields nil.
func ParseValue(raw json.RawMessage) *decimal.Decimal {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	s := string(raw)
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil
		}
	}
	s = strings.NewReplacer("$", "", ",", "", " ", "").Replace(s)
	if s == "" {
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil
	}
	return &d
}

// StartMatchingRequest starts a matching pass over uploaded rows
type StartMatchingRequest struct {
	Masters                 []MasterOpportunityInput `json:"masters" validate:"required,min=1,dive"`
	Children                []ChildOpportunityInput  `json:"children" validate:"required,min=1,dive"`
	MatchThreshold          *float64                 `json:"matchThreshold,omitempty" validate:"omitempty,gte=0,lte=1"`
	HighConfidenceThreshold *float64                 `json:"highConfidenceThreshold,omitempty" validate:"omitempty,gte=0,lte=1"`
	Strategy                string                   `json:"strategy,omitempty" validate:"omitempty,oneof=greedy optimal"`
}

// StartSyncRequest starts a sync run over the records of a completed matching pass
type StartSyncRequest struct {
	MatchingID  uuid.UUID `json:"matchingId" validate:"required"`
	DryRun      bool      `json:"dryRun"`
	BatchSize   int       `json:"batchSize,omitempty" validate:"omitempty,min=1,max=100"`
	Concurrency int       `json:"concurrency,omitempty" validate:"omitempty,min=1,max=20"`
	ExactOnly   bool      `json:"exactOnly"`
}

// FetchOpportunitiesRequest pulls opportunities of one account from the provider
type FetchOpportunitiesRequest struct {
	Side        Side     `json:"side" validate:"required,oneof=master child"`
	PipelineIDs []string `json:"pipelineIds,omitempty" validate:"omitempty,dive,required"`
	MaxRecords  int      `json:"maxRecords,omitempty" validate:"omitempty,min=1"`
}

// FetchOpportunitiesResponse lists the loaded opportunities
type FetchOpportunitiesResponse struct {
	AccountID     string        `json:"accountId"`
	Count         int           `json:"count"`
	Opportunities []Opportunity `json:"opportunities"`
}

// OperationStartedDTO is returned when a background operation is accepted
type OperationStartedDTO struct {
	ID     uuid.UUID `json:"id"`
	Status string    `json:"status"`
}
