package ghl

import (
	"bytes"
	"encoding/json"

	"github.com/straye-as/opportunity-sync/internal/domain"
)

// Timestamp accepts both string and numeric JSON timestamps and keeps the
// textual form so it can be echoed back as a cursor.
type Timestamp string

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*t = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Timestamp(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*t = Timestamp(n.String())
	return nil
}

// Contact is the contact embedded in an opportunity
type Contact struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
}

// RawOpportunity is an opportunity as returned by the provider
type RawOpportunity struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	MonetaryValue   json.RawMessage `json:"monetaryValue,omitempty"`
	PipelineID      string          `json:"pipelineId"`
	PipelineStageID string          `json:"pipelineStageId"`
	Status          string          `json:"status"`
	Source          string          `json:"source,omitempty"`
	AssignedTo      string          `json:"assignedTo,omitempty"`
	CreatedAt       Timestamp       `json:"createdAt,omitempty"`
	DateAdded       Timestamp       `json:"dateAdded,omitempty"`
	Contact         Contact         `json:"contact"`
}

// Meta is the pagination block of an opportunity page
type Meta struct {
	Total        int       `json:"total"`
	StartAfterID string    `json:"startAfterId"`
	StartAfter   Timestamp `json:"startAfter"`
}

// OpportunityPage is one page of opportunities
type OpportunityPage struct {
	Opportunities []RawOpportunity `json:"opportunities"`
	Meta          Meta             `json:"meta"`
}

type pipelinesResponse struct {
	Pipelines []domain.Pipeline `json:"pipelines"`
}

type stageUpdateRequest struct {
	StageID string `json:"stageId"`
	Status  string `json:"status,omitempty"`
}

// valueUpdateRequest carries the value as a JSON number
type valueUpdateRequest struct {
	Value  json.Number `json:"value"`
	Title  string      `json:"title,omitempty"`
	Status string      `json:"status,omitempty"`
}
