package service_test

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/straye-as/opportunity-sync/internal/domain"
	"github.com/straye-as/opportunity-sync/internal/ghl"
)

type stageCall struct {
	APIKey, PipelineID, OpportunityID, StageID, Status string
}

type valueCall struct {
	APIKey, PipelineID, OpportunityID string
	Value                             decimal.Decimal
	Title, Status                     string
}

// fakeCRM records every call and serves canned pipelines and pages
type fakeCRM struct {
	mu sync.Mutex

	pipelines  map[string][]domain.Pipeline
	pages      map[string][][]ghl.RawOpportunity
	pageCalls  map[string]int
	listCalls  int
	stageErr   map[string]error
	valueErr   map[string]error
	// stageFlaky fails the first n stage updates of an opportunity with stageErr
	stageFlaky map[string]int
	stageTries map[string]int
	stageCalls []stageCall
	valueCalls []valueCall
}

func newFakeCRM() *fakeCRM {
	return &fakeCRM{
		pipelines: map[string][]domain.Pipeline{
			"key-m": {{
				ID:   "pipe-m",
				Name: "Sales",
				Stages: []domain.Stage{
					{ID: "s-new", Name: "New Lead"},
					{ID: "s-booked", Name: "Appointment Booked"},
					{ID: "s-won", Name: "Won"},
				},
			}},
		},
		pages:     map[string][][]ghl.RawOpportunity{},
		pageCalls: map[string]int{},
		stageErr:   map[string]error{},
		valueErr:   map[string]error{},
		stageFlaky: map[string]int{},
		stageTries: map[string]int{},
	}
}

func (f *fakeCRM) ListPipelines(ctx context.Context, apiKey string) ([]domain.Pipeline, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	return f.pipelines[apiKey], nil
}

func (f *fakeCRM) PageFunc(apiKey, pipelineID string) ghl.PageFunc {
	return func(ctx context.Context, cursor ghl.Cursor, limit int) ([]ghl.RawOpportunity, error) {
		f.mu.Lock()
		defer f.mu.Unlock()
		n := f.pageCalls[pipelineID]
		f.pageCalls[pipelineID] = n + 1
		pages := f.pages[pipelineID]
		if n >= len(pages) {
			return nil, nil
		}
		return pages[n], nil
	}
}

func (f *fakeCRM) UpdateOpportunityStage(ctx context.Context, apiKey, pipelineID, opportunityID, stageID, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stageTries[opportunityID]++
	if err := f.stageErr[opportunityID]; err != nil {
		if n, flaky := f.stageFlaky[opportunityID]; !flaky || f.stageTries[opportunityID] <= n {
			return err
		}
	}
	f.stageCalls = append(f.stageCalls, stageCall{apiKey, pipelineID, opportunityID, stageID, status})
	return nil
}

func (f *fakeCRM) UpdateOpportunityValue(ctx context.Context, apiKey, pipelineID, opportunityID string, value decimal.Decimal, title, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.valueErr[opportunityID]; err != nil {
		return err
	}
	f.valueCalls = append(f.valueCalls, valueCall{apiKey, pipelineID, opportunityID, value, title, status})
	return nil
}

func (f *fakeCRM) stageAttempts(opportunityID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stageTries[opportunityID]
}

func (f *fakeCRM) mutations() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.stageCalls) + len(f.valueCalls)
}
