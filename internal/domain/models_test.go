package domain_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/straye-as/opportunity-sync/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseValue(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"number", `1250.5`, "1250.5"},
		{"string", `"1250.50"`, "1250.5"},
		{"currency", `"$1,250.00"`, "1250"},
		{"garbage", `"N/A"`, ""},
		{"null", `null`, ""},
		{"empty", ``, ""},
		{"empty string", `""`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := domain.ParseValue(json.RawMessage(tt.raw))
			if tt.want == "" {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.True(t, decimal.RequireFromString(tt.want).Equal(*got), got.String())
		})
	}
}

func TestMasterOpportunityInput_ToOpportunity(t *testing.T) {
	var in domain.MasterOpportunityInput
	require.NoError(t, json.Unmarshal([]byte(`{
		"id": "opp-1",
		"accountId": "acc-m",
		"pipelineId": "pipe-1",
		"stage": " New Lead ",
		"contactName": "John Doe",
		"phone": "+1 (707) 567-5820",
		"value": "$500",
		"assignedTo": "agent-7",
		"fields": {"Created on": "2024-02-01"}
	}`), &in))

	o := in.ToOpportunity(3)
	assert.Equal(t, domain.SideMaster, o.Side)
	assert.Equal(t, "opp-1", o.ID)
	assert.Equal(t, "acc-m", o.AccountID)
	assert.Equal(t, "pipe-1", o.PipelineID)
	assert.Equal(t, "New Lead", o.Stage)
	assert.Equal(t, "7075675820", o.NormalizedPhone)
	assert.Equal(t, "2024-02-01", o.CreatedAt)
	assert.True(t, o.HasAssignment)
	assert.Equal(t, 3, o.RowNumber)
	require.NotNil(t, o.Value)
	assert.Equal(t, "500", o.Value.String())
}

func TestChildOpportunityInput_ToOpportunity(t *testing.T) {
	in := domain.ChildOpportunityInput{
		OpportunityFields: domain.OpportunityFields{Stage: "B", ContactName: "Jane", CreatedAt: "2024-01-01"},
	}
	o := in.ToOpportunity(1)
	assert.Equal(t, domain.SideChild, o.Side)
	assert.False(t, o.IsMaster())
	assert.False(t, o.HasAssignment)
	assert.Nil(t, o.Value)
}

func TestNewPipelineMapping(t *testing.T) {
	m := domain.NewPipelineMapping([]domain.Pipeline{
		{ID: "p1", Name: "Sales", Stages: []domain.Stage{{ID: "s1", Name: "New Lead"}, {ID: "s2", Name: "Won"}}},
		{ID: "p2", Name: "Retention", Stages: []domain.Stage{{ID: "s3", Name: "New Lead"}, {ID: "", Name: "Broken"}}},
	})

	assert.Equal(t, "p1", m.Pipelines["Sales"])
	assert.Equal(t, "s1", m.PipelineStages["p1"]["new lead"])
	assert.Equal(t, "s3", m.PipelineStages["p2"]["new lead"])
	assert.NotContains(t, m.PipelineStages["p2"], "broken")
	// global index keeps the last pipeline's id for a shared name
	assert.Equal(t, "s3", m.Stages["new lead"])

	assert.True(t, m.HasStage("p1", "s2"))
	assert.False(t, m.HasStage("p2", "s2"))
	name, ok := m.StageName("p1", "s2")
	assert.True(t, ok)
	assert.Equal(t, "won", name)
}

func TestSyncOperation_PushError(t *testing.T) {
	var op domain.SyncOperation
	for i := 0; i < 15; i++ {
		op.PushError(domain.SyncError{Message: string(rune('a' + i))}, 10)
	}
	require.Len(t, op.RecentErrors, 10)
	assert.Equal(t, "f", op.RecentErrors[0].Message)
	assert.Equal(t, "o", op.RecentErrors[9].Message)
}

func TestSnapshots_AreIndependent(t *testing.T) {
	now := time.Now()
	sync := domain.SyncOperation{ID: uuid.New(), RecentErrors: []domain.SyncError{{Message: "x"}}, CompletedAt: &now}
	snap := sync.Snapshot()
	sync.RecentErrors[0].Message = "changed"
	assert.Equal(t, "x", snap.RecentErrors[0].Message)

	done, at := snap.Terminal()
	assert.False(t, done)
	assert.Equal(t, now, at)

	match := domain.MatchingOperation{Records: []domain.MatchRecord{{Score: 1}}, Status: domain.StatusCompleted, CompletedAt: &now}
	msnap := match.Snapshot()
	match.Records[0].Score = 0
	assert.Equal(t, 1.0, msnap.Records[0].Score)
	done, _ = msnap.Terminal()
	assert.True(t, done)
}

func TestStatusHelpers(t *testing.T) {
	assert.Equal(t, "processing_child_3/10", domain.ProcessingChildStatus(3, 10))
	assert.Equal(t, "processing_batch_2", domain.ProcessingBatchStatus(2))
	assert.True(t, domain.IsTerminalStatus(domain.StatusFailed))
	assert.False(t, domain.IsTerminalStatus(domain.StatusInitializing))
	assert.True(t, domain.SameStage(" Won", "won "))
	assert.True(t, (*domain.SyncDiff)(nil).IsEmpty())
}
