package stages_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/straye-as/opportunity-sync/internal/domain"
	"github.com/straye-as/opportunity-sync/internal/stages"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func mapping() *domain.PipelineMapping {
	return domain.NewPipelineMapping([]domain.Pipeline{
		{ID: "sales", Name: "Sales", Stages: []domain.Stage{
			{ID: "s-new", Name: "New Lead"},
			{ID: "s-contacted", Name: "Contacted"},
			{ID: "s-won", Name: "Closed Won"},
		}},
		{ID: "retention", Name: "Retention", Stages: []domain.Stage{
			{ID: "r-new", Name: "New Lead"},
			{ID: "r-lapse", Name: "Pending Lapse"},
		}},
		{ID: "OYXsfalmHRurVTGchofz", Name: "Policies", Stages: []domain.Stage{
			{ID: "40d37746-094d-4cdd-8376-d6f58c9b33bb", Name: "Lapse Pending (review)"},
		}},
	})
}

func TestResolver_Resolve(t *testing.T) {
	r := stages.NewResolver(zap.NewNop())
	m := mapping()

	tests := []struct {
		name     string
		stage    string
		pipeline string
		want     string
		found    bool
	}{
		{"exact in pipeline", "NEW LEAD", "sales", "s-new", true},
		{"exact other pipeline", "new lead", "retention", "r-new", true},
		{"fuzzy in pipeline", "Closed Wonn", "sales", "s-won", true},
		{"global name from other pipeline is rejected", "Pending Lapse", "sales", "", false},
		{"legacy table", "pending lapse", "OYXsfalmHRurVTGchofz", "40d37746-094d-4cdd-8376-d6f58c9b33bb", true},
		{"legacy id absent from pipeline", "chargeback fix form", "OYXsfalmHRurVTGchofz", "", false},
		{"empty name", "  ", "sales", "", false},
		{"unknown pipeline", "New Lead", "missing", "", false},
		{"no similar name", "Negotiation", "sales", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, ok := r.Resolve(tt.stage, tt.pipeline, m)
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.want, id)
		})
	}

	_, ok := r.Resolve("New Lead", "sales", nil)
	assert.False(t, ok)
}

func TestResolver_GlobalStepVerifiesPipeline(t *testing.T) {
	r := stages.NewResolver(zap.NewNop())
	// the global index points "qualified" at pipeline a, but pipeline b
	// carries the same id under another name
	m := &domain.PipelineMapping{
		Stages: map[string]string{"qualified": "shared-id"},
		PipelineStages: map[string]map[string]string{
			"a": {"qualified": "shared-id"},
			"b": {"sales qualified": "shared-id"},
			"c": {"other": "c-1"},
		},
	}

	id, ok := r.Resolve("Qualified", "b", m)
	require.True(t, ok)
	assert.Equal(t, "shared-id", id)

	_, ok = r.Resolve("Qualified", "c", m)
	assert.False(t, ok)
}

func TestResolver_NeverLeaksIDsAcrossPipelines(t *testing.T) {
	r := stages.NewResolver(zap.NewNop())
	m := mapping()
	names := []string{"New Lead", "new lead ", "Contacted", "Contactd", "Closed Won", "Pending Lapse", "Pending Lapze", "pending lapse", "Lapse Pending (review)", "x"}

	for pipelineID, scoped := range m.PipelineStages {
		for _, name := range names {
			id, ok := r.Resolve(name, pipelineID, m)
			if !ok {
				continue
			}
			found := false
			for _, v := range scoped {
				found = found || v == id
			}
			assert.True(t, found, "%q in %s resolved to foreign id %s", name, pipelineID, id)
		}
	}
}

type fakeSource struct {
	calls     atomic.Int32
	pipelines []domain.Pipeline
	err       error
}

func (f *fakeSource) ListPipelines(ctx context.Context, apiKey string) ([]domain.Pipeline, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return f.pipelines, nil
}

func TestMappingCache(t *testing.T) {
	ctx := context.Background()
	errNoKey := errors.New("no key")
	keys := func(accountID string) (string, error) {
		if accountID == "nokey" {
			return "", errNoKey
		}
		return "key-" + accountID, nil
	}

	t.Run("loads once per account", func(t *testing.T) {
		src := &fakeSource{pipelines: []domain.Pipeline{{ID: "p", Name: "P", Stages: []domain.Stage{{ID: "s", Name: "S"}}}}}
		c := stages.NewMappingCache(src, keys, zap.NewNop())

		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				m, err := c.Get(ctx, "acc")
				assert.NoError(t, err)
				assert.Equal(t, "s", m.PipelineStages["p"]["s"])
			}()
		}
		wg.Wait()
		assert.Equal(t, int32(1), src.calls.Load())
	})

	t.Run("failures are cached", func(t *testing.T) {
		src := &fakeSource{err: errors.New("boom")}
		c := stages.NewMappingCache(src, keys, zap.NewNop())
		c.Preload(ctx, []string{"acc", "nokey"})

		_, err := c.Get(ctx, "acc")
		assert.Error(t, err)
		_, err = c.Get(ctx, "nokey")
		assert.ErrorIs(t, err, errNoKey)

		assert.Equal(t, int32(1), src.calls.Load())
		assert.Equal(t, 2, c.Len())
	})
}
