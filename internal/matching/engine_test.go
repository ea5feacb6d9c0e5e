package matching_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/straye-as/opportunity-sync/internal/domain"
	"github.com/straye-as/opportunity-sync/internal/matching"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func master(id, phone, name, stage string) domain.Opportunity {
	return domain.Opportunity{ID: id, Side: domain.SideMaster, AccountID: "acc-m", PipelineID: "pipe-m", Phone: phone, ContactName: name, Stage: stage}
}

func child(phone, name, stage string) domain.Opportunity {
	return domain.Opportunity{Side: domain.SideChild, PipelineID: "pipe-c", Phone: phone, ContactName: name, Stage: stage}
}

func TestEngine_StageChangeIsExactAndUpdatable(t *testing.T) {
	e := matching.NewEngine(nil, zap.NewNop())

	res := e.Run(
		[]domain.Opportunity{master("m1", "+17075675820", "John Doe", "A")},
		[]domain.Opportunity{child("+17075675820", "John Doe", "B")},
		matching.DefaultThresholds, nil,
	)

	require.Len(t, res.Records, 1)
	rec := res.Records[0]
	assert.Equal(t, domain.MatchTypeExact, rec.MatchType)
	assert.Equal(t, domain.ConfidenceHigh, rec.Confidence)
	assert.True(t, rec.CanUpdate)
	assert.Nil(t, rec.SkipReason)
	require.NotNil(t, rec.SyncDiff)
	assert.Equal(t, "B", rec.SyncDiff.TargetStageName)
	assert.Nil(t, rec.SyncDiff.TargetValue)
	assert.Equal(t, "pipe-m", rec.SyncDiff.TargetPipelineID)
	assert.Equal(t, 1, res.Exact)
}

func TestEngine_SameStageIsNotUpdatable(t *testing.T) {
	e := matching.NewEngine(matching.Greedy{}, zap.NewNop())

	res := e.Run(
		[]domain.Opportunity{master("m1", "+17075675820", "John Doe", "A")},
		[]domain.Opportunity{child("+17075675820", "John Doe", "a")},
		matching.DefaultThresholds, nil,
	)

	require.Len(t, res.Records, 1)
	rec := res.Records[0]
	assert.Equal(t, domain.MatchTypeExact, rec.MatchType)
	assert.False(t, rec.CanUpdate)
	require.NotNil(t, rec.SkipReason)
	assert.Equal(t, domain.SkipReasonSameStage, *rec.SkipReason)
	assert.Nil(t, rec.SyncDiff)
}

func TestEngine_FuzzyAndNoMatch(t *testing.T) {
	e := matching.NewEngine(nil, zap.NewNop())

	masters := []domain.Opportunity{
		master("m1", "7075675820", "John Doe", "A"),
	}
	children := []domain.Opportunity{
		// shared local number plus a close name: (0.30 + 0.25) / 0.75
		child("4155675820", "John Dae", "B"),
		child("7075675820", "John Doe", "B"),
	}

	var seen []int
	res := e.Run(masters, children, matching.DefaultThresholds, func(processed int, _ domain.MatchRecord) {
		seen = append(seen, processed)
	})

	require.Len(t, res.Records, 2)
	assert.Equal(t, domain.MatchTypeFuzzy, res.Records[0].MatchType)
	assert.Equal(t, domain.ConfidenceMedium, res.Records[0].Confidence)
	assert.InDelta(t, 0.55/0.75, res.Records[0].Score, 1e-9)

	// the only master is already consumed
	assert.Equal(t, domain.MatchTypeNoMatch, res.Records[1].MatchType)
	assert.Nil(t, res.Records[1].Master)
	assert.Equal(t, 0.0, res.Records[1].Score)
	require.NotNil(t, res.Records[1].SkipReason)
	assert.Equal(t, domain.SkipReasonNoMaster, *res.Records[1].SkipReason)

	assert.Equal(t, []int{1, 2}, seen)
	assert.Equal(t, domain.UnmatchedSummary{
		TotalChild: 2,
		Matched:    1,
		Unmatched:  1,
		Note:       "Each child opportunity matches to at most one master opportunity",
	}, res.Summary)
}

func TestEngine_EveryChildOnceAndMastersUnique(t *testing.T) {
	masters := []domain.Opportunity{
		master("m1", "7075675820", "John Doe", "A"),
		master("m2", "7075675821", "Jane Roe", "A"),
		master("m3", "", "Jon Doe", "A"),
	}
	children := []domain.Opportunity{
		child("7075675820", "John Doe", "B"),
		child("7075675820", "John Doe", "C"),
		child("7075675821", "Jane Roe", "A"),
		child("", "", ""),
		child("", "Jon Doe", "B"),
	}

	for _, s := range []matching.Strategy{matching.Greedy{}, matching.Optimal{}} {
		res := matching.NewEngine(s, zap.NewNop()).Run(masters, children, matching.DefaultThresholds, nil)
		require.Len(t, res.Records, len(children), s.Name())

		used := make(map[string]bool)
		for i, rec := range res.Records {
			assert.Equal(t, children[i].Phone, rec.Child.Phone)
			if rec.MatchType == domain.MatchTypeNoMatch {
				continue
			}
			require.NotNil(t, rec.Master)
			assert.False(t, used[rec.Master.ID], "%s reused %s", s.Name(), rec.Master.ID)
			used[rec.Master.ID] = true
		}
		assert.Equal(t, len(children), res.Exact+res.Fuzzy+res.NoMatch)
	}
}

func TestDiffOf_Value(t *testing.T) {
	hundred := decimal.NewFromInt(100)
	same := decimal.RequireFromString("100.00")
	other := decimal.NewFromInt(250)

	m := master("m1", "", "", "A")
	m.Value = &hundred

	c := child("", "", "A")
	c.Value = &same
	assert.True(t, matching.DiffOf(&m, &c).IsEmpty())

	c.Value = &other
	d := matching.DiffOf(&m, &c)
	require.NotNil(t, d.TargetValue)
	assert.True(t, other.Equal(*d.TargetValue))
	assert.Empty(t, d.TargetStageName)

	c.Value = nil
	assert.True(t, matching.DiffOf(&m, &c).IsEmpty())
}

func TestEngine_DuplicateMasterIDPairedOnce(t *testing.T) {
	masters := []domain.Opportunity{
		master("m1", "7075675820", "John Doe", "A"),
		master("m1", "7075675820", "John Doe", "A"),
	}
	children := []domain.Opportunity{
		child("7075675820", "John Doe", "B"),
		child("7075675820", "John Doe", "C"),
	}

	for _, s := range []matching.Strategy{matching.Greedy{}, matching.Optimal{}} {
		t.Run(s.Name(), func(t *testing.T) {
			res := matching.NewEngine(s, zap.NewNop()).Run(masters, children, matching.DefaultThresholds, nil)

			require.Len(t, res.Records, 2)
			paired := 0
			for _, rec := range res.Records {
				if rec.MatchType != domain.MatchTypeNoMatch {
					require.NotNil(t, rec.Master)
					assert.Equal(t, "m1", rec.Master.ID)
					paired++
				}
			}
			assert.Equal(t, 1, paired)
			assert.Equal(t, 1, res.NoMatch)
			assert.Equal(t, 2, res.Summary.TotalChild)
		})
	}
}

func TestDiffOf_MissingMasterValueIsZero(t *testing.T) {
	zero := decimal.RequireFromString("0.00")
	five := decimal.NewFromInt(5)

	m := master("m1", "", "", "A")
	c := child("", "", "A")

	c.Value = &zero
	assert.True(t, matching.DiffOf(&m, &c).IsEmpty())

	c.Value = &five
	d := matching.DiffOf(&m, &c)
	require.NotNil(t, d.TargetValue)
	assert.True(t, five.Equal(*d.TargetValue))
}
