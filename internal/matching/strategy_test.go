package matching_test

import (
	"math/rand"
	"testing"

	"github.com/straye-as/opportunity-sync/internal/matching"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type decision struct {
	master int
	score  float64
}

func assign(s matching.Strategy, scores [][]float64, threshold float64) []decision {
	masters := len(scores)
	children := 0
	if masters > 0 {
		children = len(scores[0])
	}
	out := make([]decision, children)
	seen := make([]bool, children)
	s.Assign(masters, children, func(m, c int) float64 { return scores[m][c] }, threshold, func(c, m int, score float64) {
		if seen[c] {
			panic("child emitted twice")
		}
		seen[c] = true
		out[c] = decision{master: m, score: score}
	})
	return out
}

func TestStrategyByName(t *testing.T) {
	s, err := matching.StrategyByName("")
	require.NoError(t, err)
	assert.Equal(t, matching.StrategyGreedy, s.Name())

	s, err = matching.StrategyByName("optimal")
	require.NoError(t, err)
	assert.Equal(t, matching.StrategyOptimal, s.Name())

	_, err = matching.StrategyByName("random")
	assert.ErrorIs(t, err, matching.ErrUnknownStrategy)
}

// scores[master][child]
var orderSensitive = [][]float64{
	{0.95, 0.92},
	{0.90, 0.00},
}

func TestGreedy_IsOrderDependent(t *testing.T) {
	got := assign(matching.Greedy{}, orderSensitive, 0.7)
	assert.Equal(t, decision{master: 0, score: 0.95}, got[0])
	assert.Equal(t, -1, got[1].master)
}

func TestGreedy_TiesKeepFirstMaster(t *testing.T) {
	got := assign(matching.Greedy{}, [][]float64{{0.8}, {0.8}}, 0.7)
	assert.Equal(t, 0, got[0].master)
}

func TestGreedy_BelowThreshold(t *testing.T) {
	got := assign(matching.Greedy{}, [][]float64{{0.69}}, 0.7)
	assert.Equal(t, -1, got[0].master)
}

func TestOptimal_MaximisesTotalScore(t *testing.T) {
	got := assign(matching.Optimal{}, orderSensitive, 0.7)
	assert.Equal(t, decision{master: 1, score: 0.90}, got[0])
	assert.Equal(t, decision{master: 0, score: 0.92}, got[1])
}

func TestOptimal_MoreChildrenThanMasters(t *testing.T) {
	// one master, three children
	got := assign(matching.Optimal{}, [][]float64{{0.75, 0.95, 0.1}}, 0.7)
	assert.Equal(t, -1, got[0].master)
	assert.Equal(t, 0, got[1].master)
	assert.Equal(t, -1, got[2].master)
}

func TestOptimal_EmptyInputs(t *testing.T) {
	assert.Empty(t, assign(matching.Optimal{}, nil, 0.7))
	got := assign(matching.Optimal{}, [][]float64{}, 0.7)
	assert.Empty(t, got)
}

func TestStrategies_NeverReuseAMaster(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for _, s := range []matching.Strategy{matching.Greedy{}, matching.Optimal{}} {
		for round := 0; round < 50; round++ {
			masters, children := rng.Intn(8)+1, rng.Intn(8)+1
			scores := make([][]float64, masters)
			for m := range scores {
				scores[m] = make([]float64, children)
				for c := range scores[m] {
					scores[m][c] = rng.Float64()
				}
			}

			got := assign(s, scores, 0.5)
			require.Len(t, got, children)

			used := make(map[int]bool)
			for c, d := range got {
				if d.master < 0 {
					continue
				}
				assert.False(t, used[d.master], "%s reused master %d", s.Name(), d.master)
				used[d.master] = true
				assert.GreaterOrEqual(t, d.score, 0.5)
				assert.Equal(t, scores[d.master][c], d.score)
			}
		}
	}
}
