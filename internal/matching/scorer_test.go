package matching_test

import (
	"testing"

	"github.com/straye-as/opportunity-sync/internal/domain"
	"github.com/straye-as/opportunity-sync/internal/matching"
	"github.com/stretchr/testify/assert"
)

func opp(phone, name, created string) *domain.Opportunity {
	return &domain.Opportunity{Phone: phone, ContactName: name, CreatedAt: created}
}

func TestScorer_IdenticalPairsScoreHigh(t *testing.T) {
	pairs := []*domain.Opportunity{
		opp("+17075675820", "John Doe", "2024-01-05"),
		opp("707-567-5820", "María José", "01/05/2024"),
		opp("", "Single Field", ""),
		opp("5551234", "", ""),
		opp("", "", "2023-12-01T10:00:00Z"),
	}
	var s matching.Scorer
	for _, o := range pairs {
		child := *o
		assert.GreaterOrEqual(t, s.Score(o, &child), 0.95, "%+v", o)
	}
}

func TestScorer_NoComparableField(t *testing.T) {
	var s matching.Scorer
	master := opp("+17075675820", "John Doe", "2024-01-05")
	assert.Equal(t, 0.0, s.Score(master, opp("", "", "")))
	assert.Equal(t, 0.0, s.Score(opp("", "", ""), master))
	// unparseable date and non-digit phone count as absent
	assert.Equal(t, 0.0, s.Score(master, opp("n/a", "  ", "someday")))
}

func TestScorer_Tiers(t *testing.T) {
	var s matching.Scorer

	tests := []struct {
		name   string
		master *domain.Opportunity
		child  *domain.Opportunity
		want   float64
	}{
		{"phone exact", opp("7075675820", "", ""), opp("+1 707 567 5820", "", ""), 1.0},
		{"phone same local number", opp("7075675820", "", ""), opp("4155675820", "", ""), 0.30 / 0.40},
		{"phone different", opp("7075675820", "", ""), opp("7075670000", "", ""), 0},
		{"name near exact", opp("", "John Doe", ""), opp("", "JOHN DOE", ""), 1.0},
		{"name good", opp("", "John Doe", ""), opp("", "John Dae", ""), 0.25 / 0.35},
		{"name fair", opp("", "John Doe", ""), opp("", "Jon Dough", ""), 0},
		{"date same day", opp("", "", "2024-01-05"), opp("", "", "2024-01-05T15:04:05Z"), 1.0},
		{"date within week", opp("", "", "2024-01-05"), opp("", "", "2024-01-10"), 0.20 / 0.25},
		{"date within month", opp("", "", "2024-01-05"), opp("", "", "2024-01-30"), 0.15 / 0.25},
		{"date within quarter", opp("", "", "2024-01-05"), opp("", "", "2024-03-20"), 0.10 / 0.25},
		{"date far", opp("", "", "2024-01-05"), opp("", "", "2025-01-05"), 0},
		{"combined", opp("7075675820", "John Doe", "2024-01-05"), opp("7075675820", "John Doe", "2024-01-15"), 0.40 + 0.35 + 0.15},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, s.Score(tt.master, tt.child), 1e-9)
		})
	}
}

func TestScorer_BoundedToUnitInterval(t *testing.T) {
	var s matching.Scorer
	people := []*domain.Opportunity{
		opp("+17075675820", "John Doe", "2024-01-05"),
		opp("5675820", "Jane Doe", "2024-02-05"),
		opp("", "J", "01/01/99"),
		opp("1", "", ""),
	}
	for _, a := range people {
		for _, b := range people {
			got := s.Score(a, b)
			assert.GreaterOrEqual(t, got, 0.0)
			assert.LessOrEqual(t, got, 1.0)
		}
	}
}
