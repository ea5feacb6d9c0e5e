// Package matching pairs child opportunities with master opportunities.
package matching

import (
	"math"

	"github.com/straye-as/opportunity-sync/internal/domain"
	"github.com/straye-as/opportunity-sync/internal/normalize"
)

// Criterion weights. A criterion only counts towards the total weight when
// both records carry data for it.
const (
	PhoneWeight = 0.40
	NameWeight  = 0.35
	DateWeight  = 0.25
)

// localDigits is the length of the subscriber part of a phone number
const localDigits = 7

// Scorer computes the weighted similarity of a master/child pair
type Scorer struct{}

// Score returns a value in [0,1]; 0 when no criterion could be compared
func (Scorer) Score(master, child *domain.Opportunity) float64 {
	var credit, weight float64

	mp, cp := phoneOf(master), phoneOf(child)
	if mp != "" && cp != "" {
		weight += PhoneWeight
		credit += phoneCredit(mp, cp)
	}

	mn, cn := normalize.Name(master.ContactName), normalize.Name(child.ContactName)
	if mn != "" && cn != "" {
		weight += NameWeight
		credit += nameCredit(normalize.Similarity(mn, cn))
	}

	md, mok := normalize.ParseDate(master.CreatedAt)
	cd, cok := normalize.ParseDate(child.CreatedAt)
	if mok && cok {
		weight += DateWeight
		credit += dateCredit(normalize.DaysApart(md, cd))
	}

	if weight == 0 {
		return 0
	}
	return math.Min(credit/weight, 1.0)
}

func phoneOf(o *domain.Opportunity) string {
	if o.NormalizedPhone != "" {
		return o.NormalizedPhone
	}
	return normalize.Phone(o.Phone)
}

func suffix(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

func phoneCredit(a, b string) float64 {
	switch {
	case a == b:
		return PhoneWeight
	case suffix(a, localDigits) == suffix(b, localDigits):
		// same local number behind a different area or country code
		return 0.30
	}
	return 0
}

func nameCredit(similarity float64) float64 {
	switch {
	case similarity >= 0.95:
		return NameWeight
	case similarity >= 0.85:
		return 0.25
	case similarity >= 0.70:
		return 0.15
	}
	return 0
}

func dateCredit(days int) float64 {
	switch {
	case days == 0:
		return DateWeight
	case days <= 7:
		return 0.20
	case days <= 30:
		return 0.15
	case days <= 90:
		return 0.10
	}
	return 0
}
