// Package scoring computes Green Finance Scores for loans and assigns the
// portfolio risk tier each loan falls into.
package scoring

import (
	"math"
	"sort"

	"github.com/greenfin/greenfin-portal/internal/models"
)

// Factor weights for the composite score. ESG performance carries the most
// weight, then environmental impact, then governance structure.
const (
	weightESG        = 0.50
	weightEmissions  = 0.30
	weightGovernance = 0.20
)

// Tier cutoffs on the 0-100 Green Finance Score.
const (
	cutoffTierA = 80.0
	cutoffTierB = 60.0
	cutoffTierC = 40.0
)

// emissionsCapQuantile clips extreme emissions outliers before ranking so a
// single heavy emitter does not distort the whole distribution.
const emissionsCapQuantile = 0.95

// Loan is a single loan-book record with the factors needed for scoring.
type Loan struct {
	ID                 string  `json:"loan_id"`
	Borrower           string  `json:"borrower_name"`
	Sector             string  `json:"sector"`
	Exposure           float64 `json:"outstanding_amount_mn"`
	ESGScore           float64 `json:"esg_score"`           // 0-100, higher is better
	GovernanceRisk     float64 `json:"governance_risk"`     // 1-5, lower is better
	EmissionsIntensity float64 `json:"emissions_intensity"` // tCO2e per $M revenue, lower is better
}

// ScoredLoan is a loan with its computed Green Finance Score and tier.
type ScoredLoan struct {
	Loan
	Score float64     `json:"green_finance_score"`
	Tier  models.Tier `json:"tier"`
}

// AssignTier maps a Green Finance Score to a risk tier.
func AssignTier(score float64) models.Tier {
	switch {
	case score >= cutoffTierA:
		return models.TierA
	case score >= cutoffTierB:
		return models.TierB
	case score >= cutoffTierC:
		return models.TierC
	default:
		return models.TierD
	}
}

// ScoreLoans computes the Green Finance Score (0-100) for every loan and
// returns the results sorted best-first. Emissions intensity is normalized
// rank-based across the whole book, so scoring operates on the full slice
// rather than loan by loan.
func ScoreLoans(loans []Loan) []ScoredLoan {
	if len(loans) == 0 {
		return nil
	}

	capped := make([]float64, len(loans))
	for i, l := range loans {
		capped[i] = l.EmissionsIntensity
	}
	cap := quantile(capped, emissionsCapQuantile)
	for i, v := range capped {
		if v > cap {
			capped[i] = cap
		}
	}
	emissionRanks := percentileRanks(capped)

	scored := make([]ScoredLoan, len(loans))
	for i, l := range loans {
		normESG := l.ESGScore / 100.0
		// Inverse scaling: governance risk 1 (best) -> 1.0, 5 (worst) -> 0.0.
		normGov := (5 - l.GovernanceRisk) / 4.0
		normEmission := 1 - emissionRanks[i]

		score := (normESG*weightESG + normGov*weightGovernance + normEmission*weightEmissions) * 100

		scored[i] = ScoredLoan{
			Loan:  l,
			Score: score,
			Tier:  AssignTier(score),
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	return scored
}

// quantile returns the q-quantile of values using linear interpolation
// between the two nearest sorted values.
func quantile(values []float64, q float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	if len(sorted) == 1 {
		return sorted[0]
	}

	pos := q * float64(len(sorted)-1)
	lower := int(math.Floor(pos))
	upper := int(math.Ceil(pos))
	if lower == upper {
		return sorted[lower]
	}
	frac := pos - float64(lower)
	return sorted[lower] + frac*(sorted[upper]-sorted[lower])
}

// percentileRanks returns each value's percentile rank in (0, 1], ties taking
// the average of their 1-based ranks divided by the count.
func percentileRanks(values []float64) []float64 {
	n := len(values)
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return values[idx[a]] < values[idx[b]]
	})

	ranks := make([]float64, n)
	i := 0
	for i < n {
		j := i
		for j+1 < n && values[idx[j+1]] == values[idx[i]] {
			j++
		}
		// Average rank over the tie run [i, j], 1-based.
		avg := float64(i+j+2) / 2.0
		for k := i; k <= j; k++ {
			ranks[idx[k]] = avg / float64(n)
		}
		i = j + 1
	}

	return ranks
}
