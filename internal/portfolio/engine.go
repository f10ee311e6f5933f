// Package portfolio implements the portfolio snapshot store, the divestment
// engine, and the derived display metrics.
package portfolio

import (
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/greenfin/greenfin-portal/internal/models"
)

// SimulateDivestment validates amount against the snapshot's Tier D exposure
// and returns a new snapshot with the divestment applied. The input snapshot is
// never mutated and the function performs no I/O; persistence is the caller's
// responsibility. Divestment is modeled as asset removal: other tiers keep
// their absolute exposure and the portfolio total shrinks by amount.
//
// The result is a pure function of its inputs, so tests inject now.
func SimulateDivestment(snapshot *models.PortfolioSnapshot, amount float64, actor string, now time.Time) (*models.PortfolioSnapshot, error) {
	if amount <= 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return nil, ErrInvalidAmount
	}

	tierD := snapshot.Bucket(models.TierD)
	if tierD == nil {
		return nil, ErrSnapshotNotFound
	}
	if amount > tierD.Exposure {
		return nil, &ExceedsExposureError{Amount: amount, Ceiling: tierD.Exposure}
	}

	next := snapshot.Clone()
	next.Bucket(models.TierD).Exposure -= amount
	next.RecomputeTotals()
	next.LastAction = &models.DivestmentRecord{
		ID:        uuid.New().String(),
		Amount:    amount,
		Timestamp: now,
		User:      actor,
	}
	next.LastUpdated = now

	return next, nil
}

// ComputeMetrics derives the display metrics from a snapshot. No side effects,
// no caching; callers recompute whenever the snapshot changes.
func ComputeMetrics(snapshot *models.PortfolioSnapshot) models.DerivedMetrics {
	var m models.DerivedMetrics

	if d := snapshot.Bucket(models.TierD); d != nil {
		m.CurrentTierDExposure = d.Exposure
	}
	if c := snapshot.Bucket(models.TierC); c != nil {
		m.HighRiskExposure = c.Exposure
	}
	m.HighRiskExposure += m.CurrentTierDExposure

	m.ProgressMade = math.Max(0, snapshot.InitialTierDTarget-m.CurrentTierDExposure)
	if snapshot.InitialTierDTarget > 0 {
		m.ProgressPercentage = math.Min(100, m.ProgressMade/snapshot.InitialTierDTarget*100)
	}

	for _, b := range snapshot.RiskData {
		m.TotalLoanCount += b.Count
	}

	return m
}
