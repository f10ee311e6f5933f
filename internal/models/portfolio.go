// Package models defines data structures for the GreenFin portal.
package models

import (
	"fmt"
	"math"
	"time"
)

// Tier is a portfolio risk category derived from the Green Finance Score.
// A is the best-aligned (lowest risk) tier, D the worst (divestment candidates).
type Tier string

const (
	TierA Tier = "A"
	TierB Tier = "B"
	TierC Tier = "C"
	TierD Tier = "D"
)

// Tiers returns all tiers in display order, lowest risk first.
func Tiers() []Tier {
	return []Tier{TierA, TierB, TierC, TierD}
}

// Ordinal returns the tier's risk rank (A=0 lowest, D=3 highest).
func (t Tier) Ordinal() int {
	switch t {
	case TierA:
		return 0
	case TierB:
		return 1
	case TierC:
		return 2
	case TierD:
		return 3
	}
	return -1
}

// Label returns the tier's display label.
func (t Tier) Label() string {
	switch t {
	case TierA:
		return "Leader (Low Risk)"
	case TierB:
		return "Aligned (Moderate Risk)"
	case TierC:
		return "Watchlist (High Risk)"
	case TierD:
		return "Divestment (Very High Risk)"
	}
	return "Unknown"
}

// Color returns the tier's display color as a hex string.
func (t Tier) Color() string {
	switch t {
	case TierA:
		return "#5cb85c"
	case TierB:
		return "#5bc0de"
	case TierC:
		return "#f0ad4e"
	case TierD:
		return "#d9534f"
	}
	return "#cccccc"
}

// Valid reports whether t is one of the four defined tiers.
func (t Tier) Valid() bool {
	return t.Ordinal() >= 0
}

// RiskBucket aggregates loan exposure for a single risk tier.
// Percentage is derived from the snapshot total, never stored independently.
type RiskBucket struct {
	Tier       Tier    `json:"tier"`
	Exposure   float64 `json:"exposure"` // outstanding amount in millions
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// DivestmentRecord captures a single divestment action. Immutable once created;
// only the most recent record is retained on the snapshot.
type DivestmentRecord struct {
	ID        string    `json:"id"`
	Amount    float64   `json:"amount"`
	Timestamp time.Time `json:"timestamp"`
	User      string    `json:"user"`
}

// PortfolioSnapshot is the complete portfolio state, read and replaced as one
// atomic document. Version increases by one on every successful write and is
// used for compare-and-swap replacement.
type PortfolioSnapshot struct {
	Version            int64             `json:"version"`
	TotalExposure      float64           `json:"total_exposure"`
	InitialTierDTarget float64           `json:"initial_tier_d_target"`
	RiskData           []RiskBucket      `json:"risk_data"` // ordered A,B,C,D
	LastUpdated        time.Time         `json:"last_updated"`
	LastAction         *DivestmentRecord `json:"last_action,omitempty"`
}

// Bucket returns the bucket for the given tier, or nil if absent.
func (s *PortfolioSnapshot) Bucket(t Tier) *RiskBucket {
	for i := range s.RiskData {
		if s.RiskData[i].Tier == t {
			return &s.RiskData[i]
		}
	}
	return nil
}

// Clone returns a deep copy of the snapshot.
func (s *PortfolioSnapshot) Clone() *PortfolioSnapshot {
	out := *s
	out.RiskData = make([]RiskBucket, len(s.RiskData))
	copy(out.RiskData, s.RiskData)
	if s.LastAction != nil {
		action := *s.LastAction
		out.LastAction = &action
	}
	return &out
}

// RecomputeTotals replaces TotalExposure with the sum of bucket exposures and
// recomputes every bucket's percentage against it. With a zero total all
// percentages are zero.
func (s *PortfolioSnapshot) RecomputeTotals() {
	total := 0.0
	for i := range s.RiskData {
		total += s.RiskData[i].Exposure
	}
	s.TotalExposure = total
	for i := range s.RiskData {
		if total > 0 {
			s.RiskData[i].Percentage = s.RiskData[i].Exposure / total * 100
		} else {
			s.RiskData[i].Percentage = 0
		}
	}
}

// Validate checks the snapshot's structural invariants: exactly one bucket per
// tier in A..D order, non-negative exposures and counts, and a total matching
// the bucket sum within tolerance.
func (s *PortfolioSnapshot) Validate() error {
	tiers := Tiers()
	if len(s.RiskData) != len(tiers) {
		return fmt.Errorf("expected %d risk buckets, got %d", len(tiers), len(s.RiskData))
	}
	sum := 0.0
	for i, b := range s.RiskData {
		if b.Tier != tiers[i] {
			return fmt.Errorf("bucket %d: expected tier %s, got %s", i, tiers[i], b.Tier)
		}
		if b.Exposure < 0 || math.IsNaN(b.Exposure) || math.IsInf(b.Exposure, 0) {
			return fmt.Errorf("bucket %s: invalid exposure %v", b.Tier, b.Exposure)
		}
		if b.Count < 0 {
			return fmt.Errorf("bucket %s: negative count %d", b.Tier, b.Count)
		}
		sum += b.Exposure
	}
	if math.Abs(sum-s.TotalExposure) > 0.01 {
		return fmt.Errorf("total exposure %.2f does not match bucket sum %.2f", s.TotalExposure, sum)
	}
	return nil
}

// DerivedMetrics are display projections computed from a snapshot. They carry
// no state of their own and are recomputed on every read.
type DerivedMetrics struct {
	CurrentTierDExposure float64 `json:"current_tier_d_exposure"`
	ProgressMade         float64 `json:"progress_made"`
	ProgressPercentage   float64 `json:"progress_percentage"`
	HighRiskExposure     float64 `json:"high_risk_exposure"`
	TotalLoanCount       int     `json:"total_loan_count"`
}
