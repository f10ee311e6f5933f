// Package importer loads a loan book from disk and aggregates it into the
// portfolio snapshot document.
package importer

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/greenfin/greenfin-portal/internal/models"
	"github.com/greenfin/greenfin-portal/internal/scoring"
)

// loansFile represents the JSON structure of the loans import file.
type loansFile struct {
	Loans []scoring.Loan `json:"loans"`
}

// LoadLoans reads the loan book from a JSON file.
func LoadLoans(path string) ([]scoring.Loan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read loans file %s: %w", path, err)
	}

	var file loansFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse loans file %s: %w", path, err)
	}

	for i, l := range file.Loans {
		if l.ID == "" {
			return nil, fmt.Errorf("loan %d in %s has no loan_id", i, path)
		}
		if l.Exposure < 0 {
			return nil, fmt.Errorf("loan %s has negative exposure", l.ID)
		}
	}

	return file.Loans, nil
}

// BuildSnapshot scores the loan book, aggregates exposure and count per tier,
// and returns a snapshot ready for seeding. The Tier D exposure at build time
// becomes the divestment target.
func BuildSnapshot(loans []scoring.Loan, now time.Time) *models.PortfolioSnapshot {
	buckets := make([]models.RiskBucket, 0, 4)
	for _, t := range models.Tiers() {
		buckets = append(buckets, models.RiskBucket{Tier: t})
	}

	for _, sl := range scoring.ScoreLoans(loans) {
		b := &buckets[sl.Tier.Ordinal()]
		b.Exposure += sl.Exposure
		b.Count++
	}

	snapshot := &models.PortfolioSnapshot{
		RiskData:    buckets,
		LastUpdated: now,
	}
	snapshot.RecomputeTotals()
	snapshot.InitialTierDTarget = snapshot.Bucket(models.TierD).Exposure

	return snapshot
}
