// Package seed initializes the portfolio snapshot document on first start.
package seed

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/greenfin/greenfin-portal/internal/common"
	"github.com/greenfin/greenfin-portal/internal/config"
	"github.com/greenfin/greenfin-portal/internal/importer"
	"github.com/greenfin/greenfin-portal/internal/models"
	"github.com/greenfin/greenfin-portal/internal/portfolio"
)

const (
	seedRetryAttempts = 3
	seedRetryDelay    = 2 * time.Second
)

// DefaultSnapshot returns the built-in starting portfolio used when no loan
// book is available. Exposures are in millions; the Tier D exposure doubles as
// the divestment target.
func DefaultSnapshot(now time.Time) *models.PortfolioSnapshot {
	snapshot := &models.PortfolioSnapshot{
		RiskData: []models.RiskBucket{
			{Tier: models.TierA, Exposure: 9933.22, Count: 12},
			{Tier: models.TierB, Exposure: 86354.51, Count: 45},
			{Tier: models.TierC, Exposure: 129817.65, Count: 61},
			{Tier: models.TierD, Exposure: 52052.43, Count: 24},
		},
		LastUpdated: now,
	}
	snapshot.RecomputeTotals()
	snapshot.InitialTierDTarget = snapshot.Bucket(models.TierD).Exposure
	return snapshot
}

// Portfolio seeds the snapshot document if absent, preferring the configured
// loan book and falling back to the built-in starting portfolio. Non-fatal: if
// the store write fails after retries, logs a warning and returns.
func Portfolio(ctx context.Context, store *portfolio.Store, cfg *config.PortfolioConfig, logger *common.Logger) {
	snapshot := buildSnapshot(cfg, logger)

	var seeded bool
	var err error
	for attempt := 1; attempt <= seedRetryAttempts; attempt++ {
		seeded, err = store.SeedIfAbsent(ctx, snapshot)
		if err == nil {
			break
		}
		logger.Warn().
			Int("attempt", attempt).
			Int("max_attempts", seedRetryAttempts).
			Str("error", err.Error()).
			Msg("seed: failed to write portfolio snapshot, retrying")
		if attempt < seedRetryAttempts {
			time.Sleep(seedRetryDelay)
		}
	}

	if err != nil {
		logger.Warn().
			Int("attempts", seedRetryAttempts).
			Str("error", err.Error()).
			Msg("seed: failed to seed portfolio snapshot after retries, continuing without seeding")
		return
	}

	if !seeded {
		logger.Debug().Msg("seed: portfolio snapshot already present, skipping")
	}
}

// buildSnapshot resolves the seed snapshot: loan book when present, built-in
// starting portfolio otherwise.
func buildSnapshot(cfg *config.PortfolioConfig, logger *common.Logger) *models.PortfolioSnapshot {
	now := time.Now().UTC()

	path := FindLoansFile(cfg.LoansFile)
	if path == "" {
		logger.Debug().Msg("seed: no loans file found, using built-in starting portfolio")
		return DefaultSnapshot(now)
	}

	loans, err := importer.LoadLoans(path)
	if err != nil {
		logger.Warn().Str("error", err.Error()).Str("path", path).Msg("seed: failed to load loans file, using built-in starting portfolio")
		return DefaultSnapshot(now)
	}
	if len(loans) == 0 {
		logger.Warn().Str("path", path).Msg("seed: loans file is empty, using built-in starting portfolio")
		return DefaultSnapshot(now)
	}

	logger.Info().Int("loans", len(loans)).Str("path", path).Msg("seed: building snapshot from loan book")
	return importer.BuildSnapshot(loans, now)
}

// FindLoansFile searches for the loans file relative to the executable
// directory first, then falls back to the current working directory. Returns
// the empty string when the file does not exist.
func FindLoansFile(name string) string {
	if name == "" {
		return ""
	}

	if filepath.IsAbs(name) {
		if _, err := os.Stat(name); err == nil {
			return name
		}
		return ""
	}

	if exe, err := os.Executable(); err == nil {
		binDir := filepath.Dir(exe)
		p := filepath.Join(binDir, name)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	if _, err := os.Stat(name); err == nil {
		return name
	}

	return ""
}
