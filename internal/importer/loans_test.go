package importer

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenfin/greenfin-portal/internal/models"
	"github.com/greenfin/greenfin-portal/internal/scoring"
)

func writeLoansFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "loans.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadLoans(t *testing.T) {
	path := writeLoansFile(t, `{
		"loans": [
			{
				"loan_id": "GL-001",
				"borrower_name": "Helios Solar",
				"sector": "Renewables",
				"outstanding_amount_mn": 120.5,
				"esg_score": 88,
				"governance_risk": 1,
				"emissions_intensity": 12.4
			},
			{
				"loan_id": "GL-002",
				"borrower_name": "Mesa Coal",
				"sector": "Mining",
				"outstanding_amount_mn": 310.0,
				"esg_score": 22,
				"governance_risk": 5,
				"emissions_intensity": 840.2
			}
		]
	}`)

	loans, err := LoadLoans(path)
	require.NoError(t, err)
	require.Len(t, loans, 2)

	assert.Equal(t, "GL-001", loans[0].ID)
	assert.Equal(t, "Helios Solar", loans[0].Borrower)
	assert.Equal(t, 120.5, loans[0].Exposure)
	assert.Equal(t, 840.2, loans[1].EmissionsIntensity)
}

func TestLoadLoans_MissingFile(t *testing.T) {
	_, err := LoadLoans(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
}

func TestLoadLoans_InvalidJSON(t *testing.T) {
	path := writeLoansFile(t, `{"loans": [`)
	_, err := LoadLoans(path)
	require.Error(t, err)
}

func TestLoadLoans_RejectsMissingID(t *testing.T) {
	path := writeLoansFile(t, `{"loans": [{"borrower_name": "NoID", "outstanding_amount_mn": 5}]}`)
	_, err := LoadLoans(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loan_id")
}

func TestLoadLoans_RejectsNegativeExposure(t *testing.T) {
	path := writeLoansFile(t, `{"loans": [{"loan_id": "GL-001", "outstanding_amount_mn": -5}]}`)
	_, err := LoadLoans(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "negative exposure")
}

func TestBuildSnapshot(t *testing.T) {
	loans := []scoring.Loan{
		// Scores ~90 (A) and ~0 (D); the middle loans land between.
		{ID: "A1", Exposure: 100, ESGScore: 100, GovernanceRisk: 1, EmissionsIntensity: 1},
		{ID: "D1", Exposure: 400, ESGScore: 0, GovernanceRisk: 5, EmissionsIntensity: 900},
		{ID: "D2", Exposure: 50, ESGScore: 5, GovernanceRisk: 5, EmissionsIntensity: 800},
	}
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	snapshot := BuildSnapshot(loans, now)

	require.NoError(t, snapshot.Validate())
	assert.Equal(t, now, snapshot.LastUpdated)
	assert.InDelta(t, 550.0, snapshot.TotalExposure, 0.001)

	// Every loan is counted exactly once across the buckets.
	total := 0
	for _, b := range snapshot.RiskData {
		total += b.Count
	}
	assert.Equal(t, len(loans), total)

	// The Tier D exposure at build time becomes the divestment target.
	assert.Equal(t, snapshot.Bucket(models.TierD).Exposure, snapshot.InitialTierDTarget)
	assert.Nil(t, snapshot.LastAction)
	assert.Equal(t, int64(0), snapshot.Version)
}

func TestBuildSnapshot_EmptyBook(t *testing.T) {
	snapshot := BuildSnapshot(nil, time.Now())

	require.NoError(t, snapshot.Validate())
	assert.Equal(t, 0.0, snapshot.TotalExposure)
	assert.Equal(t, 0.0, snapshot.InitialTierDTarget)
	require.Len(t, snapshot.RiskData, 4)
}
