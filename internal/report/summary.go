// Package report renders the portfolio risk summary as Markdown.
package report

import (
	"fmt"
	"strings"

	"github.com/greenfin/greenfin-portal/internal/common"
	"github.com/greenfin/greenfin-portal/internal/models"
	"github.com/greenfin/greenfin-portal/internal/scoring"
)

const rule = "================================================================================"

// topLoanCount bounds the best/worst loan sections.
const topLoanCount = 5

// RenderSummary renders the portfolio risk summary for a snapshot. When the
// scored loan book is available, best and worst aligned loans are appended;
// pass nil otherwise.
func RenderSummary(snapshot *models.PortfolioSnapshot, metrics models.DerivedMetrics, loans []scoring.ScoredLoan) string {
	var b strings.Builder

	b.WriteString(rule + "\n")
	b.WriteString("           *** GREEN FINANCE PORTFOLIO RISK SUMMARY ***\n")
	fmt.Fprintf(&b, "Total Portfolio Exposure: %s\n", common.FormatMillions(snapshot.TotalExposure))
	b.WriteString(rule + "\n\n")

	b.WriteString("| Risk Tier | Total Exposure | Count | Exposure % |\n")
	b.WriteString("|-----------|---------------:|------:|-----------:|\n")
	for _, bucket := range snapshot.RiskData {
		fmt.Fprintf(&b, "| %s: %s | %s | %d | %s |\n",
			bucket.Tier, bucket.Tier.Label(),
			common.FormatAmount(bucket.Exposure),
			bucket.Count,
			common.FormatPct(bucket.Percentage),
		)
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "High-risk exposure (Tiers C+D): %s\n", common.FormatMillions(metrics.HighRiskExposure))
	fmt.Fprintf(&b, "Divestment progress: %s of %s (%s)\n",
		common.FormatAmount(metrics.ProgressMade),
		common.FormatAmount(snapshot.InitialTierDTarget),
		common.FormatPct(metrics.ProgressPercentage),
	)

	if snapshot.LastAction != nil {
		fmt.Fprintf(&b, "Last divestment: %s by %s at %s\n",
			common.FormatAmount(snapshot.LastAction.Amount),
			snapshot.LastAction.User,
			snapshot.LastAction.Timestamp.UTC().Format("2006-01-02 15:04:05 UTC"),
		)
	}

	if len(loans) > 0 {
		writeLoanSections(&b, loans)
	}

	b.WriteString(rule + "\n")
	return b.String()
}

// writeLoanSections appends the best and worst aligned loan tables. Loans are
// expected sorted best-first, as scoring.ScoreLoans returns them.
func writeLoanSections(b *strings.Builder, loans []scoring.ScoredLoan) {
	b.WriteString("\n" + rule + "\n")
	fmt.Fprintf(b, "TOP %d LOANS - BEST GREEN FINANCE ALIGNMENT\n", topLoanCount)
	writeLoanTable(b, headLoans(loans, topLoanCount))

	b.WriteString("\n" + strings.Repeat("-", len(rule)) + "\n")
	fmt.Fprintf(b, "BOTTOM %d LOANS - WORST GREEN FINANCE ALIGNMENT (Candidates for Divestment)\n", topLoanCount)
	writeLoanTable(b, tailLoans(loans, topLoanCount))
}

func writeLoanTable(b *strings.Builder, loans []scoring.ScoredLoan) {
	b.WriteString("| Borrower | Sector | Outstanding (Mn) | Score | Tier |\n")
	b.WriteString("|----------|--------|-----------------:|------:|------|\n")
	for _, l := range loans {
		fmt.Fprintf(b, "| %s | %s | %s | %.2f | %s |\n",
			l.Borrower, l.Sector, common.FormatAmount(l.Exposure), l.Score, l.Tier)
	}
}

func headLoans(loans []scoring.ScoredLoan, n int) []scoring.ScoredLoan {
	if len(loans) < n {
		n = len(loans)
	}
	return loans[:n]
}

func tailLoans(loans []scoring.ScoredLoan, n int) []scoring.ScoredLoan {
	if len(loans) < n {
		n = len(loans)
	}
	return loans[len(loans)-n:]
}
