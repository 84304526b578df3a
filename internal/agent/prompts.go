package agent

import (
	"fmt"
	"strings"

	"github.com/SushantGanji3/RAQQuantTradingAgent/internal/analytics"
	"github.com/SushantGanji3/RAQQuantTradingAgent/internal/models"
)

func summaryInstruction(symbol string, period models.Period, stats analytics.SummaryStats) string {
	return fmt.Sprintf(
		"Provide a summary for %s stock. Current price: $%.2f (%+.2f%%). Volume: %d. Period: %s. "+
			"Include key metrics, recent news, and market sentiment.",
		symbol, stats.CurrentPrice, stats.ChangePercent, stats.Volume, period)
}

func queryInstruction(query string) string {
	return fmt.Sprintf("Query: %s\n\nBased on the context below, provide a comprehensive answer to the query.", query)
}

func volatilityInstruction(symbol, date string, stats analytics.VolatilityStats) string {
	return fmt.Sprintf(
		"Explain why %s volatility was %.4f (annualized %.4f, %d daily returns) on %s. "+
			"Consider news, events, and market conditions from the context below.",
		symbol, stats.Value, stats.Annualized, stats.SampleCount, date)
}

// evidenceText renders the bundle as numbered document blocks plus the
// derived metrics, the only material the generator may draw on.
func evidenceText(bundle models.EvidenceBundle) string {
	var sb strings.Builder
	for i, it := range bundle.Items {
		fmt.Fprintf(&sb, "[Document %d]\n", i+1)
		fmt.Fprintf(&sb, "Source: %s\n", it.Doc.Source)
		fmt.Fprintf(&sb, "Published: %s\n", it.Doc.PublishedAt.Format("2006-01-02"))
		if it.Doc.Title != "" {
			fmt.Fprintf(&sb, "Title: %s\n", it.Doc.Title)
		}
		fmt.Fprintf(&sb, "Content: %s\n\n", it.Doc.Body)
	}
	if len(bundle.Metrics) > 0 {
		sb.WriteString("[Derived metrics]\n")
		for _, m := range bundle.Metrics {
			fmt.Fprintf(&sb, "%s = %g\n", m.Name, m.Value)
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}
