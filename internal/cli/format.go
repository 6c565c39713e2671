package cli

import (
	"fmt"
	"strings"
	"time"

	"option-spreads/internal/analysis"
	"option-spreads/internal/models"
	"option-spreads/pkg/utils"
)

// FormatDate formats an expiration date.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02")
}

// FormatPrice formats a quote price.
func FormatPrice(price float64) string {
	return fmt.Sprintf("%.2f", price)
}

// FormatQuote formats one leg as "ask x size", or "-" when unquoted.
func FormatQuote(q models.OptionQuote) string {
	if !q.Complete() {
		return "-"
	}
	return fmt.Sprintf("%s x %s", FormatPrice(q.AskPrice), utils.FormatSize(q.AskSize))
}

// DescribeSpread renders a candidate with its legs spelled out.
func DescribeSpread(c models.SpreadCandidate) string {
	k1, k2 := utils.FormatStrike(c.K1), utils.FormatStrike(c.K2)
	switch c.Type {
	case models.BullCall:
		return fmt.Sprintf("Bull call %s/%s (buy %s C, sell %s C)", k1, k2, k1, k2)
	case models.BearCall:
		return fmt.Sprintf("Bear call %s/%s (sell %s C, buy %s C)", k1, k2, k1, k2)
	case models.BullPut:
		return fmt.Sprintf("Bull put %s/%s (sell %s P, buy %s P)", k1, k2, k1, k2)
	case models.BearPut:
		return fmt.Sprintf("Bear put %s/%s (buy %s P, sell %s P)", k1, k2, k1, k2)
	case models.Neutral:
		return fmt.Sprintf("Strangle %s/%s (buy %s P, buy %s C)", k1, k2, k1, k2)
	}
	return c.String()
}

func displayOptionChain(output *Output, oc *models.OptionChain) {
	output.Bold("Option Chain - %s", oc.Symbol)
	output.Printf("  Spot: %s  ATM: %s  Expiry: %s\n\n",
		FormatPrice(oc.SpotPrice), utils.FormatStrike(oc.ATMStrike), FormatDate(oc.Expiry))

	output.Printf("%-16s │ %-8s │ %-16s\n", "Call ask x size", "Strike", "Put ask x size")
	output.Println(strings.Repeat("─", 46))

	for _, s := range oc.Strikes {
		strike := fmt.Sprintf("%-8s", utils.FormatStrike(s.Strike))
		if s.Strike == oc.ATMStrike {
			strike = output.BoldText(strike)
		}
		output.Printf("%-16s │ %s │ %-16s\n", FormatQuote(s.Call), strike, FormatQuote(s.Put))
	}
}

func displayReport(output *Output, r *analysis.Report) {
	output.Bold("Best spread - %s", r.Symbol)
	output.Printf("  Spot: %s  ATM: %s  Expiry: %s  Strategy: %s\n\n",
		FormatPrice(r.SpotPrice), utils.FormatStrike(r.ATMStrike), FormatDate(r.Expiry), r.Strategy)

	best := r.Best
	output.Printf("  %s\n", output.BoldText(DescribeSpread(best.Candidate)))
	output.Printf("  Expected profit: %s per share\n\n",
		output.Signed(best.ExpectedProfit, utils.FormatProfit(best.ExpectedProfit)))

	output.Bold("Implied distribution")
	for _, b := range r.Distribution.Buckets {
		bar := strings.Repeat("▇", int(b.Probability*40+0.5))
		output.Printf("  %8s  %5.1f%%  %s\n", FormatPrice(b.Price), b.Probability*100, output.DimText(bar))
	}
	output.Printf("  Mean: %s\n\n", FormatPrice(r.Distribution.Mean()))

	output.Bold("Ranked candidates")
	for i, ev := range r.Ranked {
		output.Printf("  %2d. %-10s %7s/%-7s %s\n", i+1, ev.Candidate.Type,
			utils.FormatStrike(ev.Candidate.K1), utils.FormatStrike(ev.Candidate.K2),
			output.Signed(ev.ExpectedProfit, utils.FormatProfit(ev.ExpectedProfit)))
	}
}
