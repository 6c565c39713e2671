package cli

import (
	"fmt"
	"os"

	"github.com/gocarina/gocsv"

	"option-spreads/internal/analysis"
	"option-spreads/internal/models"
)

// ReportRow is one ranked candidate in the CSV report.
type ReportRow struct {
	Rank           int     `csv:"rank"`
	Symbol         string  `csv:"symbol"`
	Expiry         string  `csv:"expiry"`
	Type           string  `csv:"type"`
	K1             float64 `csv:"k1"`
	K2             float64 `csv:"k2"`
	ExpectedProfit float64 `csv:"expected_profit"`
	Best           bool    `csv:"best"`
}

// ReportRows flattens a report into CSV rows, best candidate first.
func ReportRows(r *analysis.Report) []*ReportRow {
	rows := make([]*ReportRow, 0, len(r.Ranked))
	expiry := r.Expiry.Format(models.ExpiryLayout)
	for i, ev := range r.Ranked {
		rows = append(rows, &ReportRow{
			Rank:           i + 1,
			Symbol:         r.Symbol,
			Expiry:         expiry,
			Type:           string(ev.Candidate.Type),
			K1:             ev.Candidate.K1,
			K2:             ev.Candidate.K2,
			ExpectedProfit: ev.ExpectedProfit,
			Best:           i == 0,
		})
	}
	return rows
}

func writeReportCSV(path string, r *analysis.Report) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	rows := ReportRows(r)
	if err := gocsv.MarshalFile(&rows, f); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
