// Package export defines the document-exporter port: a closed month is
// rendered into a tabular report and handed to an external destination.
package export

import (
	"context"
	"strconv"

	"coloc/internal/core"
)

// Report is the rendered representation an Exporter materialises.
type Report struct {
	Title   string
	Headers []string
	Rows    [][]string
}

// Exporter produces a shareable artifact from a report and returns a
// reference to it. Failure surfaces as a single error.
type Exporter interface {
	Export(ctx context.Context, report Report) (ref string, err error)
}

// BuildMonthReport flattens a month into an exportable table: the summary
// line, per-member balances and the settlement record.
func BuildMonthReport(month core.Month, summary core.MonthSummary) Report {
	r := Report{
		Title:   month.Name + " " + strconv.Itoa(month.Year),
		Headers: []string{"Section", "Colocataire", "Cotisations", "Dépenses", "Solde", "Détail"},
	}

	r.Rows = append(r.Rows, []string{
		"Total", "",
		core.FormatEuros(summary.TotalContributions.Cents),
		core.FormatEuros(summary.TotalExpenses.Cents),
		core.FormatEuros(summary.GlobalBalance.Cents),
		"",
	})

	for _, b := range summary.Balances {
		r.Rows = append(r.Rows, []string{
			"Colocataire", b.Name,
			core.FormatEuros(b.Contributions.Cents),
			core.FormatEuros(b.Expenses.Cents),
			core.FormatEuros(b.Balance.Cents),
			"",
		})
	}

	for _, s := range month.Settlements {
		r.Rows = append(r.Rows, []string{
			"Remboursement", s.From, "", "",
			core.FormatEuros(s.Amount.Cents),
			s.From + " → " + s.To + " : " + s.Reason,
		})
	}

	if month.Remarks != "" {
		r.Rows = append(r.Rows, []string{"Remarques", "", "", "", "", month.Remarks})
	}
	return r
}
