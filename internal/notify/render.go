package notify

import (
	"fmt"
	"strings"

	"coloc/internal/core"
)

// RenderClosureSubject builds the notification subject for a closed month.
func RenderClosureSubject(month core.Month) string {
	return fmt.Sprintf("Comptes colocation — clôture de %s %d", month.Name, month.Year)
}

// RenderClosureReport renders the plain-text month report sent to members
// and exported at closure: totals, per-member balances and the settlement
// record, all recomputed from the transaction list.
func RenderClosureReport(month core.Month, summary core.MonthSummary) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Clôture du mois de %s %d\n\n", month.Name, month.Year)
	fmt.Fprintf(&b, "Cotisations : %s\n", core.FormatEuros(summary.TotalContributions.Cents))
	fmt.Fprintf(&b, "Dépenses    : %s\n", core.FormatEuros(summary.TotalExpenses.Cents))
	fmt.Fprintf(&b, "Solde       : %s\n", core.FormatEuros(summary.GlobalBalance.Cents))

	if len(summary.Balances) > 0 {
		b.WriteString("\nRésumé par colocataire :\n")
		for _, bal := range summary.Balances {
			fmt.Fprintf(&b, "  - %s : cotisations %s, dépenses %s, solde %s\n",
				bal.Name,
				core.FormatEuros(bal.Contributions.Cents),
				core.FormatEuros(bal.Expenses.Cents),
				core.FormatEuros(bal.Balance.Cents))
		}
	}

	if len(month.Settlements) > 0 {
		b.WriteString("\nRemboursements :\n")
		for _, s := range month.Settlements {
			fmt.Fprintf(&b, "  - %s → %s : %s (%s)\n",
				s.From, s.To, core.FormatEuros(s.Amount.Cents), s.Reason)
		}
	}

	if strings.TrimSpace(month.Remarks) != "" {
		fmt.Fprintf(&b, "\nRemarques : %s\n", month.Remarks)
	}

	return b.String()
}
