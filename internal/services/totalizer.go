package services

import (
	"context"
	"fmt"
	"log/slog"

	"financas/internal/core"
)

// Totals is the per-attribution monthly aggregate for one bank. Pendentes
// counts movements in scope that are not yet fully classified; totals are
// only trustworthy when it is zero.
type Totals struct {
	Walker    core.Money
	Ambos     core.Money
	Dea       core.Money
	Pendentes int
}

// PendingClassificationError blocks totalizer generation while unclassified
// movements remain in the requested scope.
type PendingClassificationError struct {
	Count    int
	Bank     string
	MonthRef string
}

func (e *PendingClassificationError) Error() string {
	return fmt.Sprintf("%d movimento(s) pendente(s) para %s em %s", e.Count, e.Bank, e.MonthRef)
}

// Totalizer aggregates classified movements into attribution buckets and
// synthesizes the matching ledger rows.
type Totalizer struct {
	// AmbosIBucket is the bucket AMBOS_I allocations fold into at
	// totalization time. Empty means AMBOS_I is not expected at the
	// allocation level; such allocations are skipped with a warning.
	AmbosIBucket core.Attribution
}

// ComputeTotals filters movements to the month bucket and bank (and
// optionally one card) and sums each conciliado movement's allocations into
// the bucket named by its attribution tag. Movements still pendente are
// counted, not summed.
func (t Totalizer) ComputeTotals(ctx context.Context, movements []core.Movement, monthRef, bank string, cardID int64) (Totals, error) {
	if _, _, err := core.ParseMonthRef(monthRef); err != nil {
		return Totals{}, err
	}

	var totals Totals
	for _, m := range movements {
		if m.MonthRef != monthRef {
			continue
		}
		if m.Card == nil || m.Card.Bank != bank {
			continue
		}
		if cardID != 0 && m.CardID != cardID {
			continue
		}

		if !m.FullyClassified() {
			totals.Pendentes++
			continue
		}

		for _, a := range m.Allocations {
			tag := a.Tag
			if tag == core.AmbosI {
				if t.AmbosIBucket == "" {
					slog.WarnContext(ctx, "AMBOS_I allocation skipped at totalization",
						"movement_id", m.ID, "amount_cents", a.Amount.Cents)
					continue
				}
				tag = t.AmbosIBucket
			}
			switch tag {
			case core.Walker:
				totals.Walker = totals.Walker.Add(a.Amount)
			case core.Ambos:
				totals.Ambos = totals.Ambos.Add(a.Amount)
			case core.Dea:
				totals.Dea = totals.Dea.Add(a.Amount)
			}
		}
	}
	return totals, nil
}

// Synthesize turns totals into candidate ledger rows: one per non-zero
// bucket, dated at the last calendar day of the month, described as
// {bank}_{bucket}, note-tagged for later diff retrieval. Callers must refuse
// to synthesize while totals.Pendentes > 0.
func (t Totalizer) Synthesize(totals Totals, bank, monthRef, payer, category string) ([]core.LedgerEntry, error) {
	if totals.Pendentes > 0 {
		return nil, &PendingClassificationError{Count: totals.Pendentes, Bank: bank, MonthRef: monthRef}
	}

	lastDay, err := core.LastDayOfMonth(monthRef)
	if err != nil {
		return nil, err
	}
	tag := core.TotalizerTag(bank, monthRef)

	buckets := []struct {
		attribution core.Attribution
		amount      core.Money
	}{
		{core.Walker, totals.Walker},
		{core.Ambos, totals.Ambos},
		{core.Dea, totals.Dea},
	}

	var entries []core.LedgerEntry
	for _, b := range buckets {
		if b.amount.IsZero() {
			continue
		}
		entries = append(entries, core.LedgerEntry{
			Date:             lastDay,
			Type:             core.EntryDespesa,
			Description:      fmt.Sprintf("%s_%s", bank, b.attribution),
			Category:         category,
			Amount:           b.amount,
			Tag:              b.attribution,
			Method:           core.MethodCartao,
			InstallmentTotal: 1,
			InstallmentNum:   1,
			Payer:            payer,
			Note:             tag,
		})
	}
	return entries, nil
}
