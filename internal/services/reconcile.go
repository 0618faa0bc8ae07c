package services

import (
	"strings"

	"financas/internal/core"
)

// ImportLine is one parsed statement line handed to the reconciler. Parsing
// (column mapping, amount formats) happens upstream; lines arriving here are
// well formed.
type ImportLine struct {
	Date             core.Date
	Description      string
	Amount           core.Money
	InstallmentTotal int
	InstallmentNum   int
}

// PreviewItem is the reconciliation verdict for one import line.
type PreviewItem struct {
	Line       ImportLine
	TxKey      string
	Status     core.LineStatus
	MovementID int64 // matched movement when ja_lancado
	Fuzzy      bool  // matched by the fuzzy fallback, not by tx_key
}

// ReconcileResult carries per-line verdicts plus batch counts.
type ReconcileResult struct {
	Items       []PreviewItem
	Total       int
	Novos       int
	Conciliados int
}

// Reconcile classifies each import line against the card's existing
// movements: exact tx_key match first, then a constrained fuzzy fallback
// (same date, amount within one cent, compatible description, exactly one
// surviving candidate). A movement claimed by one line is withdrawn from
// matching for the rest of the batch, so N duplicate lines match N duplicate
// movements one-to-one. Pure analysis over the snapshot passed in; performs
// no writes and is safe to rerun.
func Reconcile(card core.Card, lines []ImportLine, existing []core.Movement) ReconcileResult {
	result := ReconcileResult{
		Items: make([]PreviewItem, 0, len(lines)),
		Total: len(lines),
	}

	claimed := make(map[int64]bool, len(existing))

	for _, line := range lines {
		item := PreviewItem{
			Line:   line,
			TxKey:  core.TxKey(card.ID, line.Date, line.Description, line.Amount, line.InstallmentTotal, line.InstallmentNum),
			Status: core.LineNovo,
		}

		if id, ok := matchExact(item.TxKey, existing, claimed); ok {
			item.Status = core.LineJaLancado
			item.MovementID = id
			claimed[id] = true
		} else if id, ok := matchFuzzy(line, existing, claimed); ok {
			item.Status = core.LineJaLancado
			item.MovementID = id
			item.Fuzzy = true
			claimed[id] = true
		}

		result.Items = append(result.Items, item)
	}

	for _, item := range result.Items {
		if item.Status == core.LineJaLancado {
			result.Conciliados++
		}
	}
	result.Novos = result.Total - result.Conciliados
	return result
}

func matchExact(txKey string, existing []core.Movement, claimed map[int64]bool) (int64, bool) {
	for _, m := range existing {
		if claimed[m.ID] {
			continue
		}
		if m.TxKey == txKey {
			return m.ID, true
		}
	}
	return 0, false
}

// matchFuzzy accepts a candidate only when exactly one unclaimed movement on
// the same date, within one cent, has a compatible description. Zero or many
// survivors mean the line stays novo: a tie must never cause a wrong merge.
func matchFuzzy(line ImportLine, existing []core.Movement, claimed map[int64]bool) (int64, bool) {
	normLine := core.NormalizeDescription(line.Description)

	var survivors []int64
	for _, m := range existing {
		if claimed[m.ID] {
			continue
		}
		if m.Date.String() != line.Date.String() {
			continue
		}
		if m.Amount.Cents-line.Amount.Cents > 1 || line.Amount.Cents-m.Amount.Cents > 1 {
			continue
		}
		if descriptionsCompatible(normLine, core.NormalizeDescription(m.Description)) {
			survivors = append(survivors, m.ID)
		}
	}

	if len(survivors) == 1 {
		return survivors[0], true
	}
	return 0, false
}

// descriptionsCompatible holds when the normalized forms are equal, one
// contains the other (length >= 4), or they share at least two tokens of
// length >= 3.
func descriptionsCompatible(a, b string) bool {
	if a == b {
		return true
	}
	if len(a) >= 4 && len(b) >= 4 && (strings.Contains(a, b) || strings.Contains(b, a)) {
		return true
	}
	return sharedTokens(a, b) >= 2
}

func sharedTokens(a, b string) int {
	tokensB := make(map[string]bool)
	for _, tok := range strings.Fields(b) {
		if len(tok) >= 3 {
			tokensB[tok] = true
		}
	}

	shared := 0
	for _, tok := range strings.Fields(a) {
		if len(tok) >= 3 && tokensB[tok] {
			shared++
			delete(tokensB, tok)
		}
	}
	return shared
}
