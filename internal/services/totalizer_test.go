package services

import (
	"context"
	"errors"
	"testing"

	"financas/internal/core"
)

func classifiedMovement(id int64, bank string, monthRef string, allocs ...core.Allocation) core.Movement {
	card := &core.Card{ID: 1, Bank: bank, Holder: "Walker", DefaultTag: core.Ambos}
	return core.Movement{
		ID:          id,
		CardID:      card.ID,
		Card:        card,
		Date:        core.NewDate(2026, 2, 10),
		Description: "Mercado",
		Amount:      core.Money{Cents: sumAllocs(allocs)},
		Origin:      core.OriginFatura,
		Status:      core.StatusConciliado,
		MonthRef:    monthRef,
		Allocations: allocs,
	}
}

func sumAllocs(allocs []core.Allocation) int64 {
	var total int64
	for _, a := range allocs {
		total += a.Amount.Cents
	}
	return total
}

func TestComputeTotalsScenario(t *testing.T) {
	// C6, 2026-02: WALKER=120.00 and AMBOS=300.00 classified, DEA absent.
	movements := []core.Movement{
		classifiedMovement(1, "C6", "2026-02",
			core.Allocation{Tag: core.Walker, Amount: core.Money{Cents: 12000}}),
		classifiedMovement(2, "C6", "2026-02",
			core.Allocation{Tag: core.Ambos, Amount: core.Money{Cents: 30000}}),
		// Different month and different bank must be excluded.
		classifiedMovement(3, "C6", "2026-01",
			core.Allocation{Tag: core.Dea, Amount: core.Money{Cents: 9900}}),
		classifiedMovement(4, "Nubank", "2026-02",
			core.Allocation{Tag: core.Dea, Amount: core.Money{Cents: 5000}}),
	}

	totals, err := Totalizer{}.ComputeTotals(context.Background(), movements, "2026-02", "C6", 0)
	if err != nil {
		t.Fatalf("ComputeTotals failed: %v", err)
	}
	if totals.Pendentes != 0 {
		t.Errorf("expected 0 pendentes, got %d", totals.Pendentes)
	}
	if totals.Walker.Cents != 12000 {
		t.Errorf("WALKER = %d cents, want 12000", totals.Walker.Cents)
	}
	if totals.Ambos.Cents != 30000 {
		t.Errorf("AMBOS = %d cents, want 30000", totals.Ambos.Cents)
	}
	if totals.Dea.Cents != 0 {
		t.Errorf("DEA = %d cents, want 0", totals.Dea.Cents)
	}
}

func TestComputeTotalsCountsPendentes(t *testing.T) {
	pending := classifiedMovement(1, "C6", "2026-02",
		core.Allocation{Tag: core.Ambos, Amount: core.Money{Cents: 5000}})
	pending.Status = core.StatusPendente

	movements := []core.Movement{
		pending,
		classifiedMovement(2, "C6", "2026-02",
			core.Allocation{Tag: core.Walker, Amount: core.Money{Cents: 12000}}),
	}

	totals, err := Totalizer{}.ComputeTotals(context.Background(), movements, "2026-02", "C6", 0)
	if err != nil {
		t.Fatalf("ComputeTotals failed: %v", err)
	}
	if totals.Pendentes != 1 {
		t.Errorf("expected 1 pendente, got %d", totals.Pendentes)
	}
	if totals.Walker.Cents != 12000 {
		t.Errorf("pendente amounts must not be summed: WALKER = %d", totals.Walker.Cents)
	}
	if totals.Ambos.Cents != 0 {
		t.Errorf("pendente amounts must not be summed: AMBOS = %d", totals.Ambos.Cents)
	}
}

func TestSynthesizeScenario(t *testing.T) {
	totals := Totals{
		Walker: core.Money{Cents: 12000},
		Ambos:  core.Money{Cents: 30000},
	}

	entries, err := Totalizer{}.Synthesize(totals, "C6", "2026-02", "Walker", "Cartão")
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries (zero DEA bucket omitted), got %d", len(entries))
	}

	byDesc := map[string]core.LedgerEntry{}
	for _, e := range entries {
		byDesc[e.Description] = e
	}

	walker, ok := byDesc["C6_WALKER"]
	if !ok {
		t.Fatal("missing C6_WALKER entry")
	}
	if walker.Amount.Cents != 12000 {
		t.Errorf("C6_WALKER amount = %d cents, want 12000", walker.Amount.Cents)
	}
	ambos, ok := byDesc["C6_AMBOS"]
	if !ok {
		t.Fatal("missing C6_AMBOS entry")
	}
	if ambos.Amount.Cents != 30000 {
		t.Errorf("C6_AMBOS amount = %d cents, want 30000", ambos.Amount.Cents)
	}

	wantTag := "[CARTAO_TOTALIZADOR:C6:2026-02]"
	for _, e := range entries {
		if e.Date.String() != "2026-02-28" {
			t.Errorf("%s dated %s, want 2026-02-28", e.Description, e.Date.String())
		}
		if !core.HasTotalizerTag(e.Note, wantTag) {
			t.Errorf("%s note %q missing tag %s", e.Description, e.Note, wantTag)
		}
		if e.Method != core.MethodCartao {
			t.Errorf("%s method = %q, want cartao", e.Description, e.Method)
		}
		if e.Type != core.EntryDespesa {
			t.Errorf("%s type = %q, want despesa", e.Description, e.Type)
		}
	}
}

func TestSynthesizeRefusesPending(t *testing.T) {
	totals := Totals{Walker: core.Money{Cents: 12000}, Pendentes: 2}

	_, err := Totalizer{}.Synthesize(totals, "C6", "2026-02", "Walker", "Cartão")

	var pendErr *PendingClassificationError
	if !errors.As(err, &pendErr) {
		t.Fatalf("expected PendingClassificationError, got %v", err)
	}
	if pendErr.Count != 2 || pendErr.Bank != "C6" || pendErr.MonthRef != "2026-02" {
		t.Errorf("unexpected error payload: %+v", pendErr)
	}
}

func TestComputeTotalsAmbosIFold(t *testing.T) {
	movements := []core.Movement{
		classifiedMovement(1, "C6", "2026-02",
			core.Allocation{Tag: core.AmbosI, Amount: core.Money{Cents: 4000}}),
	}

	// Without a fold bucket the allocation is skipped.
	totals, err := Totalizer{}.ComputeTotals(context.Background(), movements, "2026-02", "C6", 0)
	if err != nil {
		t.Fatalf("ComputeTotals failed: %v", err)
	}
	if totals.Walker.Cents != 0 || totals.Ambos.Cents != 0 || totals.Dea.Cents != 0 {
		t.Errorf("expected AMBOS_I skipped without fold bucket, got %+v", totals)
	}

	// With a configured fold bucket it lands there.
	totals, err = Totalizer{AmbosIBucket: core.Ambos}.ComputeTotals(context.Background(), movements, "2026-02", "C6", 0)
	if err != nil {
		t.Fatalf("ComputeTotals failed: %v", err)
	}
	if totals.Ambos.Cents != 4000 {
		t.Errorf("expected AMBOS_I folded into AMBOS, got %+v", totals)
	}
}

func TestComputeTotalsCardFilter(t *testing.T) {
	other := classifiedMovement(2, "C6", "2026-02",
		core.Allocation{Tag: core.Walker, Amount: core.Money{Cents: 7000}})
	other.CardID = 9
	other.Card = &core.Card{ID: 9, Bank: "C6", Holder: "Dea", DefaultTag: core.Dea}

	movements := []core.Movement{
		classifiedMovement(1, "C6", "2026-02",
			core.Allocation{Tag: core.Walker, Amount: core.Money{Cents: 12000}}),
		other,
	}

	totals, err := Totalizer{}.ComputeTotals(context.Background(), movements, "2026-02", "C6", 1)
	if err != nil {
		t.Fatalf("ComputeTotals failed: %v", err)
	}
	if totals.Walker.Cents != 12000 {
		t.Errorf("card filter leaked: WALKER = %d, want 12000", totals.Walker.Cents)
	}
}
