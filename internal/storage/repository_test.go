package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"financas/internal/core"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	repo, err := NewRepository(filepath.Join(t.TempDir(), "financas.db"))
	if err != nil {
		t.Fatalf("NewRepository failed: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func testCard(t *testing.T, repo *Repository) core.Card {
	t.Helper()
	card, err := repo.SaveCard(context.Background(), core.Card{
		Bank:       "C6",
		Holder:     "Walker",
		Last4:      "1234",
		DefaultTag: core.Ambos,
		Active:     true,
	})
	if err != nil {
		t.Fatalf("SaveCard failed: %v", err)
	}
	return card
}

func TestSaveCard(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	card := testCard(t, repo)
	if card.ID == 0 {
		t.Fatal("expected card ID to be assigned")
	}

	card.Holder = "Dea"
	updated, err := repo.SaveCard(ctx, card)
	if err != nil {
		t.Fatalf("update card failed: %v", err)
	}
	if updated.ID != card.ID {
		t.Errorf("update changed ID: got %d, want %d", updated.ID, card.ID)
	}

	cards, err := repo.ListCards(ctx)
	if err != nil {
		t.Fatalf("ListCards failed: %v", err)
	}
	if len(cards) != 1 {
		t.Fatalf("expected 1 card, got %d", len(cards))
	}
	if cards[0].Holder != "Dea" {
		t.Errorf("expected updated holder Dea, got %q", cards[0].Holder)
	}
}

func TestSaveCardInvalidTag(t *testing.T) {
	repo := newTestRepository(t)

	_, err := repo.SaveCard(context.Background(), core.Card{
		Bank:       "C6",
		Holder:     "Walker",
		DefaultTag: "INVALID",
	})
	if err == nil {
		t.Fatal("expected error for invalid default tag")
	}
}

func TestUpdateMissingCard(t *testing.T) {
	repo := newTestRepository(t)

	_, err := repo.SaveCard(context.Background(), core.Card{
		ID:         999,
		Bank:       "C6",
		Holder:     "Walker",
		DefaultTag: core.Walker,
	})
	if !errors.Is(err, core.ErrRowNotFound) {
		t.Fatalf("expected ErrRowNotFound, got %v", err)
	}
}

func TestSaveMovement(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	card := testCard(t, repo)

	m, err := repo.SaveMovement(ctx, core.Movement{
		CardID:      card.ID,
		Date:        core.NewDate(2026, 2, 10),
		Description: "Pão de Açúcar",
		Amount:      core.Money{Cents: 12550},
		Origin:      core.OriginFatura,
		Status:      core.StatusPendente,
		Allocations: []core.Allocation{
			{Tag: core.Ambos, Amount: core.Money{Cents: 12550}},
		},
	})
	if err != nil {
		t.Fatalf("SaveMovement failed: %v", err)
	}
	if m.ID == 0 {
		t.Fatal("expected movement ID to be assigned")
	}
	if m.TxKey == "" {
		t.Error("expected tx_key to be derived on save")
	}
	if m.MonthRef != "2026-02" {
		t.Errorf("expected month ref derived from date, got %q", m.MonthRef)
	}

	movements, err := repo.ListMovements(ctx)
	if err != nil {
		t.Fatalf("ListMovements failed: %v", err)
	}
	if len(movements) != 1 {
		t.Fatalf("expected 1 movement, got %d", len(movements))
	}
	got := movements[0]
	if got.Card == nil || got.Card.Bank != "C6" {
		t.Error("expected joined card with bank C6")
	}
	if len(got.Allocations) != 1 || got.Allocations[0].Tag != core.Ambos {
		t.Errorf("unexpected allocations: %+v", got.Allocations)
	}
	if got.Amount.Cents != 12550 {
		t.Errorf("expected amount 12550 cents, got %d", got.Amount.Cents)
	}
}

func TestSaveMovementMissingCard(t *testing.T) {
	repo := newTestRepository(t)

	_, err := repo.SaveMovement(context.Background(), core.Movement{
		CardID:      42,
		Date:        core.NewDate(2026, 2, 10),
		Description: "Mercado",
		Amount:      core.Money{Cents: 1000},
		Origin:      core.OriginManual,
		Status:      core.StatusPendente,
	})
	if !errors.Is(err, core.ErrCardNotFound) {
		t.Fatalf("expected ErrCardNotFound, got %v", err)
	}
}

func TestSaveMovementReplacesAllocations(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	card := testCard(t, repo)

	m, err := repo.SaveMovement(ctx, core.Movement{
		CardID:      card.ID,
		Date:        core.NewDate(2026, 2, 10),
		Description: "Mercado",
		Amount:      core.Money{Cents: 10000},
		Origin:      core.OriginManual,
		Status:      core.StatusPendente,
		Allocations: []core.Allocation{
			{Tag: core.Ambos, Amount: core.Money{Cents: 10000}},
		},
	})
	if err != nil {
		t.Fatalf("SaveMovement failed: %v", err)
	}

	m.Status = core.StatusConciliado
	m.Allocations = []core.Allocation{
		{Tag: core.Walker, Amount: core.Money{Cents: 6000}},
		{Tag: core.Dea, Amount: core.Money{Cents: 4000}},
	}
	if _, err := repo.SaveMovement(ctx, m); err != nil {
		t.Fatalf("update movement failed: %v", err)
	}

	movements, err := repo.ListMovementsByCard(ctx, card.ID)
	if err != nil {
		t.Fatalf("ListMovementsByCard failed: %v", err)
	}
	if len(movements) != 1 {
		t.Fatalf("expected 1 movement, got %d", len(movements))
	}
	allocs := movements[0].Allocations
	if len(allocs) != 2 {
		t.Fatalf("expected allocation set replaced with 2 rows, got %d", len(allocs))
	}
	if allocs[0].Tag != core.Walker || allocs[0].Amount.Cents != 6000 {
		t.Errorf("unexpected first allocation: %+v", allocs[0])
	}
	if allocs[1].Tag != core.Dea || allocs[1].Amount.Cents != 4000 {
		t.Errorf("unexpected second allocation: %+v", allocs[1])
	}
}

func TestDeleteCardCascades(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	card := testCard(t, repo)

	if _, err := repo.SaveMovement(ctx, core.Movement{
		CardID:      card.ID,
		Date:        core.NewDate(2026, 2, 10),
		Description: "Mercado",
		Amount:      core.Money{Cents: 1000},
		Origin:      core.OriginManual,
		Status:      core.StatusPendente,
		Allocations: []core.Allocation{
			{Tag: core.Walker, Amount: core.Money{Cents: 1000}},
		},
	}); err != nil {
		t.Fatalf("SaveMovement failed: %v", err)
	}

	if err := repo.DeleteCard(ctx, card.ID); err != nil {
		t.Fatalf("DeleteCard failed: %v", err)
	}

	movements, err := repo.ListMovements(ctx)
	if err != nil {
		t.Fatalf("ListMovements failed: %v", err)
	}
	if len(movements) != 0 {
		t.Errorf("expected movements to cascade on card delete, got %d", len(movements))
	}
}

func TestDeleteMovement(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	card := testCard(t, repo)

	m, err := repo.SaveMovement(ctx, core.Movement{
		CardID:      card.ID,
		Date:        core.NewDate(2026, 2, 10),
		Description: "Mercado",
		Amount:      core.Money{Cents: 1000},
		Origin:      core.OriginManual,
		Status:      core.StatusPendente,
	})
	if err != nil {
		t.Fatalf("SaveMovement failed: %v", err)
	}

	if err := repo.DeleteMovement(ctx, m.ID); err != nil {
		t.Fatalf("DeleteMovement failed: %v", err)
	}
	if err := repo.DeleteMovement(ctx, m.ID); !errors.Is(err, core.ErrRowNotFound) {
		t.Fatalf("expected ErrRowNotFound on second delete, got %v", err)
	}
}

func TestRealignMonthRef(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	card := testCard(t, repo)

	var ids []int64
	for _, day := range []int{5, 28} {
		m, err := repo.SaveMovement(ctx, core.Movement{
			CardID:      card.ID,
			Date:        core.NewDate(2026, 1, day),
			Description: "Mercado",
			Amount:      core.Money{Cents: 1000},
			Origin:      core.OriginFatura,
			Status:      core.StatusPendente,
		})
		if err != nil {
			t.Fatalf("SaveMovement failed: %v", err)
		}
		ids = append(ids, m.ID)
	}

	n, err := repo.RealignMonthRef(ctx, ids, "2026-02")
	if err != nil {
		t.Fatalf("RealignMonthRef failed: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 rows realigned, got %d", n)
	}

	movements, err := repo.ListMovements(ctx)
	if err != nil {
		t.Fatalf("ListMovements failed: %v", err)
	}
	for _, m := range movements {
		if m.MonthRef != "2026-02" {
			t.Errorf("movement %d month ref = %q, want 2026-02", m.ID, m.MonthRef)
		}
	}

	if _, err := repo.RealignMonthRef(ctx, ids, "fevereiro"); err == nil {
		t.Error("expected error for malformed month ref")
	}
}
