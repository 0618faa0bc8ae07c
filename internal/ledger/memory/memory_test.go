package memory

import (
	"context"
	"errors"
	"testing"

	"financas/internal/core"
	"financas/internal/ledger"
)

func TestStoreCRUD(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	id, err := s.AppendEntry(ctx, core.LedgerEntry{Description: "C6_WALKER", Amount: core.Money{Cents: 12000}})
	if err != nil {
		t.Fatalf("AppendEntry: %v", err)
	}

	entries, err := s.ReadAllEntries(ctx)
	if err != nil {
		t.Fatalf("ReadAllEntries: %v", err)
	}
	if len(entries) != 1 || entries[0].ID != id {
		t.Fatalf("unexpected entries: %+v", entries)
	}

	updated := entries[0]
	updated.Amount = core.Money{Cents: 15000}
	if err := s.UpdateEntryByID(ctx, id, updated); err != nil {
		t.Fatalf("UpdateEntryByID: %v", err)
	}
	entries, _ = s.ReadAllEntries(ctx)
	if entries[0].Amount.Cents != 15000 {
		t.Errorf("update not applied: %+v", entries[0])
	}

	if err := s.DeleteEntryByID(ctx, id); err != nil {
		t.Fatalf("DeleteEntryByID: %v", err)
	}
	if err := s.DeleteEntryByID(ctx, id); !errors.Is(err, core.ErrRowNotFound) {
		t.Errorf("second delete should be ErrRowNotFound, got %v", err)
	}
	if err := s.UpdateEntryByID(ctx, "999", updated); !errors.Is(err, core.ErrRowNotFound) {
		t.Errorf("update of missing row should be ErrRowNotFound, got %v", err)
	}
}

func TestMirrorOutcomes(t *testing.T) {
	ctx := context.Background()
	m := NewMirror()

	res := m.AppendMirrored(ctx, core.LedgerEntry{Description: "C6_AMBOS"})
	if res.Status != ledger.MirrorSuccess || res.Range == "" {
		t.Errorf("append outcome = %+v", res)
	}

	m.FailAppends = true
	res = m.AppendMirrored(ctx, core.LedgerEntry{Description: "C6_DEA"})
	if res.Status != ledger.MirrorError {
		t.Errorf("failed append should report error status, got %+v", res)
	}
	if len(m.Appended) != 1 {
		t.Errorf("failed append must not record the entry")
	}
}
