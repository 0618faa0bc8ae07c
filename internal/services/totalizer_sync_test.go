package services

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"financas/internal/core"
	"financas/internal/ledger"
	"financas/internal/ledger/memory"
)

func plannedEntry(desc string, cents int64) core.LedgerEntry {
	return core.LedgerEntry{
		Date:        core.NewDate(2026, 2, 28),
		Type:        core.EntryDespesa,
		Description: desc,
		Category:    "Cartão",
		Amount:      core.Money{Cents: cents},
		Tag:         bucketTagFromDesc(desc),
		Method:      core.MethodCartao,
		Payer:       "Walker",
		Note:        core.TotalizerTag("C6", "2026-02"),
	}
}

func bucketTagFromDesc(desc string) core.Attribution {
	parts := strings.SplitN(desc, "_", 2)
	return core.Attribution(parts[1])
}

func TestSyncCreatesNewBuckets(t *testing.T) {
	store := memory.NewStore()
	mirror := memory.NewMirror()
	sync := NewTotalizerSync(store, mirror)

	planned := []core.LedgerEntry{
		plannedEntry("C6_WALKER", 12000),
		plannedEntry("C6_AMBOS", 30000),
	}

	result, err := sync.Run(context.Background(), planned, "C6", "2026-02", false)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Created != 2 || result.Updated != 0 || result.Deleted != 0 || result.Unchanged != 0 {
		t.Fatalf("unexpected counts: %+v", result)
	}
	if len(result.LegacyResults) != 2 {
		t.Fatalf("expected 2 legacy outcomes, got %d", len(result.LegacyResults))
	}
	if len(result.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}

	entries, _ := store.ReadAllEntries(context.Background())
	if len(entries) != 2 {
		t.Fatalf("expected 2 stored entries, got %d", len(entries))
	}
	for _, e := range entries {
		if !strings.Contains(e.Note, "[LEGADO:SUCCESS]") {
			t.Errorf("entry %s note missing legacy status: %q", e.Description, e.Note)
		}
	}
	if len(mirror.Appended) != 2 {
		t.Errorf("expected 2 mirrored appends, got %d", len(mirror.Appended))
	}
}

func TestSyncIdempotent(t *testing.T) {
	store := memory.NewStore()
	sync := NewTotalizerSync(store, memory.NewMirror())
	ctx := context.Background()

	planned := []core.LedgerEntry{
		plannedEntry("C6_WALKER", 12000),
		plannedEntry("C6_AMBOS", 30000),
	}

	if _, err := sync.Run(ctx, planned, "C6", "2026-02", false); err != nil {
		t.Fatalf("first run failed: %v", err)
	}

	second, err := sync.Run(ctx, planned, "C6", "2026-02", false)
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	if second.Created != 0 || second.Updated != 0 || second.Deleted != 0 {
		t.Errorf("rerun with unchanged inputs must be a no-op: %+v", second)
	}
	if second.Unchanged != len(planned) {
		t.Errorf("unchanged = %d, want %d", second.Unchanged, len(planned))
	}
}

func TestSyncUpdatesChangedBucket(t *testing.T) {
	store := memory.NewStore()
	mirror := memory.NewMirror()
	sync := NewTotalizerSync(store, mirror)
	ctx := context.Background()

	// Prior run wrote WALKER at 120.00.
	if _, err := sync.Run(ctx, []core.LedgerEntry{plannedEntry("C6_WALKER", 12000)}, "C6", "2026-02", false); err != nil {
		t.Fatalf("seed run failed: %v", err)
	}

	// Reclassification moved the bucket to 150.00.
	result, err := sync.Run(ctx, []core.LedgerEntry{plannedEntry("C6_WALKER", 15000)}, "C6", "2026-02", false)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Updated != 1 || result.Created != 0 || result.Deleted != 0 {
		t.Fatalf("expected one update, got %+v", result)
	}

	entries, _ := store.ReadAllEntries(ctx)
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].Amount.Cents != 15000 {
		t.Errorf("amount = %d cents, want 15000", entries[0].Amount.Cents)
	}
	if !core.HasTotalizerTag(entries[0].Note, core.TotalizerTag("C6", "2026-02")) {
		t.Errorf("updated note lost the totalizer tag: %q", entries[0].Note)
	}
	// Mirror resync: old row removed, new row appended.
	if len(mirror.Removed) != 1 {
		t.Errorf("expected 1 mirrored removal, got %d", len(mirror.Removed))
	}
	if len(mirror.Appended) != 2 {
		t.Errorf("expected 2 mirrored appends (seed + resync), got %d", len(mirror.Appended))
	}
}

func TestSyncDeletesDroppedAndDuplicateRows(t *testing.T) {
	store := memory.NewStore()
	sync := NewTotalizerSync(store, memory.NewMirror())
	ctx := context.Background()

	now := time.Now()
	tag := core.TotalizerTag("C6", "2026-02")

	// Two duplicate WALKER rows (older one is the duplicate) plus an
	// orphaned DEA bucket no longer planned.
	older := plannedEntry("C6_WALKER", 12000)
	older.CreatedAt = now.Add(-2 * time.Hour)
	older.UpdatedAt = now.Add(-2 * time.Hour)
	newer := plannedEntry("C6_WALKER", 12000)
	newer.CreatedAt = now.Add(-1 * time.Hour)
	newer.UpdatedAt = now
	orphan := plannedEntry("C6_DEA", 5000)
	orphan.CreatedAt = now
	orphan.UpdatedAt = now

	for _, e := range []core.LedgerEntry{older, newer, orphan} {
		if !core.HasTotalizerTag(e.Note, tag) {
			t.Fatalf("seed entry missing tag: %q", e.Note)
		}
		if _, err := store.AppendEntry(ctx, e); err != nil {
			t.Fatalf("seed append failed: %v", err)
		}
	}

	result, err := sync.Run(ctx, []core.LedgerEntry{plannedEntry("C6_WALKER", 12000)}, "C6", "2026-02", false)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Unchanged != 1 {
		t.Errorf("expected primary WALKER row unchanged, got %+v", result)
	}
	if result.Deleted != 2 {
		t.Errorf("expected duplicate + orphan deleted, got %d", result.Deleted)
	}

	entries, _ := store.ReadAllEntries(ctx)
	if len(entries) != 1 {
		t.Fatalf("expected 1 surviving entry, got %d", len(entries))
	}
	if entries[0].Description != "C6_WALKER" || entries[0].Amount.Cents != 12000 {
		t.Errorf("unexpected survivor: %+v", entries[0])
	}
}

func TestSyncDryRunDoesNotMutate(t *testing.T) {
	store := memory.NewStore()
	mirror := memory.NewMirror()
	sync := NewTotalizerSync(store, mirror)
	ctx := context.Background()

	result, err := sync.Run(ctx, []core.LedgerEntry{plannedEntry("C6_WALKER", 12000)}, "C6", "2026-02", true)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Created != 1 {
		t.Errorf("dry run must still count: %+v", result)
	}
	if !result.DryRun {
		t.Error("result must carry the dry-run flag")
	}

	entries, _ := store.ReadAllEntries(ctx)
	if len(entries) != 0 {
		t.Errorf("dry run wrote %d entries", len(entries))
	}
	if len(mirror.Appended) != 0 {
		t.Errorf("dry run mirrored %d appends", len(mirror.Appended))
	}
}

func TestSyncLegacyFailureIsNonFatal(t *testing.T) {
	store := memory.NewStore()
	mirror := memory.NewMirror()
	mirror.FailAppends = true
	sync := NewTotalizerSync(store, mirror)
	ctx := context.Background()

	result, err := sync.Run(ctx, []core.LedgerEntry{plannedEntry("C6_WALKER", 12000)}, "C6", "2026-02", false)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Created != 1 {
		t.Fatalf("primary create must succeed despite mirror failure: %+v", result)
	}
	if len(result.Errors) != 0 {
		t.Fatalf("mirror failure must not be a batch error: %v", result.Errors)
	}
	if len(result.LegacyResults) != 1 || result.LegacyResults[0].Result.Status != ledger.MirrorError {
		t.Fatalf("expected one error-status legacy outcome, got %+v", result.LegacyResults)
	}

	entries, _ := store.ReadAllEntries(ctx)
	if len(entries) != 1 {
		t.Fatalf("expected 1 stored entry, got %d", len(entries))
	}
	if !strings.Contains(entries[0].Note, "[LEGADO:ERROR]") {
		t.Errorf("note missing error status: %q", entries[0].Note)
	}
}

func TestSyncStampsTimestamps(t *testing.T) {
	store := memory.NewStore()
	sync := NewTotalizerSync(store, memory.NewMirror())
	ctx := context.Background()

	if _, err := sync.Run(ctx, []core.LedgerEntry{plannedEntry("C6_WALKER", 12000)}, "C6", "2026-02", false); err != nil {
		t.Fatalf("seed run failed: %v", err)
	}
	entries, _ := store.ReadAllEntries(ctx)
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	created := entries[0]
	if created.CreatedAt.IsZero() || created.UpdatedAt.IsZero() {
		t.Fatalf("created row has zero timestamps: %+v", created)
	}

	if _, err := sync.Run(ctx, []core.LedgerEntry{plannedEntry("C6_WALKER", 15000)}, "C6", "2026-02", false); err != nil {
		t.Fatalf("update run failed: %v", err)
	}
	entries, _ = store.ReadAllEntries(ctx)
	updated := entries[0]
	if updated.UpdatedAt.IsZero() {
		t.Fatal("updated row has zero updated_at")
	}
	if !updated.CreatedAt.Equal(created.CreatedAt) {
		t.Errorf("update must preserve created_at: %v != %v", updated.CreatedAt, created.CreatedAt)
	}
	if !updated.UpdatedAt.After(created.UpdatedAt) && !updated.UpdatedAt.Equal(created.UpdatedAt) {
		t.Errorf("updated_at went backwards: %v < %v", updated.UpdatedAt, created.UpdatedAt)
	}
}

// rejectingStore fails every append so count bookkeeping on primary-store
// failure can be observed.
type rejectingStore struct {
	ledger.Store
}

func (s rejectingStore) AppendEntry(context.Context, core.LedgerEntry) (string, error) {
	return "", fmt.Errorf("append rejected")
}

func TestSyncFailedCreateIsNotCounted(t *testing.T) {
	store := rejectingStore{Store: memory.NewStore()}
	sync := NewTotalizerSync(store, memory.NewMirror())

	result, err := sync.Run(context.Background(), []core.LedgerEntry{plannedEntry("C6_WALKER", 12000)}, "C6", "2026-02", false)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Created != 0 {
		t.Errorf("failed create must not count as created: %+v", result)
	}
	if len(result.Errors) != 1 {
		t.Fatalf("expected 1 row error, got %v", result.Errors)
	}
}
