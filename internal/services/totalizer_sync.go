package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"financas/internal/core"
	"financas/internal/ledger"
)

// Sync actions, reported per mutated ledger row.
const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// LegacyOutcome records one legacy-mirror attempt tied to a ledger mutation.
type LegacyOutcome struct {
	Description string
	Action      string
	Result      ledger.MirrorResult
}

// SyncResult carries the diff counts, per-row mirror outcomes and any
// per-row primary-store failures. Row failures do not abort the batch.
type SyncResult struct {
	Created       int
	Updated       int
	Deleted       int
	Unchanged     int
	DryRun        bool
	LegacyResults []LegacyOutcome
	Errors        []string
}

// TotalizerSync diffs synthesized totalizer rows against the tagged rows a
// previous run wrote and applies the minimal set of ledger mutations,
// mirroring each to the legacy store. Runs for the same (bank, month) bucket
// must not overlap; the totalizer-run queue provides that serialization.
type TotalizerSync struct {
	store  ledger.Store
	legacy ledger.LegacyMirror
}

func NewTotalizerSync(store ledger.Store, legacy ledger.LegacyMirror) *TotalizerSync {
	return &TotalizerSync{store: store, legacy: legacy}
}

// bucketRows are a description's existing tagged rows: the most recent is
// primary, anything older is a duplicate slated for deletion.
type bucketRows struct {
	primary    core.LedgerEntry
	duplicates []core.LedgerEntry
}

// Run computes and (unless dryRun) applies the diff for one bank/month
// bucket. Idempotent: rerunning with unchanged inputs yields zero mutations.
func (s *TotalizerSync) Run(ctx context.Context, planned []core.LedgerEntry, bank, monthRef string, dryRun bool) (SyncResult, error) {
	tag := core.TotalizerTag(bank, monthRef)

	all, err := s.store.ReadAllEntries(ctx)
	if err != nil {
		return SyncResult{}, fmt.Errorf("read ledger entries: %w", err)
	}

	existing := partitionByDescription(filterTagged(all, tag))

	result := SyncResult{DryRun: dryRun}
	plannedDescs := make(map[string]bool, len(planned))

	for _, p := range planned {
		plannedDescs[p.Description] = true
		bucket, ok := existing[p.Description]
		if !ok {
			if dryRun || s.applyCreate(ctx, p, &result) {
				result.Created++
			}
			continue
		}

		if entriesEqual(bucket.primary, p) {
			result.Unchanged++
		} else if dryRun || s.applyUpdate(ctx, bucket.primary, p, tag, &result) {
			result.Updated++
		}

		for _, dup := range bucket.duplicates {
			if dryRun || s.applyDelete(ctx, dup, &result) {
				result.Deleted++
			}
		}
	}

	// Tagged descriptions no longer planned: the bucket dropped out
	// (typically to zero), so every row goes.
	for desc, bucket := range existing {
		if plannedDescs[desc] {
			continue
		}
		for _, e := range append([]core.LedgerEntry{bucket.primary}, bucket.duplicates...) {
			if dryRun || s.applyDelete(ctx, e, &result) {
				result.Deleted++
			}
		}
	}

	slog.InfoContext(ctx, "Totalizer sync finished",
		"bank", bank,
		"month_ref", monthRef,
		"dry_run", dryRun,
		"created", result.Created,
		"updated", result.Updated,
		"deleted", result.Deleted,
		"unchanged", result.Unchanged,
		"errors", len(result.Errors))
	return result, nil
}

// applyCreate reports whether the primary append succeeded; a failed
// mirror-status stamp is recorded but does not undo the create.
func (s *TotalizerSync) applyCreate(ctx context.Context, e core.LedgerEntry, result *SyncResult) bool {
	now := time.Now()
	e.CreatedAt, e.UpdatedAt = now, now
	id, err := s.store.AppendEntry(ctx, e)
	if err != nil {
		result.fail(ActionCreate, e.Description, err)
		return false
	}

	mirror := s.legacy.AppendMirrored(ctx, e)
	result.LegacyResults = append(result.LegacyResults, LegacyOutcome{
		Description: e.Description,
		Action:      ActionCreate,
		Result:      mirror,
	})

	// Stamp the mirror outcome back onto the freshly created row, keeping
	// the timestamps the row was created with.
	e.ID = id
	e.Note = withLegacySuffix(e.Note, mirror)
	if err := s.store.UpdateEntryByID(ctx, id, e); err != nil {
		result.fail(ActionCreate, e.Description, fmt.Errorf("stamp mirror status: %w", err))
	}
	return true
}

func (s *TotalizerSync) applyUpdate(ctx context.Context, old, planned core.LedgerEntry, tag string, result *SyncResult) bool {
	updated := planned
	updated.ID = old.ID
	updated.CreatedAt = old.CreatedAt
	updated.UpdatedAt = time.Now()
	updated.Note = core.EnsureTag(old.Note, tag)

	// Resync the mirror: drop the stale row first, then append the new
	// values. Either step failing degrades to an error status on the note.
	mirror := s.legacy.RemoveMirrored(ctx, old)
	if mirror.Status != ledger.MirrorError {
		mirror = s.legacy.AppendMirrored(ctx, updated)
	}
	result.LegacyResults = append(result.LegacyResults, LegacyOutcome{
		Description: planned.Description,
		Action:      ActionUpdate,
		Result:      mirror,
	})

	updated.Note = withLegacySuffix(updated.Note, mirror)
	if err := s.store.UpdateEntryByID(ctx, old.ID, updated); err != nil {
		result.fail(ActionUpdate, planned.Description, err)
		return false
	}
	return true
}

func (s *TotalizerSync) applyDelete(ctx context.Context, e core.LedgerEntry, result *SyncResult) bool {
	if err := s.store.DeleteEntryByID(ctx, e.ID); err != nil {
		result.fail(ActionDelete, e.Description, err)
		return false
	}
	mirror := s.legacy.RemoveMirrored(ctx, e)
	result.LegacyResults = append(result.LegacyResults, LegacyOutcome{
		Description: e.Description,
		Action:      ActionDelete,
		Result:      mirror,
	})
	return true
}

func (r *SyncResult) fail(action, description string, err error) {
	r.Errors = append(r.Errors, fmt.Sprintf("%s %s: %v", action, description, err))
}

func filterTagged(entries []core.LedgerEntry, tag string) []core.LedgerEntry {
	var tagged []core.LedgerEntry
	for _, e := range entries {
		if core.HasTotalizerTag(e.Note, tag) {
			tagged = append(tagged, e)
		}
	}
	return tagged
}

// partitionByDescription groups tagged rows by description and elects the
// most recently updated (then most recently created) row as primary.
func partitionByDescription(entries []core.LedgerEntry) map[string]bucketRows {
	grouped := map[string][]core.LedgerEntry{}
	for _, e := range entries {
		grouped[e.Description] = append(grouped[e.Description], e)
	}

	buckets := make(map[string]bucketRows, len(grouped))
	for desc, rows := range grouped {
		sort.SliceStable(rows, func(i, j int) bool {
			if !rows[i].UpdatedAt.Equal(rows[j].UpdatedAt) {
				return rows[i].UpdatedAt.After(rows[j].UpdatedAt)
			}
			return rows[i].CreatedAt.After(rows[j].CreatedAt)
		})
		buckets[desc] = bucketRows{primary: rows[0], duplicates: rows[1:]}
	}
	return buckets
}

// entriesEqual compares the fields the sync owns: date, category, amount,
// attribution and payer. Note and timestamps are bookkeeping, not identity.
func entriesEqual(existing, planned core.LedgerEntry) bool {
	return existing.Date.String() == planned.Date.String() &&
		existing.Category == planned.Category &&
		existing.Amount.Cents == planned.Amount.Cents &&
		existing.Tag == planned.Tag &&
		existing.Payer == planned.Payer
}

func withLegacySuffix(note string, mirror ledger.MirrorResult) string {
	suffix := core.LegacyStatusSuffix(string(mirror.Status), mirror.Message, mirror.Range)
	if note == "" {
		return suffix
	}
	return note + " " + suffix
}
