package ledger

import (
	"context"

	"financas/internal/core"
)

// Mirror operation outcomes. Mirror calls are best-effort: the outcome is
// the value, never a Go error, so a mirror failure can never abort a
// primary ledger mutation.
const (
	MirrorSuccess MirrorStatus = "success"
	MirrorError   MirrorStatus = "error"
	MirrorSkipped MirrorStatus = "skipped"
)

type (
	MirrorStatus string

	// MirrorResult reports a single legacy-mirror attempt.
	MirrorResult struct {
		Status  MirrorStatus
		Message string
		Range   string
	}
)

// Ports for outbound adapters.
type (
	// Store is the primary ledger store consumed by the totalizer sync.
	Store interface {
		AppendEntry(ctx context.Context, e core.LedgerEntry) (id string, err error)
		AppendEntries(ctx context.Context, entries []core.LedgerEntry) (ids []string, err error)
		UpdateEntryByID(ctx context.Context, id string, e core.LedgerEntry) error
		DeleteEntryByID(ctx context.Context, id string) error
		ReadAllEntries(ctx context.Context) ([]core.LedgerEntry, error)
	}

	// LegacyMirror keeps the old spreadsheet in sync with ledger mutations.
	LegacyMirror interface {
		AppendMirrored(ctx context.Context, e core.LedgerEntry) MirrorResult
		RemoveMirrored(ctx context.Context, e core.LedgerEntry) MirrorResult
	}
)
