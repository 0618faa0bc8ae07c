package memory

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"financas/internal/core"
	"financas/internal/ledger"
)

// Store is an in-memory ledger used by tests and the memory backend.
type Store struct {
	mu      sync.Mutex
	entries map[string]core.LedgerEntry
	nextID  int64
}

var _ ledger.Store = (*Store)(nil)

func NewStore() *Store {
	return &Store{entries: make(map[string]core.LedgerEntry)}
}

func (s *Store) AppendEntry(_ context.Context, e core.LedgerEntry) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	id := strconv.FormatInt(s.nextID, 10)
	e.ID = id
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	if e.UpdatedAt.IsZero() {
		e.UpdatedAt = e.CreatedAt
	}
	s.entries[id] = e
	return id, nil
}

func (s *Store) AppendEntries(ctx context.Context, entries []core.LedgerEntry) ([]string, error) {
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		id, err := s.AppendEntry(ctx, e)
		if err != nil {
			return ids, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *Store) UpdateEntryByID(_ context.Context, id string, e core.LedgerEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[id]; !ok {
		return fmt.Errorf("update entry %s: %w", id, core.ErrRowNotFound)
	}
	e.ID = id
	s.entries[id] = e
	return nil
}

func (s *Store) DeleteEntryByID(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[id]; !ok {
		return fmt.Errorf("delete entry %s: %w", id, core.ErrRowNotFound)
	}
	delete(s.entries, id)
	return nil
}

func (s *Store) ReadAllEntries(_ context.Context) ([]core.LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.LedgerEntry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e)
	}
	// Stable order by numeric id for deterministic reads.
	sort.Slice(out, func(i, j int) bool {
		a, _ := strconv.ParseInt(out[i].ID, 10, 64)
		b, _ := strconv.ParseInt(out[j].ID, 10, 64)
		return a < b
	})
	return out, nil
}

// Mirror is an in-memory legacy mirror. FailAppends/FailRemoves let tests
// exercise the best-effort error paths.
type Mirror struct {
	mu          sync.Mutex
	Appended    []core.LedgerEntry
	Removed     []core.LedgerEntry
	FailAppends bool
	FailRemoves bool
}

var _ ledger.LegacyMirror = (*Mirror)(nil)

func NewMirror() *Mirror {
	return &Mirror{}
}

func (m *Mirror) AppendMirrored(_ context.Context, e core.LedgerEntry) ledger.MirrorResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailAppends {
		return ledger.MirrorResult{Status: ledger.MirrorError, Message: "append rejected"}
	}
	m.Appended = append(m.Appended, e)
	return ledger.MirrorResult{
		Status:  ledger.MirrorSuccess,
		Message: "appended",
		Range:   fmt.Sprintf("mem!A%d:K%d", len(m.Appended), len(m.Appended)),
	}
}

func (m *Mirror) RemoveMirrored(_ context.Context, e core.LedgerEntry) ledger.MirrorResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailRemoves {
		return ledger.MirrorResult{Status: ledger.MirrorError, Message: "remove rejected"}
	}
	m.Removed = append(m.Removed, e)
	return ledger.MirrorResult{Status: ledger.MirrorSuccess, Message: "removed"}
}
