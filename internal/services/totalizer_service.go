package services

import (
	"context"

	"financas/internal/ledger"
	"financas/internal/storage"
)

// TotalizerRunRequest names one totalizer run: which bank/month bucket to
// total, who pays, which ledger category the rows land in, and whether to
// only report the diff.
type TotalizerRunRequest struct {
	Bank     string
	MonthRef string
	CardID   int64
	Payer    string
	Category string
	DryRun   bool
}

// TotalizerService chains the pipeline: compute totals from the movement
// store, refuse while classification is pending, synthesize ledger rows,
// then diff and apply them via the sync.
type TotalizerService struct {
	repo      *storage.Repository
	totalizer Totalizer
	sync      *TotalizerSync
}

func NewTotalizerService(repo *storage.Repository, totalizer Totalizer, store ledger.Store, legacy ledger.LegacyMirror) *TotalizerService {
	return &TotalizerService{
		repo:      repo,
		totalizer: totalizer,
		sync:      NewTotalizerSync(store, legacy),
	}
}

func (s *TotalizerService) Run(ctx context.Context, req TotalizerRunRequest) (SyncResult, error) {
	movements, err := s.repo.ListMovements(ctx)
	if err != nil {
		return SyncResult{}, err
	}

	totals, err := s.totalizer.ComputeTotals(ctx, movements, req.MonthRef, req.Bank, req.CardID)
	if err != nil {
		return SyncResult{}, err
	}

	planned, err := s.totalizer.Synthesize(totals, req.Bank, req.MonthRef, req.Payer, req.Category)
	if err != nil {
		return SyncResult{}, err
	}

	return s.sync.Run(ctx, planned, req.Bank, req.MonthRef, req.DryRun)
}
