package services

import (
	"context"
	"fmt"
	"log/slog"

	"financas/internal/core"
	"financas/internal/storage"
)

// MovementService owns the two-phase statement import: a read-only preview
// and a committing run that persists the novo lines.
type MovementService struct {
	repo *storage.Repository
}

func NewMovementService(repo *storage.Repository) *MovementService {
	return &MovementService{repo: repo}
}

// ImportRunResult extends the preview with the ids of the movements the run
// persisted.
type ImportRunResult struct {
	ReconcileResult
	CreatedIDs []int64
}

// ImportPreview reconciles the lines against the card's movements without
// writing anything. Running it before ImportRun shows the novos/conciliados
// counts the run would produce.
func (s *MovementService) ImportPreview(ctx context.Context, cardID int64, lines []ImportLine) (ReconcileResult, error) {
	card, err := s.repo.GetCard(ctx, cardID)
	if err != nil {
		return ReconcileResult{}, err
	}
	existing, err := s.repo.ListMovementsByCard(ctx, cardID)
	if err != nil {
		return ReconcileResult{}, err
	}
	return Reconcile(card, lines, existing), nil
}

// ImportRun reconciles and persists every novo line as a pendente movement
// carrying one allocation on the card's default tag. monthRef overrides the
// billing bucket for the whole batch; empty means each line posts to its own
// transaction month. ja_lancado lines are never written.
func (s *MovementService) ImportRun(ctx context.Context, cardID int64, lines []ImportLine, monthRef string) (ImportRunResult, error) {
	if monthRef != "" {
		if _, _, err := core.ParseMonthRef(monthRef); err != nil {
			return ImportRunResult{}, err
		}
	}

	card, err := s.repo.GetCard(ctx, cardID)
	if err != nil {
		return ImportRunResult{}, err
	}
	existing, err := s.repo.ListMovementsByCard(ctx, cardID)
	if err != nil {
		return ImportRunResult{}, err
	}

	result := ImportRunResult{ReconcileResult: Reconcile(card, lines, existing)}

	for _, item := range result.Items {
		if item.Status != core.LineNovo {
			continue
		}
		line := item.Line
		bucket := monthRef
		if bucket == "" {
			bucket = line.Date.MonthRef()
		}
		saved, err := s.repo.SaveMovement(ctx, core.Movement{
			CardID:           cardID,
			Date:             line.Date,
			Description:      line.Description,
			Amount:           line.Amount,
			InstallmentTotal: line.InstallmentTotal,
			InstallmentNum:   line.InstallmentNum,
			TxKey:            item.TxKey,
			Origin:           core.OriginFatura,
			Status:           core.StatusPendente,
			MonthRef:         bucket,
			Allocations: []core.Allocation{
				{Tag: card.DefaultTag, Amount: line.Amount},
			},
		})
		if err != nil {
			return result, fmt.Errorf("persist imported line %q: %w", line.Description, err)
		}
		result.CreatedIDs = append(result.CreatedIDs, saved.ID)
	}

	slog.InfoContext(ctx, "Statement import committed",
		"card_id", cardID,
		"total", result.Total,
		"novos", result.Novos,
		"conciliados", result.Conciliados,
		"created", len(result.CreatedIDs))
	return result, nil
}
