package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"financas/internal/amqp"
	"financas/internal/services"
)

// TotalizerWorker consumes totalizer run requests from the queue and executes
// them one at a time. The single consumer is what serializes runs per
// (bank, month) bucket.
type TotalizerWorker struct {
	totalizer *services.TotalizerService
}

func NewTotalizerWorker(totalizer *services.TotalizerService) *TotalizerWorker {
	return &TotalizerWorker{totalizer: totalizer}
}

// HandleRunMessage executes one totalizer run requested over AMQP. A
// PendingClassification condition is terminal for the message: requeueing
// would spin until someone classifies the movements, so it is logged and
// dropped.
func (w *TotalizerWorker) HandleRunMessage(ctx context.Context, msg *amqp.TotalizerRunMessage) error {
	result, err := w.totalizer.Run(ctx, services.TotalizerRunRequest{
		Bank:     msg.Bank,
		MonthRef: msg.MonthRef,
		CardID:   msg.CardID,
		Payer:    msg.Payer,
		Category: msg.Category,
		DryRun:   msg.DryRun,
	})
	if err != nil {
		var pendErr *services.PendingClassificationError
		if errors.As(err, &pendErr) {
			slog.WarnContext(ctx, "Totalizer run blocked by pending classification",
				"bank", msg.Bank,
				"month_ref", msg.MonthRef,
				"pendentes", pendErr.Count)
			return nil
		}
		return fmt.Errorf("totalizer run for %s %s: %w", msg.Bank, msg.MonthRef, err)
	}

	slog.InfoContext(ctx, "Totalizer run completed",
		"bank", msg.Bank,
		"month_ref", msg.MonthRef,
		"created", result.Created,
		"updated", result.Updated,
		"deleted", result.Deleted,
		"unchanged", result.Unchanged,
		"row_errors", len(result.Errors))
	return nil
}
