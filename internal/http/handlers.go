package http

import (
	"fmt"
	"net/http"
	"strconv"

	"financas/internal/amqp"
	"financas/internal/core"
	"financas/internal/services"
)

func (s *Server) handleListCards(w http.ResponseWriter, r *http.Request) {
	cards, err := s.repo.ListCards(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	resp := make([]cardResponse, 0, len(cards))
	for _, c := range cards {
		resp = append(resp, buildCardResponse(c))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSaveCard(w http.ResponseWriter, r *http.Request) {
	var payload cardPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, r, err)
		return
	}

	saved, err := s.repo.SaveCard(r.Context(), payload.toCard())
	if err != nil {
		writeError(w, r, err)
		return
	}

	status := http.StatusOK
	if payload.ID == 0 {
		status = http.StatusCreated
	}
	writeJSON(w, status, buildCardResponse(saved))
}

func (s *Server) handleDeleteCard(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.repo.DeleteCard(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListMovements(w http.ResponseWriter, r *http.Request) {
	var (
		movements []core.Movement
		err       error
	)
	if param := r.URL.Query().Get("card_id"); param != "" {
		cardID, parseErr := strconv.ParseInt(param, 10, 64)
		if parseErr != nil || cardID <= 0 {
			writeError(w, r, badRequest("invalid card_id"))
			return
		}
		movements, err = s.repo.ListMovementsByCard(r.Context(), cardID)
	} else {
		movements, err = s.repo.ListMovements(r.Context())
	}
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := make([]movementResponse, 0, len(movements))
	for _, m := range movements {
		resp = append(resp, buildMovementResponse(m))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSaveMovement(w http.ResponseWriter, r *http.Request) {
	var payload movementPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, r, err)
		return
	}

	movement, err := payload.toMovement()
	if err != nil {
		writeError(w, r, err)
		return
	}

	saved, err := s.repo.SaveMovement(r.Context(), movement)
	if err != nil {
		writeError(w, r, err)
		return
	}

	status := http.StatusOK
	if payload.ID == 0 {
		status = http.StatusCreated
	}
	writeJSON(w, status, buildMovementResponse(saved))
}

func (s *Server) handleDeleteMovement(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.repo.DeleteMovement(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRealignMonthRef(w http.ResponseWriter, r *http.Request) {
	var payload realignPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, r, err)
		return
	}
	if len(payload.IDs) == 0 {
		writeError(w, r, badRequest("ids must not be empty"))
		return
	}

	changed, err := s.repo.RealignMonthRef(r.Context(), payload.IDs, payload.MonthRef)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"month_ref": payload.MonthRef,
		"requested": len(payload.IDs),
		"changed":   changed,
	})
}

func (s *Server) handleImportPreview(w http.ResponseWriter, r *http.Request) {
	var payload importPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, r, err)
		return
	}
	lines, err := payload.toLines()
	if err != nil {
		writeError(w, r, err)
		return
	}

	result, err := s.movements.ImportPreview(r.Context(), payload.CardID, lines)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, buildReconcileResponse(result, nil))
}

func (s *Server) handleImportRun(w http.ResponseWriter, r *http.Request) {
	var payload importPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, r, err)
		return
	}
	lines, err := payload.toLines()
	if err != nil {
		writeError(w, r, err)
		return
	}

	result, err := s.movements.ImportRun(r.Context(), payload.CardID, lines, payload.MonthRef)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, buildReconcileResponse(result.ReconcileResult, result.CreatedIDs))
}

func (s *Server) handleTotalizerRun(w http.ResponseWriter, r *http.Request) {
	var payload totalizerPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, r, err)
		return
	}
	if payload.Bank == "" || payload.MonthRef == "" {
		writeError(w, r, badRequest("bank and month_ref are required"))
		return
	}

	if payload.Payer == "" {
		payload.Payer = s.defaultPayer
	}
	if payload.Category == "" {
		payload.Category = s.defaultCategory
	}

	if payload.Async {
		if s.publisher == nil {
			writeError(w, r, badRequest("async runs need a configured queue"))
			return
		}
		msg := amqp.NewTotalizerRunMessage(payload.Bank, payload.MonthRef, payload.Payer, payload.Category, payload.CardID, payload.DryRun)
		if err := s.publisher.PublishTotalizerRun(r.Context(), msg); err != nil {
			writeError(w, r, fmt.Errorf("enqueue totalizer run: %w", err))
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]string{
			"status":    "enqueued",
			"bank":      payload.Bank,
			"month_ref": payload.MonthRef,
		})
		return
	}

	result, err := s.totalizer.Run(r.Context(), services.TotalizerRunRequest{
		Bank:     payload.Bank,
		MonthRef: payload.MonthRef,
		CardID:   payload.CardID,
		Payer:    payload.Payer,
		Category: payload.Category,
		DryRun:   payload.DryRun,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, buildSyncResponse(result))
}
