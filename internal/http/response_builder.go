// Response shaping. Amounts leave the API as fixed two-decimal strings so
// clients never see floating point drift.

package http

import (
	"time"

	"financas/internal/core"
	"financas/internal/services"
)

type cardResponse struct {
	ID         int64  `json:"id"`
	Bank       string `json:"bank"`
	Holder     string `json:"holder"`
	Last4      string `json:"last4"`
	DefaultTag string `json:"default_tag"`
	Active     bool   `json:"active"`
	CreatedAt  string `json:"created_at,omitempty"`
	UpdatedAt  string `json:"updated_at,omitempty"`
}

type allocationResponse struct {
	ID     int64  `json:"id"`
	Tag    string `json:"tag"`
	Amount string `json:"amount"`
}

type movementResponse struct {
	ID               int64                `json:"id"`
	CardID           int64                `json:"card_id"`
	Card             *cardResponse        `json:"card,omitempty"`
	Date             string               `json:"date"`
	Description      string               `json:"description"`
	Amount           string               `json:"amount"`
	InstallmentTotal int                  `json:"installment_total"`
	InstallmentNum   int                  `json:"installment_num"`
	TxKey            string               `json:"tx_key"`
	Origin           string               `json:"origin"`
	Status           string               `json:"status"`
	MonthRef         string               `json:"month_ref"`
	Note             string               `json:"note,omitempty"`
	Allocations      []allocationResponse `json:"allocations"`
}

type previewItemResponse struct {
	Date        string `json:"date"`
	Description string `json:"description"`
	Amount      string `json:"amount"`
	TxKey       string `json:"tx_key"`
	Status      string `json:"status"`
	MovementID  int64  `json:"movement_id,omitempty"`
	Fuzzy       bool   `json:"fuzzy,omitempty"`
}

type reconcileResponse struct {
	Items       []previewItemResponse `json:"items"`
	Total       int                   `json:"total"`
	Novos       int                   `json:"novos"`
	Conciliados int                   `json:"conciliados"`
	CreatedIDs  []int64               `json:"created_ids,omitempty"`
}

type legacyOutcomeResponse struct {
	Description string `json:"description"`
	Action      string `json:"action"`
	Status      string `json:"status"`
	Message     string `json:"message,omitempty"`
	Range       string `json:"range,omitempty"`
}

type syncResponse struct {
	Created       int                     `json:"created"`
	Updated       int                     `json:"updated"`
	Deleted       int                     `json:"deleted"`
	Unchanged     int                     `json:"unchanged"`
	DryRun        bool                    `json:"dry_run"`
	LegacyResults []legacyOutcomeResponse `json:"legacy_results"`
	Errors        []string                `json:"errors,omitempty"`
}

func buildCardResponse(c core.Card) cardResponse {
	return cardResponse{
		ID:         c.ID,
		Bank:       c.Bank,
		Holder:     c.Holder,
		Last4:      c.Last4,
		DefaultTag: string(c.DefaultTag),
		Active:     c.Active,
		CreatedAt:  formatTimestamp(c.CreatedAt),
		UpdatedAt:  formatTimestamp(c.UpdatedAt),
	}
}

func buildMovementResponse(m core.Movement) movementResponse {
	resp := movementResponse{
		ID:               m.ID,
		CardID:           m.CardID,
		Date:             m.Date.String(),
		Description:      m.Description,
		Amount:           m.Amount.DecimalString(),
		InstallmentTotal: m.InstallmentTotal,
		InstallmentNum:   m.InstallmentNum,
		TxKey:            m.TxKey,
		Origin:           string(m.Origin),
		Status:           string(m.Status),
		MonthRef:         m.MonthRef,
		Note:             m.Note,
		Allocations:      make([]allocationResponse, 0, len(m.Allocations)),
	}
	if m.Card != nil {
		card := buildCardResponse(*m.Card)
		resp.Card = &card
	}
	for _, a := range m.Allocations {
		resp.Allocations = append(resp.Allocations, allocationResponse{
			ID:     a.ID,
			Tag:    string(a.Tag),
			Amount: a.Amount.DecimalString(),
		})
	}
	return resp
}

func buildReconcileResponse(result services.ReconcileResult, createdIDs []int64) reconcileResponse {
	resp := reconcileResponse{
		Items:       make([]previewItemResponse, 0, len(result.Items)),
		Total:       result.Total,
		Novos:       result.Novos,
		Conciliados: result.Conciliados,
		CreatedIDs:  createdIDs,
	}
	for _, item := range result.Items {
		resp.Items = append(resp.Items, previewItemResponse{
			Date:        item.Line.Date.String(),
			Description: item.Line.Description,
			Amount:      item.Line.Amount.DecimalString(),
			TxKey:       item.TxKey,
			Status:      string(item.Status),
			MovementID:  item.MovementID,
			Fuzzy:       item.Fuzzy,
		})
	}
	return resp
}

func buildSyncResponse(result services.SyncResult) syncResponse {
	resp := syncResponse{
		Created:       result.Created,
		Updated:       result.Updated,
		Deleted:       result.Deleted,
		Unchanged:     result.Unchanged,
		DryRun:        result.DryRun,
		LegacyResults: make([]legacyOutcomeResponse, 0, len(result.LegacyResults)),
		Errors:        result.Errors,
	}
	for _, lr := range result.LegacyResults {
		resp.LegacyResults = append(resp.LegacyResults, legacyOutcomeResponse{
			Description: lr.Description,
			Action:      lr.Action,
			Status:      string(lr.Result.Status),
			Message:     lr.Result.Message,
			Range:       lr.Result.Range,
		})
	}
	return resp
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
