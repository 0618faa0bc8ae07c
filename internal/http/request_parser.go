// Request payloads and the parsing of user-entered values: dates in
// YYYY-MM-DD, amounts as strings in either Brazilian ("1.234,56") or plain
// decimal ("1234.56") notation, with an optional R$ prefix.

package http

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"financas/internal/core"
	"financas/internal/services"
)

type cardPayload struct {
	ID         int64  `json:"id,omitempty"`
	Bank       string `json:"bank"`
	Holder     string `json:"holder"`
	Last4      string `json:"last4"`
	DefaultTag string `json:"default_tag"`
	Active     bool   `json:"active"`
}

type allocationPayload struct {
	Tag    string `json:"tag"`
	Amount string `json:"amount"`
}

type movementPayload struct {
	ID               int64               `json:"id,omitempty"`
	CardID           int64               `json:"card_id"`
	Date             string              `json:"date"`
	Description      string              `json:"description"`
	Amount           string              `json:"amount"`
	InstallmentTotal int                 `json:"installment_total,omitempty"`
	InstallmentNum   int                 `json:"installment_num,omitempty"`
	Origin           string              `json:"origin"`
	Status           string              `json:"status"`
	MonthRef         string              `json:"month_ref,omitempty"`
	Note             string              `json:"note,omitempty"`
	Allocations      []allocationPayload `json:"allocations,omitempty"`
}

type importLinePayload struct {
	Date             string `json:"date"`
	Description      string `json:"description"`
	Amount           string `json:"amount"`
	InstallmentTotal int    `json:"installment_total,omitempty"`
	InstallmentNum   int    `json:"installment_num,omitempty"`
}

type importPayload struct {
	CardID   int64               `json:"card_id"`
	MonthRef string              `json:"month_ref,omitempty"`
	Lines    []importLinePayload `json:"lines"`
}

type realignPayload struct {
	IDs      []int64 `json:"ids"`
	MonthRef string  `json:"month_ref"`
}

type totalizerPayload struct {
	Bank     string `json:"bank"`
	MonthRef string `json:"month_ref"`
	CardID   int64  `json:"card_id,omitempty"`
	Payer    string `json:"payer,omitempty"`
	Category string `json:"category,omitempty"`
	DryRun   bool   `json:"dry_run,omitempty"`
	Async    bool   `json:"async,omitempty"`
}

// parseAmount converts a user-entered amount string to cents.
func parseAmount(s string) (core.Money, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "R$")
	s = strings.TrimSpace(s)
	if s == "" {
		return core.Money{}, fmt.Errorf("%w: empty amount", core.ErrInvalidAmount)
	}

	// Brazilian notation uses dots for thousands and a comma for decimals.
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return core.Money{}, fmt.Errorf("%w: %q", core.ErrInvalidAmount, s)
	}
	return core.Money{Cents: d.Shift(2).Round(0).IntPart()}, nil
}

func (p cardPayload) toCard() core.Card {
	return core.Card{
		ID:         p.ID,
		Bank:       strings.TrimSpace(p.Bank),
		Holder:     strings.TrimSpace(p.Holder),
		Last4:      strings.TrimSpace(p.Last4),
		DefaultTag: core.Attribution(strings.TrimSpace(p.DefaultTag)),
		Active:     p.Active,
	}
}

func (p movementPayload) toMovement() (core.Movement, error) {
	date, err := core.ParseDate(p.Date)
	if err != nil {
		return core.Movement{}, badRequest("invalid date: " + p.Date)
	}
	amount, err := parseAmount(p.Amount)
	if err != nil {
		return core.Movement{}, err
	}

	m := core.Movement{
		ID:               p.ID,
		CardID:           p.CardID,
		Date:             date,
		Description:      strings.TrimSpace(p.Description),
		Amount:           amount,
		InstallmentTotal: p.InstallmentTotal,
		InstallmentNum:   p.InstallmentNum,
		Origin:           core.Origin(p.Origin),
		Status:           core.MovementStatus(p.Status),
		MonthRef:         strings.TrimSpace(p.MonthRef),
		Note:             p.Note,
	}
	for _, a := range p.Allocations {
		allocAmount, err := parseAmount(a.Amount)
		if err != nil {
			return core.Movement{}, err
		}
		m.Allocations = append(m.Allocations, core.Allocation{
			Tag:    core.Attribution(strings.TrimSpace(a.Tag)),
			Amount: allocAmount,
		})
	}
	return m, nil
}

func (p importPayload) toLines() ([]services.ImportLine, error) {
	if p.CardID <= 0 {
		return nil, badRequest("card_id is required")
	}
	if len(p.Lines) == 0 {
		return nil, badRequest("lines must not be empty")
	}

	lines := make([]services.ImportLine, 0, len(p.Lines))
	for i, lp := range p.Lines {
		date, err := core.ParseDate(lp.Date)
		if err != nil {
			return nil, badRequest(fmt.Sprintf("line %d: invalid date %q", i, lp.Date))
		}
		amount, err := parseAmount(lp.Amount)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i, err)
		}
		lines = append(lines, services.ImportLine{
			Date:             date,
			Description:      strings.TrimSpace(lp.Description),
			Amount:           amount,
			InstallmentTotal: lp.InstallmentTotal,
			InstallmentNum:   lp.InstallmentNum,
		})
	}
	return lines, nil
}
