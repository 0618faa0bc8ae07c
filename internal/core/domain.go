package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Attribution tags decide how a movement's cost is shared between the two
// household members.
const (
	Walker Attribution = "WALKER"
	Dea    Attribution = "DEA"
	Ambos  Attribution = "AMBOS"
	AmbosI Attribution = "AMBOS_I"
)

// Movement classification lifecycle.
const (
	StatusPendente   MovementStatus = "pendente"
	StatusConciliado MovementStatus = "conciliado"
)

// Movement origin.
const (
	OriginManual Origin = "manual"
	OriginFatura Origin = "fatura"
)

// Reconciliation outcome for a single imported statement line.
const (
	LineNovo      LineStatus = "novo"
	LineJaLancado LineStatus = "ja_lancado"
)

// Ledger entry types.
const (
	EntryDespesa EntryType = "despesa"
	EntryReceita EntryType = "receita"
)

// MethodCartao is the payment method stamped on totalizer-synthesized entries.
const MethodCartao = "cartao"

type (
	Attribution    string
	MovementStatus string
	Origin         string
	LineStatus     string
	EntryType      string

	Date struct {
		time.Time
	}

	// Card is an issuing card; movements belong to exactly one card.
	Card struct {
		ID         int64
		Bank       string
		Holder     string
		Last4      string
		DefaultTag Attribution
		Active     bool
		CreatedAt  time.Time
		UpdatedAt  time.Time
	}

	// Movement is a single card transaction, manual or imported.
	Movement struct {
		ID               int64
		CardID           int64
		Card             *Card
		Date             Date
		Description      string
		Amount           Money
		InstallmentTotal int
		InstallmentNum   int
		TxKey            string
		Origin           Origin
		Status           MovementStatus
		// MonthRef is the billing-month bucket ("2026-02"), independent of
		// the transaction date.
		MonthRef    string
		Note        string
		CreatedAt   time.Time
		UpdatedAt   time.Time
		Allocations []Allocation
	}

	// Allocation assigns a slice of a movement's amount to one attribution
	// tag. The amounts of a movement's allocations are expected to sum to
	// the movement amount.
	Allocation struct {
		ID         int64
		MovementID int64
		Tag        Attribution
		Amount     Money
	}

	// LedgerEntry is a row in the external ledger store. Totalizer rows are
	// identified by a note tag plus description, not by row ID.
	LedgerEntry struct {
		ID               string
		Date             Date
		Type             EntryType
		Description      string
		Category         string
		Amount           Money
		Tag              Attribution
		Method           string
		InstallmentTotal int
		InstallmentNum   int
		Payer            string
		Note             string
		CreatedAt        time.Time
		UpdatedAt        time.Time
	}
)

var (
	ErrCardNotFound     = errors.New("card not found")
	ErrRowNotFound      = errors.New("row not found")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrEmptyDescription = errors.New("empty description")
	ErrInvalidMonthRef  = errors.New("invalid month reference")
)

// ValidAttribution reports whether tag is one of the closed attribution set.
func ValidAttribution(tag Attribution) bool {
	switch tag {
	case Walker, Dea, Ambos, AmbosI:
		return true
	}
	return false
}

// NewDate creates a Date from year, month, day at UTC midnight.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD date string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return Date{}, err
	}
	return Date{Time: t}, nil
}

// String renders the date as YYYY-MM-DD.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format("2006-01-02")
}

// MonthRef renders the date's own YYYY-MM bucket.
func (d Date) MonthRef() string {
	if d.IsZero() {
		return ""
	}
	return d.Format("2006-01")
}

// ParseMonthRef validates a YYYY-MM bucket and returns its year and month.
func ParseMonthRef(s string) (year int, month time.Month, err error) {
	t, err := time.Parse("2006-01", strings.TrimSpace(s))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidMonthRef, s)
	}
	return t.Year(), t.Month(), nil
}

// LastDayOfMonth returns the last calendar day of a YYYY-MM bucket.
func LastDayOfMonth(monthRef string) (Date, error) {
	year, month, err := ParseMonthRef(monthRef)
	if err != nil {
		return Date{}, err
	}
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return Date{Time: first.AddDate(0, 1, -1)}, nil
}

func (c Card) Validate() error {
	if strings.TrimSpace(c.Bank) == "" {
		return errors.New("empty bank")
	}
	if strings.TrimSpace(c.Holder) == "" {
		return errors.New("empty holder")
	}
	if !ValidAttribution(c.DefaultTag) {
		return fmt.Errorf("invalid default tag %q", c.DefaultTag)
	}
	return nil
}

func (m Movement) Validate() error {
	if m.CardID <= 0 {
		return ErrCardNotFound
	}
	if m.Date.IsZero() {
		return errors.New("date cannot be zero")
	}
	if len(strings.TrimSpace(m.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(m.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	if m.MonthRef != "" {
		if _, _, err := ParseMonthRef(m.MonthRef); err != nil {
			return err
		}
	}
	switch m.Status {
	case StatusPendente, StatusConciliado:
	default:
		return fmt.Errorf("invalid status %q", m.Status)
	}
	switch m.Origin {
	case OriginManual, OriginFatura:
	default:
		return fmt.Errorf("invalid origin %q", m.Origin)
	}
	for _, a := range m.Allocations {
		if !ValidAttribution(a.Tag) {
			return fmt.Errorf("invalid allocation tag %q", a.Tag)
		}
	}
	return nil
}

// FullyClassified reports whether the movement is conciliado with every
// allocation carrying a resolved attribution.
func (m Movement) FullyClassified() bool {
	if m.Status != StatusConciliado {
		return false
	}
	for _, a := range m.Allocations {
		if !ValidAttribution(a.Tag) {
			return false
		}
	}
	return true
}
