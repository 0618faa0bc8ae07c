package google

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"financas/internal/core"
)

// Column layout of a ledger row:
// A date, B type, C description, D category, E amount, F attribution tag,
// G method, H installments ("2/10" or empty), I payer, J note,
// K created_at, L updated_at.
const lastColumn = "L"

func entryToRow(e core.LedgerEntry) []any {
	installments := ""
	if e.InstallmentTotal > 0 {
		installments = fmt.Sprintf("%d/%d", e.InstallmentNum, e.InstallmentTotal)
	}
	created := ""
	if !e.CreatedAt.IsZero() {
		created = e.CreatedAt.UTC().Format(time.RFC3339)
	}
	updated := ""
	if !e.UpdatedAt.IsZero() {
		updated = e.UpdatedAt.UTC().Format(time.RFC3339)
	}
	return []any{
		e.Date.String(),
		string(e.Type),
		e.Description,
		e.Category,
		e.Amount.DecimalString(),
		string(e.Tag),
		e.Method,
		installments,
		e.Payer,
		e.Note,
		created,
		updated,
	}
}

// rowToEntry parses one sheet row. Returns false for blank or unusable rows.
func rowToEntry(cols []string) (core.LedgerEntry, bool) {
	if len(cols) < 5 {
		return core.LedgerEntry{}, false
	}
	date, err := core.ParseDate(cols[0])
	if err != nil {
		return core.LedgerEntry{}, false
	}
	desc := strings.TrimSpace(safeGet(cols, 2))
	if desc == "" {
		return core.LedgerEntry{}, false
	}
	cents, ok := parseAmountCents(safeGet(cols, 4))
	if !ok {
		return core.LedgerEntry{}, false
	}

	e := core.LedgerEntry{
		Date:        date,
		Type:        core.EntryType(strings.TrimSpace(safeGet(cols, 1))),
		Description: desc,
		Category:    strings.TrimSpace(safeGet(cols, 3)),
		Amount:      core.Money{Cents: cents},
		Tag:         core.Attribution(strings.TrimSpace(safeGet(cols, 5))),
		Method:      strings.TrimSpace(safeGet(cols, 6)),
		Payer:       strings.TrimSpace(safeGet(cols, 8)),
		Note:        strings.TrimSpace(safeGet(cols, 9)),
	}
	e.InstallmentNum, e.InstallmentTotal = parseInstallments(safeGet(cols, 7))
	if t, err := time.Parse(time.RFC3339, strings.TrimSpace(safeGet(cols, 10))); err == nil {
		e.CreatedAt = t
	}
	if t, err := time.Parse(time.RFC3339, strings.TrimSpace(safeGet(cols, 11))); err == nil {
		e.UpdatedAt = t
	}
	return e, true
}

// parseAmountCents converts a sheet cell to cents. Cells may carry decimal
// comma, thousands separators or a currency prefix depending on locale
// formatting in the spreadsheet.
func parseAmountCents(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "R$")
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if strings.Contains(s, ",") {
		// Brazilian formatting: dot thousands, comma decimals.
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, false
	}
	return d.Shift(2).Round(0).IntPart(), true
}

func parseInstallments(s string) (num, total int) {
	parts := strings.SplitN(strings.TrimSpace(s), "/", 2)
	if len(parts) != 2 {
		return 0, 0
	}
	n, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
	t, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err1 != nil || err2 != nil || n <= 0 || t <= 0 {
		return 0, 0
	}
	return n, t
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return arr[idx]
}
