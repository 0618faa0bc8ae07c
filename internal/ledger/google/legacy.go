package google

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"financas/internal/core"
	"financas/internal/ledger"

	gsheet "google.golang.org/api/sheets/v4"
)

// Legacy mirrors ledger mutations to the old spreadsheet. Every call makes
// a single attempt and reports the outcome as a MirrorResult; failures are
// never raised as errors so the primary ledger mutation is unaffected.
type Legacy struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

var _ ledger.LegacyMirror = (*Legacy)(nil)

// NewLegacyFromEnv creates the legacy-mirror client.
// Required: LEGACY_SPREADSHEET_ID (empty disables mirroring — every call
// reports skipped). Optional: LEGACY_SHEET_NAME (default "Legado").
func NewLegacyFromEnv(ctx context.Context) (*Legacy, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("LEGACY_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return &Legacy{}, nil
	}
	sheetName := strings.TrimSpace(os.Getenv("LEGACY_SHEET_NAME"))
	if sheetName == "" {
		sheetName = "Legado"
	}
	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return &Legacy{svc: svc, spreadsheetID: spreadsheetID, sheetName: sheetName}, nil
}

func (l *Legacy) AppendMirrored(ctx context.Context, e core.LedgerEntry) ledger.MirrorResult {
	if l.svc == nil {
		return ledger.MirrorResult{Status: ledger.MirrorSkipped, Message: "legacy mirror disabled"}
	}

	rng := fmt.Sprintf("%s!A:%s", l.sheetName, lastColumn)
	vr := &gsheet.ValueRange{Values: [][]any{entryToRow(e)}}
	resp, err := l.svc.Spreadsheets.Values.Append(l.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		slog.WarnContext(ctx, "Legacy mirror append failed",
			"description", e.Description, "error", err)
		return ledger.MirrorResult{Status: ledger.MirrorError, Message: err.Error()}
	}

	written := ""
	if resp.Updates != nil {
		written = resp.Updates.UpdatedRange
	}
	return ledger.MirrorResult{Status: ledger.MirrorSuccess, Message: "appended", Range: written}
}

func (l *Legacy) RemoveMirrored(ctx context.Context, e core.LedgerEntry) ledger.MirrorResult {
	if l.svc == nil {
		return ledger.MirrorResult{Status: ledger.MirrorSkipped, Message: "legacy mirror disabled"}
	}

	row, err := l.findRow(ctx, e)
	if err != nil {
		slog.WarnContext(ctx, "Legacy mirror lookup failed",
			"description", e.Description, "error", err)
		return ledger.MirrorResult{Status: ledger.MirrorError, Message: err.Error()}
	}
	if row == 0 {
		return ledger.MirrorResult{Status: ledger.MirrorSkipped, Message: "mirrored row not found"}
	}

	rng := fmt.Sprintf("%s!A%d:%s%d", l.sheetName, row, lastColumn, row)
	if _, err := l.svc.Spreadsheets.Values.Clear(l.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return ledger.MirrorResult{Status: ledger.MirrorError, Message: err.Error()}
	}
	return ledger.MirrorResult{Status: ledger.MirrorSuccess, Message: "removed", Range: rng}
}

// findRow locates the mirrored row by date, description and amount.
// Returns 0 when no row matches.
func (l *Legacy) findRow(ctx context.Context, e core.LedgerEntry) (int, error) {
	rng := fmt.Sprintf("%s!A%d:%s", l.sheetName, firstDataRow, lastColumn)
	resp, err := l.svc.Spreadsheets.Values.Get(l.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", rng, err)
	}
	for i, row := range resp.Values {
		candidate, ok := rowToEntry(toStrings(row))
		if !ok {
			continue
		}
		if candidate.Description == e.Description &&
			candidate.Date.String() == e.Date.String() &&
			candidate.Amount.Cents == e.Amount.Cents {
			return firstDataRow + i, nil
		}
	}
	return 0, nil
}
