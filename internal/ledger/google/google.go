package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"financas/internal/core"
	"financas/internal/ledger"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Client is the Google Sheets adapter for the primary ledger store. Each
// ledger entry occupies one row; the row number is the entry id. Deleted
// rows are blanked rather than removed so row ids of later entries stay
// stable.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

var _ ledger.Store = (*Client)(nil)

// First data row; row 1 is the header.
const firstDataRow = 2

// NewFromEnv creates the ledger client using environment variables and
// service-account credentials.
// Required: LEDGER_SPREADSHEET_ID.
// Optional: LEDGER_SHEET_NAME (default "Lancamentos").
func NewFromEnv(ctx context.Context) (*Client, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("LEDGER_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing LEDGER_SPREADSHEET_ID")
	}
	sheetName := strings.TrimSpace(os.Getenv("LEDGER_SHEET_NAME"))
	if sheetName == "" {
		sheetName = "Lancamentos"
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{svc: svc, spreadsheetID: spreadsheetID, sheetName: sheetName}, nil
}

// newSheetsService initializes a Sheets Service using Service Account
// credentials from GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE
// or GOOGLE_APPLICATION_CREDENTIALS.
func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error
	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

func (c *Client) AppendEntry(ctx context.Context, e core.LedgerEntry) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	// Find the next empty row by reading the date column.
	rng := fmt.Sprintf("%s!A:A", c.sheetName)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("get sheet dimensions for %s: %w", c.sheetName, err)
	}
	nextRow := len(resp.Values) + 1
	if nextRow < firstDataRow {
		nextRow = firstDataRow
	}

	if err := c.writeRow(ctx, nextRow, e); err != nil {
		return "", err
	}

	id := strconv.Itoa(nextRow)
	slog.InfoContext(ctx, "Ledger entry appended",
		"id", id,
		"description", e.Description,
		"amount", e.Amount.DecimalString())
	return id, nil
}

func (c *Client) AppendEntries(ctx context.Context, entries []core.LedgerEntry) ([]string, error) {
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		id, err := c.AppendEntry(ctx, e)
		if err != nil {
			return ids, fmt.Errorf("append entry %q: %w", e.Description, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (c *Client) UpdateEntryByID(ctx context.Context, id string, e core.LedgerEntry) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	row, err := rowFromID(id)
	if err != nil {
		return err
	}
	return c.writeRow(ctx, row, e)
}

func (c *Client) DeleteEntryByID(ctx context.Context, id string) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	row, err := rowFromID(id)
	if err != nil {
		return err
	}
	rng := fmt.Sprintf("%s!A%d:%s%d", c.sheetName, row, lastColumn, row)
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear row %s: %w", rng, err)
	}
	return nil
}

func (c *Client) ReadAllEntries(ctx context.Context) ([]core.LedgerEntry, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	rng := fmt.Sprintf("%s!A%d:%s", c.sheetName, firstDataRow, lastColumn)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}

	var out []core.LedgerEntry
	for i, row := range resp.Values {
		e, ok := rowToEntry(toStrings(row))
		if !ok {
			// Blanked or malformed rows are skipped; row ids stay stable.
			continue
		}
		e.ID = strconv.Itoa(firstDataRow + i)
		out = append(out, e)
	}
	return out, nil
}

func (c *Client) writeRow(ctx context.Context, row int, e core.LedgerEntry) error {
	rng := fmt.Sprintf("%s!A%d:%s%d", c.sheetName, row, lastColumn, row)
	vr := &gsheet.ValueRange{Values: [][]any{entryToRow(e)}}
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("update %s: %w", rng, err)
	}
	return nil
}

func rowFromID(id string) (int, error) {
	row, err := strconv.Atoi(strings.TrimSpace(id))
	if err != nil || row < firstDataRow {
		return 0, fmt.Errorf("invalid ledger row id %q: %w", id, core.ErrRowNotFound)
	}
	return row, nil
}
