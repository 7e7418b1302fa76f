// Package google is the Google Sheets adapter for the monthly bill report.
// Rows are keyed by bill id in column A so sync and delete events from the
// worker stay idempotent.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"contas/internal/core"
	ports "contas/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	// Base name without year (e.g. "Contas"); code prefixes the year.
	billsBase string
}

// Ensure interface conformance
var (
	_ ports.BillWriter  = (*Client)(nil)
	_ ports.BillDeleter = (*Client)(nil)
)

// NewFromEnv creates a Sheets client using environment variables.
// Required: GOOGLE_SPREADSHEET_ID
// Auth: GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or
// GOOGLE_APPLICATION_CREDENTIALS.
// Optional: GOOGLE_SHEET_NAME (default "Contas").
func NewFromEnv(ctx context.Context) (*Client, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	billsBase := strings.TrimSpace(os.Getenv("GOOGLE_SHEET_NAME"))
	if billsBase == "" {
		billsBase = "Contas"
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		billsBase:     billsBase,
	}, nil
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
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

	slog.InfoContext(ctx, "Google Sheets service created")
	return service, nil
}

// sheetName returns the year-scoped report sheet, e.g. "2026 Contas".
func (c *Client) sheetName(year int) string {
	return fmt.Sprintf("%d %s", year, c.billsBase)
}

// Append writes one bill row: id, due date, description, amount, status,
// payment date, bank, method. An existing row with the same id is updated
// in place so replayed sync events stay idempotent.
func (c *Client) Append(ctx context.Context, b core.Bill) (string, error) {
	if err := b.Validate(); err != nil {
		return "", fmt.Errorf("validation failed: %w", err)
	}
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	sheet := c.sheetName(b.DueDate.Year())
	row, err := c.findRowByID(ctx, sheet, b.ID)
	if err != nil {
		return "", err
	}
	if row == 0 {
		rng := fmt.Sprintf("%s!A:A", sheet)
		resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
		if err != nil {
			return "", fmt.Errorf("get sheet dimensions for %s: %w", sheet, err)
		}
		row = len(resp.Values) + 1
	}

	dataRange := fmt.Sprintf("%s!A%d:H%d", sheet, row, row)
	vr := &gsheet.ValueRange{Values: [][]any{{
		b.ID,
		b.DueDate.String(),
		b.Description,
		b.Amount.Float64(),
		string(b.Status),
		b.PaymentDate.String(),
		b.Bank,
		string(b.Method),
	}}}

	if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, dataRange, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do(); err != nil {
		return "", fmt.Errorf("write row in sheet %s: %w", sheet, err)
	}

	return dataRange, nil
}

// DeleteBill clears the row holding the given bill id. The id lives in
// column A of every year sheet; the current and previous year are searched.
func (c *Client) DeleteBill(ctx context.Context, id string) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}

	year := time.Now().Year()
	for _, y := range []int{year, year - 1} {
		sheet := c.sheetName(y)
		row, err := c.findRowByID(ctx, sheet, id)
		if err != nil {
			return err
		}
		if row == 0 {
			continue
		}
		rng := fmt.Sprintf("%s!A%d:H%d", sheet, row, row)
		if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).
			Context(ctx).Do(); err != nil {
			return fmt.Errorf("clear row %s: %w", rng, err)
		}
		return nil
	}

	// Already absent: deletion is idempotent.
	slog.DebugContext(ctx, "Bill row not found in report sheet", "id", id)
	return nil
}

// findRowByID returns the 1-based row of the id in column A, or 0 when the
// id (or the whole sheet) is missing.
func (c *Client) findRowByID(ctx context.Context, sheet, id string) (int, error) {
	rng := fmt.Sprintf("%s!A:A", sheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		if strings.Contains(err.Error(), "Unable to parse range") {
			return 0, nil
		}
		return 0, fmt.Errorf("read %s: %w", rng, err)
	}
	for i, row := range resp.Values {
		if len(row) > 0 && strings.TrimSpace(fmt.Sprint(row[0])) == id {
			return i + 1, nil
		}
	}
	return 0, nil
}
