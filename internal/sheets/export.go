package sheets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"acorn/internal/core"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// SummaryWriter is the outbound port the worker uses to export monthly
// snapshots. The Google adapter below is the only production
// implementation; tests stub it.
type SummaryWriter interface {
	AppendSummary(ctx context.Context, s core.MonthlySummary) error
}

// Client appends monthly summary rows to a Google spreadsheet using
// service account credentials.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

var _ SummaryWriter = (*Client)(nil)

func NewClient(ctx context.Context, spreadsheetID, sheetName, credentialsFile string) (*Client, error) {
	if spreadsheetID == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	if credentialsFile == "" {
		return nil, errors.New("missing service account credentials file")
	}
	if sheetName == "" {
		sheetName = "Summaries"
	}

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsFile(credentialsFile),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
	}, nil
}

// AppendSummary writes one row per snapshot:
// owner, year, month, income, expenses, savings.
func (c *Client) AppendSummary(ctx context.Context, s core.MonthlySummary) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}

	row := []any{
		s.OwnerID,
		s.Year,
		s.Month,
		s.Income.Dollars(),
		s.Expenses.Dollars(),
		s.Savings.Dollars(),
	}
	vr := &gsheet.ValueRange{Values: [][]any{row}}

	rng := fmt.Sprintf("%s!A:F", c.sheetName)
	_, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append to sheet %s: %w", c.sheetName, err)
	}

	slog.InfoContext(ctx, "Exported monthly summary to sheet",
		"owner_id", s.OwnerID, "year", s.Year, "month", s.Month, "sheet", c.sheetName)
	return nil
}
