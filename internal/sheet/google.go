package sheet

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	appLog "improvfest/internal/log"
)

// GoogleSource reads tabs from a Google Sheets spreadsheet.
type GoogleSource struct {
	svc           *sheets.Service
	spreadsheetID string
}

// GoogleOptions selects how the Sheets API client authenticates. When both are
// set, CredentialsFile wins.
type GoogleOptions struct {
	SpreadsheetID   string
	CredentialsFile string
	APIKey          string
}

func NewGoogleSource(ctx context.Context, opts GoogleOptions) (*GoogleSource, error) {
	if opts.SpreadsheetID == "" {
		return nil, errors.New("sheet: spreadsheet ID is empty")
	}

	clientOpts := []option.ClientOption{
		option.WithScopes(sheets.SpreadsheetsReadonlyScope),
	}
	switch {
	case opts.CredentialsFile != "":
		clientOpts = append(clientOpts, option.WithCredentialsFile(opts.CredentialsFile))
	case opts.APIKey != "":
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}

	svc, err := sheets.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("sheet: create sheets client: %w", err)
	}
	return &GoogleSource{svc: svc, spreadsheetID: opts.SpreadsheetID}, nil
}

// Fetch returns the formatted values of the whole tab named label.
func (s *GoogleSource) Fetch(ctx context.Context, label string) ([][]string, error) {
	resp, err := s.svc.Spreadsheets.Values.
		Get(s.spreadsheetID, quoteSheetName(label)).
		ValueRenderOption("FORMATTED_VALUE").
		Context(ctx).
		Do()
	if err != nil {
		return nil, &FetchError{Label: label, Err: err}
	}

	rows := make([][]string, len(resp.Values))
	for i, raw := range resp.Values {
		row := make([]string, len(raw))
		for j, cell := range raw {
			if cell == nil {
				continue
			}
			row[j] = fmt.Sprint(cell)
		}
		rows[i] = row
	}

	appLog.Debug("sheet fetched", "label", label, "rows", len(rows))
	return rows, nil
}

// quoteSheetName turns a tab name into an A1 range covering the whole tab.
// Names such as "AUSTRALASIA/PACIFIC" must be quoted.
func quoteSheetName(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}
