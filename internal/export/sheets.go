package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

var _ Exporter = (*SheetsExporter)(nil)

// SheetsExporter appends month reports to a Google spreadsheet tab.
type SheetsExporter struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

// NewSheetsExporter builds a Sheets client from injected credentials:
// explicit service-account JSON, a credentials file, or Application Default
// Credentials when both are empty.
func NewSheetsExporter(ctx context.Context, spreadsheetID, sheetName, credentialsJSON, credentialsFile string) (*SheetsExporter, error) {
	if spreadsheetID == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	if sheetName == "" {
		sheetName = "Clôtures"
	}

	var opts []goption.ClientOption
	switch {
	case credentialsJSON != "":
		opts = append(opts, goption.WithCredentialsJSON([]byte(credentialsJSON)))
	case credentialsFile != "":
		opts = append(opts, goption.WithCredentialsFile(credentialsFile))
	}
	opts = append(opts, goption.WithScopes(gsheet.SpreadsheetsScope))

	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &SheetsExporter{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
	}, nil
}

// Export appends the report below existing content and returns the updated
// range as the artifact reference.
func (e *SheetsExporter) Export(ctx context.Context, report Report) (string, error) {
	values := make([][]any, 0, len(report.Rows)+2)
	values = append(values, []any{report.Title})

	headers := make([]any, len(report.Headers))
	for i, h := range report.Headers {
		headers[i] = h
	}
	values = append(values, headers)

	for _, row := range report.Rows {
		cells := make([]any, len(row))
		for i, c := range row {
			cells[i] = c
		}
		values = append(values, cells)
	}

	resp, err := e.svc.Spreadsheets.Values.Append(
		e.spreadsheetID,
		e.sheetName+"!A1",
		&gsheet.ValueRange{Values: values},
	).ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append report to sheet %s: %w", e.sheetName, err)
	}

	ref := e.sheetName
	if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		ref = resp.Updates.UpdatedRange
	}
	slog.InfoContext(ctx, "Exported month report",
		"spreadsheet_id", e.spreadsheetID,
		"range", ref,
		"rows", len(values))
	return ref, nil
}
