package exporter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"qajalicense/internal/config"
	"qajalicense/internal/infrastructure"
	"qajalicense/internal/license"
)

// ErrSheetsNotConfigured is returned when no spreadsheet is configured
var ErrSheetsNotConfigured = errors.New("google sheets export is not configured")

// SheetsPublisher overwrites a sheet with the customer export
type SheetsPublisher struct {
	service       *sheets.Service
	spreadsheetID string
	sheetName     string
	logger        *slog.Logger
}

// NewSheetsPublisher creates a publisher from configuration. Credentials
// are read from cfg.SheetsCredentials when set; extra client options are
// appended after them.
func NewSheetsPublisher(ctx context.Context, cfg config.ExportConfig, opts ...option.ClientOption) (*SheetsPublisher, error) {
	if cfg.SheetsSpreadsheetID == "" {
		return nil, ErrSheetsNotConfigured
	}

	var clientOpts []option.ClientOption
	if cfg.SheetsCredentials != "" {
		credentialsJSON, err := os.ReadFile(cfg.SheetsCredentials)
		if err != nil {
			return nil, fmt.Errorf("failed to read sheets credentials: %w", err)
		}
		clientOpts = append(clientOpts, option.WithCredentialsJSON(credentialsJSON))
	}
	clientOpts = append(clientOpts, opts...)

	service, err := sheets.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	sheetName := cfg.SheetsSheetName
	if sheetName == "" {
		sheetName = CustomerSheet
	}

	return &SheetsPublisher{
		service:       service,
		spreadsheetID: cfg.SheetsSpreadsheetID,
		sheetName:     sheetName,
		logger:        infrastructure.GetLogger().With(slog.String("component", "sheets_exporter")),
	}, nil
}

// PublishResult describes a completed publish
type PublishResult struct {
	SpreadsheetID string `json:"spreadsheet_id"`
	Range         string `json:"range"`
	Rows          int    `json:"rows"`
}

// Publish clears the sheet and writes headers plus one row per customer
func (p *SheetsPublisher) Publish(ctx context.Context, customers []license.CustomerRecord) (*PublishResult, error) {
	values := make([][]interface{}, 0, len(customers)+1)
	values = append(values, toCells(CustomerHeaders))
	for _, c := range customers {
		values = append(values, toCells(CustomerRow(c)))
	}

	if _, err := p.service.Spreadsheets.Values.Clear(
		p.spreadsheetID,
		p.sheetName,
		&sheets.ClearValuesRequest{},
	).Context(ctx).Do(); err != nil {
		return nil, fmt.Errorf("failed to clear sheet %s: %w", p.sheetName, err)
	}

	rangeStr := fmt.Sprintf("%s!A1", p.sheetName)
	valueRange := &sheets.ValueRange{Values: values}

	resp, err := p.service.Spreadsheets.Values.Update(
		p.spreadsheetID,
		rangeStr,
		valueRange,
	).ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to update sheet %s: %w", p.sheetName, err)
	}

	result := &PublishResult{
		SpreadsheetID: p.spreadsheetID,
		Range:         rangeStr,
		Rows:          len(values),
	}
	if resp != nil && resp.UpdatedRange != "" {
		result.Range = resp.UpdatedRange
	}

	p.logger.InfoContext(ctx, "customers published to sheets",
		slog.String("range", result.Range),
		slog.Int("customers", len(customers)),
	)
	return result, nil
}

func toCells(row []string) []interface{} {
	cells := make([]interface{}, len(row))
	for i, v := range row {
		cells[i] = v
	}
	return cells
}
