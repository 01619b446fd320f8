package exporter

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"qajalicense/internal/license"
)

// utf8BOM helps Excel recognize UTF-8
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CustomerHeaders are the export column titles
var CustomerHeaders = []string{
	"License Key",
	"Email",
	"Phone",
	"Business",
	"License Type",
	"Activated At",
	"Last Validation",
}

// timestampLayout matches the timestamps stored in the license document
const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

// CustomerRow flattens one record into export columns. Missing contact
// fields become empty cells.
func CustomerRow(c license.CustomerRecord) []string {
	return []string{
		c.LicenseKey,
		c.Email,
		c.Phone,
		c.Business,
		string(c.LicenseType),
		formatTime(c.ActivatedAt),
		formatTime(c.LastValidation),
	}
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format(timestampLayout)
}

// CSVWriter provides CSV export functionality
type CSVWriter struct {
	bom bool
}

// NewCSVWriter creates a writer that prefixes output with a UTF-8 BOM
func NewCSVWriter() *CSVWriter {
	return &CSVWriter{bom: true}
}

// WriteOptions configures CSV writing behavior
type WriteOptions struct {
	Headers   []string
	Records   [][]string
	BOMPrefix bool
}

// Write writes headers and records to w
func (cw *CSVWriter) Write(w io.Writer, options WriteOptions) error {
	if options.BOMPrefix {
		if _, err := w.Write(utf8BOM); err != nil {
			return fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	writer := csv.NewWriter(w)
	if len(options.Headers) > 0 {
		if err := writer.Write(options.Headers); err != nil {
			return fmt.Errorf("failed to write headers: %w", err)
		}
	}
	for i, record := range options.Records {
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteCustomers writes the customer export as CSV
func (cw *CSVWriter) WriteCustomers(w io.Writer, customers []license.CustomerRecord) error {
	records := make([][]string, 0, len(customers))
	for _, c := range customers {
		records = append(records, CustomerRow(c))
	}
	return cw.Write(w, WriteOptions{
		Headers:   CustomerHeaders,
		Records:   records,
		BOMPrefix: cw.bom,
	})
}
