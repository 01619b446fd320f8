// Package exporter renders the activated-customer list for download and
// publishing.
//
// All exports share the same columns:
//
//	License Key, Email, Phone, Business, License Type, Activated At, Last Validation
//
// CSVWriter writes a UTF-8 CSV with a byte order mark so spreadsheet tools
// detect the encoding. WriteCustomersXLSX builds a single-sheet workbook.
// SheetsPublisher overwrites a Google Sheets range with the same rows.
//
// Example usage:
//
//	records, _ := manager.Customers(ctx)
//	w := exporter.NewCSVWriter()
//	err := w.WriteCustomers(rw, records)
package exporter
