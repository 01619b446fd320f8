package exporter

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"qajalicense/internal/license"
)

// CustomerSheet is the worksheet name used by XLSX and Sheets exports
const CustomerSheet = "Customers"

// WriteCustomersXLSX writes a workbook with one Customers sheet
func WriteCustomersXLSX(w io.Writer, customers []license.CustomerRecord) error {
	f := excelize.NewFile()
	defer f.Close()

	// the default sheet is "Sheet1"
	if err := f.SetSheetName(f.GetSheetName(0), CustomerSheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	if err := writeRow(f, 1, CustomerHeaders); err != nil {
		return err
	}
	for i, c := range customers {
		if err := writeRow(f, i+2, CustomerRow(c)); err != nil {
			return err
		}
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err == nil {
		last, _ := excelize.CoordinatesToCellName(len(CustomerHeaders), 1)
		_ = f.SetCellStyle(CustomerSheet, "A1", last, bold)
	}
	_ = f.SetColWidth(CustomerSheet, "A", "G", 22)

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func writeRow(f *excelize.File, row int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	if err := f.SetSheetRow(CustomerSheet, cell, &cells); err != nil {
		return fmt.Errorf("failed to write row %d: %w", row, err)
	}
	return nil
}
