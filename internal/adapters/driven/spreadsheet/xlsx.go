package spreadsheet

import (
	"errors"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/custodia-labs/certsync/internal/core/ports/driven"
)

// Ensure XLSX implements the interfaces.
var (
	_ driven.SpreadsheetWriter = (*XLSX)(nil)
	_ driven.SpreadsheetReader = (*XLSX)(nil)
)

// defaultSheet is the sheet excelize creates in a new workbook.
const defaultSheet = "Sheet1"

// columnWidth is applied to every written column.
const columnWidth = 20

// XLSX renders and reads Office Open XML workbooks.
type XLSX struct{}

// NewXLSX creates an XLSX adapter.
func NewXLSX() *XLSX {
	return &XLSX{}
}

// Write renders each sheet with a bold header row and streams the
// workbook into w.
func (x *XLSX) Write(w io.Writer, sheets ...driven.Sheet) (err error) {
	if len(sheets) == 0 {
		return errors.New("spreadsheet: no sheets to write")
	}

	f := excelize.NewFile()
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("spreadsheet: header style: %w", err)
	}

	for i, sheet := range sheets {
		if i == 0 {
			if err := f.SetSheetName(defaultSheet, sheet.Name); err != nil {
				return fmt.Errorf("spreadsheet: rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(sheet.Name); err != nil {
			return fmt.Errorf("spreadsheet: add sheet %q: %w", sheet.Name, err)
		}
		if err := writeSheet(f, sheet, header); err != nil {
			return err
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("spreadsheet: write workbook: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet driven.Sheet, headerStyle int) error {
	sw, err := f.NewStreamWriter(sheet.Name)
	if err != nil {
		return fmt.Errorf("spreadsheet: stream %q: %w", sheet.Name, err)
	}

	if len(sheet.Columns) > 0 {
		if err := sw.SetColWidth(1, len(sheet.Columns), columnWidth); err != nil {
			return fmt.Errorf("spreadsheet: column width: %w", err)
		}
	}

	cells := make([]any, len(sheet.Columns))
	for i, c := range sheet.Columns {
		cells[i] = c
	}
	if err := sw.SetRow("A1", cells, excelize.RowOpts{StyleID: headerStyle}); err != nil {
		return fmt.Errorf("spreadsheet: header row: %w", err)
	}

	for i, row := range sheet.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("spreadsheet: row %d: %w", i+2, err)
		}
		if err := sw.SetRow(cell, row); err != nil {
			return fmt.Errorf("spreadsheet: row %d: %w", i+2, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return fmt.Errorf("spreadsheet: flush %q: %w", sheet.Name, err)
	}
	return nil
}

// ReadRows returns every row of the first sheet. Short rows are not padded.
func (x *XLSX) ReadRows(r io.Reader) (rows [][]string, err error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("spreadsheet: open workbook: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("spreadsheet: workbook has no sheets")
	}

	rows, err = f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("spreadsheet: read %q: %w", sheets[0], err)
	}
	return rows, nil
}
