package storage

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"

	"sheetlab/internal/grid"
	"sheetlab/internal/value"
)

// SaveXLSX writes sheet to the first worksheet of a new workbook. Formulas
// are stored as formulas and numeric input as numbers.
func SaveXLSX(sheet grid.Sheet, filename string) error {
	f := excelize.NewFile()
	defer f.Close()
	name := f.GetSheetName(0)

	for _, addr := range sheet.Addresses() {
		cell := sheet[addr]
		if cell.RawInput == "" {
			continue
		}
		ref, err := excelize.CoordinatesToCellName(addr.ColIndex()+1, addr.Row)
		if err != nil {
			return err
		}
		switch n, isNum := value.ParseNumber(cell.RawInput); {
		case cell.IsFormula():
			err = f.SetCellFormula(name, ref, cell.RawInput[1:])
		case isNum:
			err = f.SetCellValue(name, ref, n)
		default:
			err = f.SetCellStr(name, ref, cell.RawInput)
		}
		if err != nil {
			return fmt.Errorf("error writing %s: %w", ref, err)
		}
	}
	if maxC, maxR := sheet.Bounds(); maxC >= 0 {
		if err := f.SetSheetDimension(name, "A1:"+grid.ColRowToName(maxC, maxR)); err != nil {
			return err
		}
	}
	if err := f.SaveAs(filename); err != nil {
		return fmt.Errorf("error saving workbook: %w", err)
	}
	return nil
}

// LoadXLSX reads the first worksheet of a workbook. Formula cells come back
// with their leading "=". Columns past Z are skipped.
func LoadXLSX(filename string) (grid.Sheet, error) {
	f, err := excelize.OpenFile(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	name := f.GetSheetName(0)

	rows, err := f.GetRows(name)
	if err != nil {
		return nil, fmt.Errorf("error reading %s: %w", name, err)
	}
	maxRow, maxCol := len(rows), 0
	for _, row := range rows {
		maxCol = max(maxCol, len(row))
	}
	// formula cells without a cached value are missing from GetRows
	if dim, err := f.GetSheetDimension(name); err == nil {
		if _, end, ok := strings.Cut(dim, ":"); ok {
			if c, r, err := excelize.CellNameToCoordinates(end); err == nil {
				maxRow, maxCol = max(maxRow, r), max(maxCol, c)
			}
		}
	}
	if maxCol > grid.MaxColumns {
		log.Warn().Str("path", filename).Int("columns", maxCol).Msg("skipping columns beyond Z")
		maxCol = grid.MaxColumns
	}

	sheet := grid.Sheet{}
	for r := 1; r <= maxRow; r++ {
		for c := 1; c <= maxCol; c++ {
			ref, err := excelize.CoordinatesToCellName(c, r)
			if err != nil {
				return nil, err
			}
			raw, err := f.GetCellValue(name, ref)
			if err != nil {
				return nil, fmt.Errorf("error reading %s: %w", ref, err)
			}
			if formula, err := f.GetCellFormula(name, ref); err == nil && formula != "" {
				raw = "=" + strings.TrimPrefix(formula, "=")
			}
			if raw != "" {
				sheet.Set(grid.Addr(c-1, r-1), raw)
			}
		}
	}
	log.Debug().Str("path", filename).Str("sheet", name).Int("cells", len(sheet)).Msg("loaded workbook")
	return sheet, nil
}
