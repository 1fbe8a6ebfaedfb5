package storage

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"os"

	"sheetlab/internal/grid"
)

// SaveCSV writes the raw input of every cell as a dense rectangle, so
// formulas are stored as typed and recomputed on load.
func SaveCSV(sheet grid.Sheet, filename string) error {
	maxC, maxR := sheet.Bounds()
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()
	if maxR < 0 || maxC < 0 {
		return nil
	}
	out := make([][]string, maxR+1)
	for r := 0; r <= maxR; r++ {
		row := make([]string, maxC+1)
		for c := 0; c <= maxC; c++ {
			row[c] = sheet.Raw(grid.Addr(c, r))
		}
		out[r] = row
	}
	w := csv.NewWriter(f)
	if err := w.WriteAll(out); err != nil {
		return fmt.Errorf("error writing CSV: %w", err)
	}
	return nil
}

// LoadCSV reads a CSV file into a new sheet. Blank fields and columns past
// Z are dropped.
func LoadCSV(filename string) (grid.Sheet, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	r := csv.NewReader(bufio.NewReader(f))
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("error reading CSV: %w", err)
	}
	sheet := grid.Sheet{}
	for rIdx, row := range records {
		for cIdx, val := range row {
			if val == "" || cIdx >= grid.MaxColumns {
				continue
			}
			sheet.Set(grid.Addr(cIdx, rIdx), val)
		}
	}
	return sheet, nil
}
