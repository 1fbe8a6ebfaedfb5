package storage

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"sheetlab/internal/grid"
)

// Document is the native ".sheet" file: raw cell input keyed by address,
// the grid layout and the lesson the sheet belongs to.
type Document struct {
	Lesson     string            `yaml:"lesson,omitempty"`
	Cells      map[string]string `yaml:"cells"`
	ColWidths  []int             `yaml:"col_widths,omitempty"`
	RowHeights []int             `yaml:"row_heights,omitempty"`
}

// NewDocument captures the non-blank cells of sheet.
func NewDocument(sheet grid.Sheet) Document {
	doc := Document{Cells: map[string]string{}}
	for addr, cell := range sheet {
		if cell.RawInput != "" {
			doc.Cells[addr.String()] = cell.RawInput
		}
	}
	return doc
}

// Sheet rebuilds the cells of doc. Keys that are not cell addresses are
// reported as an error.
func (d Document) Sheet() (grid.Sheet, error) {
	sheet := grid.Sheet{}
	for ref, raw := range d.Cells {
		addr, ok := grid.ParseCellRef(ref)
		if !ok {
			return nil, fmt.Errorf("invalid cell address %q", ref)
		}
		sheet.Set(addr, raw)
	}
	return sheet, nil
}

// SaveDocument writes doc as YAML.
func SaveDocument(doc Document, filename string) error {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("error encoding document: %w", err)
	}
	return os.WriteFile(filename, data, 0o644)
}

// LoadDocument reads a YAML document written by SaveDocument.
func LoadDocument(filename string) (Document, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return Document{}, err
	}
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("error decoding document %s: %w", filename, err)
	}
	if doc.Cells == nil {
		doc.Cells = map[string]string{}
	}
	return doc, nil
}
