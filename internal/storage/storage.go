// Package storage persists sheets as CSV, YAML documents or XLSX workbooks.
package storage

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

// ErrUnknownFormat is returned for file extensions with no codec.
var ErrUnknownFormat = errors.New("unknown file format")

// Format names a file codec.
type Format string

const (
	CSV      Format = "csv"
	Native   Format = "sheet"
	Workbook Format = "xlsx"
)

// FormatOf picks the codec from the file extension. ".yaml" and ".yml"
// are read as native documents.
func FormatOf(filename string) (Format, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return CSV, nil
	case ".sheet", ".yaml", ".yml":
		return Native, nil
	case ".xlsx":
		return Workbook, nil
	}
	return "", fmt.Errorf("%s: %w", filename, ErrUnknownFormat)
}

// Open loads filename in the format its extension names. CSV and XLSX
// files carry cells only, so the returned document has no layout.
func Open(filename string) (Document, error) {
	format, err := FormatOf(filename)
	if err != nil {
		return Document{}, err
	}
	log.Info().Str("path", filename).Str("format", string(format)).Msg("opening sheet")
	switch format {
	case Native:
		return LoadDocument(filename)
	case CSV:
		sheet, err := LoadCSV(filename)
		if err != nil {
			return Document{}, err
		}
		return NewDocument(sheet), nil
	default:
		sheet, err := LoadXLSX(filename)
		if err != nil {
			return Document{}, err
		}
		return NewDocument(sheet), nil
	}
}

// Save writes doc to filename in the format its extension names. Only the
// native format keeps the layout and lesson.
func Save(filename string, doc Document) error {
	format, err := FormatOf(filename)
	if err != nil {
		return err
	}
	log.Info().Str("path", filename).Str("format", string(format)).Int("cells", len(doc.Cells)).Msg("saving sheet")
	if format == Native {
		return SaveDocument(doc, filename)
	}
	sheet, err := doc.Sheet()
	if err != nil {
		return err
	}
	if format == CSV {
		return SaveCSV(sheet, filename)
	}
	return SaveXLSX(sheet, filename)
}
