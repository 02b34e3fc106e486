// Package export escribe las tablas de reportes en CSV, Excel (xlsx) o PDF.
package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ekk0s/nfe-ledger/internal/application/reports"
)

// Format formato de salida.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatPDF  Format = "pdf"
)

// Exporter escribe una tabla en w.
type Exporter interface {
	Export(w io.Writer, t reports.Table) error
}

// FormatFromPath deduce el formato por la extensión del archivo.
func FormatFromPath(path string) (Format, error) {
	switch f := Format(strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")); f {
	case FormatCSV, FormatXLSX, FormatPDF:
		return f, nil
	default:
		return "", fmt.Errorf("export: extensión no soportada %q (use .csv, .xlsx o .pdf)", filepath.Ext(path))
	}
}

// For devuelve el exportador del formato.
func For(f Format) (Exporter, error) {
	switch f {
	case FormatCSV:
		return CSVExporter{}, nil
	case FormatXLSX:
		return ExcelExporter{}, nil
	case FormatPDF:
		return NewMarotoExporter(), nil
	default:
		return nil, fmt.Errorf("export: formato desconocido %q", f)
	}
}

// WriteFile exporta la tabla al archivo según su extensión.
func WriteFile(path string, t reports.Table) (err error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}
	exp, err := For(format)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("export: crear %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return exp.Export(f, t)
}
