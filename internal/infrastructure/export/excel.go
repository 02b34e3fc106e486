package export

import (
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/ekk0s/nfe-ledger/internal/application/reports"
)

const maxSheetName = 31

// ExcelExporter una hoja con la tabla; columnas numéricas como número.
type ExcelExporter struct{}

func (ExcelExporter) Export(w io.Writer, t reports.Table) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := sheetName(t.Title)
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("excel: nombre de hoja: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"00467F"}},
	})
	if err != nil {
		return fmt.Errorf("excel: estilo: %w", err)
	}

	for i, h := range t.Headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return fmt.Errorf("excel: %w", err)
		}
		if err := f.SetCellStyle(sheet, cell, cell, bold); err != nil {
			return fmt.Errorf("excel: %w", err)
		}
	}

	for r, values := range t.Rows {
		for c, v := range values {
			cell, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, cellValue(t, c, v)); err != nil {
				return fmt.Errorf("excel: %w", err)
			}
		}
	}

	if n := len(t.Headers); n > 0 {
		last, _ := excelize.ColumnNumberToName(n)
		if err := f.SetColWidth(sheet, "A", last, 18); err != nil {
			return fmt.Errorf("excel: %w", err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("excel: escribir: %w", err)
	}
	return nil
}

// cellValue convierte columnas numéricas a float64; si no parsea, queda como texto.
func cellValue(t reports.Table, col int, v string) interface{} {
	if col >= len(t.Numeric) || !t.Numeric[col] {
		return v
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return v
	}
	return d.InexactFloat64()
}

func sheetName(title string) string {
	if title == "" {
		return "Relatorio"
	}
	if utf8.RuneCountInString(title) <= maxSheetName {
		return title
	}
	return string([]rune(title)[:maxSheetName])
}
