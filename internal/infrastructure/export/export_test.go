package export_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ekk0s/nfe-ledger/internal/application/reports"
	"github.com/ekk0s/nfe-ledger/internal/infrastructure/export"
)

func sampleTable() reports.Table {
	return reports.Table{
		Title:   "Estoque atual",
		Headers: []string{"Código", "Descrição", "Quantidade"},
		Numeric: []bool{false, false, true},
		Rows: [][]string{
			{"COD123", "Parafuso, sextavado", "30"},
			{"COD456", "Porca", "2.5"},
		},
	}
}

// ── Formato ───────────────────────────────────────────────────────────────────

func TestFormatFromPath(t *testing.T) {
	f, err := export.FormatFromPath("/tmp/stock.XLSX")
	require.NoError(t, err)
	assert.Equal(t, export.FormatXLSX, f)

	_, err = export.FormatFromPath("stock.txt")
	assert.Error(t, err)
}

// ── CSV ───────────────────────────────────────────────────────────────────────

func TestCSVExporter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, export.CSVExporter{}.Export(&buf, sampleTable()))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Código,Descrição,Quantidade", lines[0])
	assert.Equal(t, `COD123,"Parafuso, sextavado",30`, lines[1])
}

// ── Excel ─────────────────────────────────────────────────────────────────────

func TestExcelExporter_HojaYFilas(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, export.ExcelExporter{}.Export(&buf, sampleTable()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	sheets := f.GetSheetList()
	require.Equal(t, []string{"Estoque atual"}, sheets)
	rows, err := f.GetRows(sheets[0])
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "COD456", rows[2][0])

	assert.Equal(t, "2.5", rows[2][2])
}

// ── PDF ───────────────────────────────────────────────────────────────────────

func TestMarotoExporter_GeneraPDF(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, export.NewMarotoExporter().Export(&buf, sampleTable()))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF")))
}

func TestMarotoExporter_TablaVacia(t *testing.T) {
	err := export.NewMarotoExporter().Export(&bytes.Buffer{}, reports.Table{})
	assert.Error(t, err)
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stock.csv")
	require.NoError(t, export.WriteFile(path, sampleTable()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "Código,"))
}
