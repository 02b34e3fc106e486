package export

import (
	"fmt"
	"io"
	"time"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/orientation"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"

	"github.com/ekk0s/nfe-ledger/internal/application/reports"
)

// ── Paleta de colores ─────────────────────────────────────────────────────────

var (
	colorPrimary = &props.Color{Red: 0, Green: 70, Blue: 127}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
	colorWhite   = &props.Color{Red: 255, Green: 255, Blue: 255}
)

// ── Exporter ──────────────────────────────────────────────────────────────────

// MarotoExporter genera un PDF A4 con título y tabla usando Maroto v2.
// Tablas de más de 6 columnas salen en horizontal.
type MarotoExporter struct {
	now func() time.Time
}

// NewMarotoExporter construye el exportador.
func NewMarotoExporter() *MarotoExporter { return &MarotoExporter{now: time.Now} }

func (e *MarotoExporter) Export(w io.Writer, t reports.Table) error {
	cols := len(t.Headers)
	if cols == 0 {
		return fmt.Errorf("pdf: tabla sin columnas")
	}
	b := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithMaxGridSize(cols).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 8}).
		WithTitle(t.Title, true)
	if cols > 6 {
		b = b.WithOrientation(orientation.Horizontal)
	}
	m := maroto.New(b.Build())

	m.AddRows(titleRow(t.Title, cols, e.now()))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(headerRow(t))
	for _, r := range bodyRows(t) {
		m.AddRows(r)
	}
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
	m.AddRows(row.New(6).Add(col.New(cols).Add(
		text.New(fmt.Sprintf("%d registro(s)", len(t.Rows)), props.Text{Size: 7, Color: colorGray, Top: 1}),
	)))

	doc, err := m.Generate()
	if err != nil {
		return fmt.Errorf("pdf: generar documento: %w", err)
	}
	if _, err := w.Write(doc.GetBytes()); err != nil {
		return fmt.Errorf("pdf: escribir: %w", err)
	}
	return nil
}

// ── Secciones ─────────────────────────────────────────────────────────────────

// titleRow: título del reporte (izq) y fecha de emisión (der).
func titleRow(title string, cols int, now time.Time) core.Row {
	heading := text.New(nonEmpty(title, "Relatório"), props.Text{
		Style: fontstyle.Bold, Size: 13, Color: colorPrimary, Top: 2,
	})
	if cols < 2 {
		return row.New(14).Add(col.New(cols).Add(heading))
	}
	left := cols - cols/3
	return row.New(14).Add(
		col.New(left).Add(heading),
		col.New(cols-left).Add(text.New("Gerado em "+now.Format("02/01/2006 15:04"), props.Text{
			Size: 8, Align: align.Right, Color: colorGray, Top: 5,
		})),
	)
}

// headerRow: cabecera de la tabla en blanco sobre el color primario.
func headerRow(t reports.Table) core.Row {
	cols := make([]core.Col, 0, len(t.Headers))
	for i, h := range t.Headers {
		cols = append(cols, col.New(1).Add(text.New(h, props.Text{
			Style: fontstyle.Bold, Size: 8, Align: columnAlign(t, i),
			Color: colorWhite, Top: 2, Left: 1, Right: 1,
		})))
	}
	return row.New(8).WithStyle(&props.Cell{BackgroundColor: colorPrimary}).Add(cols...)
}

// bodyRows: una fila por registro.
func bodyRows(t reports.Table) []core.Row {
	result := make([]core.Row, 0, len(t.Rows))
	for _, values := range t.Rows {
		cols := make([]core.Col, 0, len(t.Headers))
		for i := range t.Headers {
			v := ""
			if i < len(values) {
				v = values[i]
			}
			cols = append(cols, col.New(1).Add(text.New(v, props.Text{
				Size: 8, Align: columnAlign(t, i), Top: 1, Left: 1, Right: 1,
			})))
		}
		result = append(result, row.New(6).Add(cols...))
	}
	return result
}

// ── helpers ───────────────────────────────────────────────────────────────────

func columnAlign(t reports.Table, i int) align.Type {
	if i < len(t.Numeric) && t.Numeric[i] {
		return align.Right
	}
	return align.Left
}

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}
