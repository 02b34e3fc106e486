package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/ekk0s/nfe-ledger/internal/application/reports"
)

// CSVExporter cabecera + filas, separador coma.
type CSVExporter struct{}

func (CSVExporter) Export(w io.Writer, t reports.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Headers); err != nil {
		return fmt.Errorf("csv: %w", err)
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return fmt.Errorf("csv: %w", err)
	}
	return nil
}
