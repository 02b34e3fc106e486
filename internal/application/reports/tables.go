package reports

import (
	"strconv"

	"github.com/ekk0s/nfe-ledger/internal/domain/entity"
	"github.com/ekk0s/nfe-ledger/internal/domain/fiscal"
)

// Table representación neutral de un reporte para los exportadores (CSV, Excel, PDF).
type Table struct {
	Title   string
	Headers []string
	Rows    [][]string
	// Numeric marca las columnas que se alinean a la derecha o se escriben como número.
	Numeric []bool
}

// StockTable tabla de stock por producto.
func StockTable(rows []entity.StockRow) Table {
	t := Table{
		Title:   "Estoque atual",
		Headers: []string{"Código", "Descrição", "Quantidade"},
		Numeric: []bool{false, false, true},
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []string{r.ProductCode, r.Description, r.Quantity.String()})
	}
	return t
}

// MovementTable tabla del historial de movimientos.
func MovementTable(movs []*entity.Movement) Table {
	t := Table{
		Title:   "Histórico de movimentações",
		Headers: []string{"Data", "Documento", "Linha", "Tipo", "Código", "Descrição", "Quantidade", "Valor unitário", "Total"},
		Numeric: []bool{false, false, true, false, false, false, true, true, true},
	}
	for _, m := range movs {
		t.Rows = append(t.Rows, []string{
			m.IssueDate.Format(fiscal.DateLayout),
			strconv.FormatInt(m.DocumentSeq, 10),
			strconv.Itoa(m.LineNumber),
			string(m.Direction),
			m.ProductCode,
			m.Description,
			m.Quantity.String(),
			m.UnitValue.StringFixed(2),
			m.Total().StringFixed(2),
		})
	}
	return t
}

// DocumentTable tabla del historial de documentos.
func DocumentTable(docs []*entity.DocumentSummary) Table {
	t := Table{
		Title:   "Histórico de notas",
		Headers: []string{"Seq", "Data", "Tipo", "Chave", "Entidade", "CNPJ/CPF", "Itens", "Total"},
		Numeric: []bool{true, false, false, false, false, false, true, true},
	}
	for _, d := range docs {
		key := d.AccessKey
		if d.Kind == entity.DocumentKindAdjustment {
			key = "ajuste"
		}
		t.Rows = append(t.Rows, []string{
			strconv.FormatInt(d.Seq, 10),
			d.IssueDate.Format(fiscal.DateLayout),
			string(d.Direction),
			key,
			d.CounterpartyName,
			d.CounterpartyTaxID,
			strconv.Itoa(d.LineCount),
			d.Total.StringFixed(2),
		})
	}
	return t
}

// FinancialTable tabla de una fila con el resumen del período.
func FinancialTable(s entity.FinancialSummary) Table {
	return Table{
		Title:   "Resumo financeiro",
		Headers: []string{"Entradas", "Saídas", "Saldo"},
		Numeric: []bool{true, true, true},
		Rows:    [][]string{{s.TotalIn.StringFixed(2), s.TotalOut.StringFixed(2), s.Balance.StringFixed(2)}},
	}
}

// AccessLogTable tabla del registro de accesos.
func AccessLogTable(entries []*entity.AccessLogEntry) Table {
	t := Table{
		Title:   "Log de acessos",
		Headers: []string{"Usuário", "Data/Hora", "Sucesso"},
		Numeric: []bool{false, false, false},
	}
	for _, e := range entries {
		ok := "Não"
		if e.Success {
			ok = "Sim"
		}
		t.Rows = append(t.Rows, []string{e.Username, e.Timestamp.Format("2006-01-02 15:04:05"), ok})
	}
	return t
}
