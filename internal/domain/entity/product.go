package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product producto identificado por código. CurrentQuantity es la proyección
// incremental del ledger; la fuente de verdad son los movimientos.
type Product struct {
	Code            string
	Description     string // gana la última vista
	CurrentQuantity decimal.Decimal
	UpdatedAt       time.Time
}

// StockRow fila del reporte de stock.
type StockRow struct {
	ProductCode string
	Description string
	Quantity    decimal.Decimal
}

// StockDrift diferencia entre la proyección incremental y el replay del ledger.
type StockDrift struct {
	ProductCode string
	Projected   decimal.Decimal
	Replayed    decimal.Decimal
}
