package entity

import "github.com/shopspring/decimal"

// FinancialSummary totales de un rango de fechas. Balance = TotalIn − TotalOut.
type FinancialSummary struct {
	TotalIn  decimal.Decimal
	TotalOut decimal.Decimal
	Balance  decimal.Decimal
}

// DirectionTotals sumas crudas por dirección devueltas por el almacenamiento.
type DirectionTotals struct {
	In  decimal.Decimal
	Out decimal.Decimal
}
