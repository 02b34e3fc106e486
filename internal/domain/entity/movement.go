package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Movement entrada del ledger: una línea de un documento aplicado. Inmutable.
type Movement struct {
	ID                  string
	DocumentSeq         int64
	DocumentFingerprint string
	LineNumber          int
	ProductCode         string
	Description         string
	Direction           Direction
	Quantity            decimal.Decimal
	UnitValue           decimal.Decimal
	IssueDate           time.Time
	CounterpartyID      *string
}

// Total cantidad × valor unitario.
func (m *Movement) Total() decimal.Decimal { return m.Quantity.Mul(m.UnitValue) }

// SignedQuantity +cantidad para IN, −cantidad para OUT.
func (m *Movement) SignedQuantity() decimal.Decimal {
	if m.Direction == DirectionOut {
		return m.Quantity.Neg()
	}
	return m.Quantity
}

// MovementFilter filtros opcionales del historial; nil = sin filtro.
type MovementFilter struct {
	DateFrom       *time.Time
	DateTo         *time.Time
	Direction      *Direction `validate:"omitempty,oneof=IN OUT"`
	ProductCode    *string
	CounterpartyID *string
	DocumentSeq    *int64
}
