package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Direction sentido del documento respecto al inventario propio.
type Direction string

const (
	DirectionIn  Direction = "IN"  // entrada (tpNF = 0)
	DirectionOut Direction = "OUT" // salida (tpNF = 1)
)

// Valid indica si la dirección pertenece al conjunto cerrado {IN, OUT}.
func (d Direction) Valid() bool { return d == DirectionIn || d == DirectionOut }

// DocumentKind origen del documento aplicado al ledger.
type DocumentKind string

const (
	DocumentKindNFe        DocumentKind = "NFE"
	DocumentKindAdjustment DocumentKind = "ADJUSTMENT" // ajuste manual o cantidad inicial
)

// ParsedDocument resultado del parser; inmutable una vez construido.
// IssueDate es una fecha de calendario (medianoche UTC).
type ParsedDocument struct {
	Fingerprint  string          `validate:"required,len=64,hexadecimal"`
	AccessKey    string          `validate:"max=64"`
	Kind         DocumentKind    `validate:"required,oneof=NFE ADJUSTMENT"`
	Direction    Direction       `validate:"required,oneof=IN OUT"`
	IssueDate    time.Time       `validate:"required"`
	Counterparty CounterpartyRef `validate:"-"`
	Total        decimal.Decimal
	Lines        []LineItem `validate:"required,min=1,dive"`
}

// LineItem línea de detalle (det/prod) de un documento.
type LineItem struct {
	ProductCode string          `validate:"required,max=60"`
	Description string          `validate:"max=500"`
	Quantity    decimal.Decimal `validate:"gte=0"`
	UnitValue   decimal.Decimal `validate:"gte=0"`
}

// Total valor de la línea (cantidad × valor unitario), exacto.
func (l LineItem) Total() decimal.Decimal { return l.Quantity.Mul(l.UnitValue) }

// CounterpartyRef contraparte tal como aparece en el documento.
type CounterpartyRef struct {
	TaxID string
	Name  string
}

// Document fila persistida del índice de huellas. Seq define el orden de inserción.
type Document struct {
	Seq               int64
	Fingerprint       string
	AccessKey         string
	Kind              DocumentKind
	Direction         Direction
	IssueDate         time.Time
	CounterpartyTaxID string
	Total             decimal.Decimal
	LineCount         int
	AppliedAt         time.Time
}

// AppliedDocument resultado de aplicar un documento al ledger.
type AppliedDocument struct {
	Document  *Document
	Movements []*Movement
}

// DocumentSummary documento aplicado tal como lo lista el historial, con el nombre
// actual de la contraparte (vacío en ajustes).
type DocumentSummary struct {
	Seq               int64
	Fingerprint       string
	AccessKey         string
	Kind              DocumentKind
	Direction         Direction
	IssueDate         time.Time
	CounterpartyTaxID string
	CounterpartyName  string
	Total             decimal.Decimal
	LineCount         int
}

// DocumentFilter filtros opcionales del historial de documentos; nil = sin filtro.
// ProductCode selecciona documentos con al menos una línea de ese producto.
type DocumentFilter struct {
	DateFrom       *time.Time
	DateTo         *time.Time
	Direction      *Direction `validate:"omitempty,oneof=IN OUT"`
	ProductCode    *string
	CounterpartyID *string
}
