package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// RegisterProductInput alta o actualización manual de un producto.
// InitialQuantity distinta de cero se registra como ajuste (positiva = entrada, negativa = salida).
type RegisterProductInput struct {
	Code            string `validate:"required,max=60"`
	Description     string `validate:"required,max=500"`
	InitialQuantity decimal.Decimal
	UnitValue       decimal.Decimal `validate:"gte=0"`
}

// RegisterCounterpartyInput alta manual de una contraparte (CNPJ o CPF con dígitos de control válidos).
type RegisterCounterpartyInput struct {
	TaxID string `validate:"required,max=32"`
	Name  string `validate:"required,max=200"`
}

// AdjustmentInput movimiento correctivo. Quantity con signo: positiva entra, negativa sale.
// Date cero = fecha actual.
type AdjustmentInput struct {
	ProductCode string `validate:"required,max=60"`
	Description string `validate:"max=500"`
	Quantity    decimal.Decimal
	UnitValue   decimal.Decimal `validate:"gte=0"`
	Date        time.Time
}
