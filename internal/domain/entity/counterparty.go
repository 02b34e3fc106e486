package entity

import "time"

// Counterparty emisor o destinatario de documentos fiscales, identificado por CNPJ/CPF.
// El papel (proveedor o cliente) es propiedad del documento, no de la contraparte.
type Counterparty struct {
	ID        string
	TaxID     string // único
	Name      string // gana el último visto
	CreatedAt time.Time
	UpdatedAt time.Time
}
