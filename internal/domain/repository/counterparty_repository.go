package repository

import (
	"context"

	"github.com/ekk0s/nfe-ledger/internal/domain/entity"
)

// CounterpartyRepository puerto de persistencia de contrapartes.
type CounterpartyRepository interface {
	// Upsert crea o actualiza por TaxID (el nombre se sobrescribe) y devuelve la fila vigente.
	Upsert(ctx context.Context, taxID, name string) (*entity.Counterparty, error)
	GetByTaxID(ctx context.Context, taxID string) (*entity.Counterparty, error)
	List(ctx context.Context) ([]*entity.Counterparty, error)
}
