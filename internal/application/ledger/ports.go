package ledger

import (
	"context"

	"github.com/ekk0s/nfe-ledger/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción de BD, pasando repositorios atados a esa tx.
// Garantiza atomicidad del ledger: o se escriben documento, movimientos y proyección, o nada.
type TxRunner interface {
	Run(ctx context.Context, fn func(
		docRepo repository.DocumentRepository,
		partyRepo repository.CounterpartyRepository,
		productRepo repository.ProductRepository,
		movRepo repository.MovementRepository,
	) error) error

	// RunSnapshot ejecuta fn en una transacción de solo lectura con una vista consistente.
	RunSnapshot(ctx context.Context, fn func(
		productRepo repository.ProductRepository,
		movRepo repository.MovementRepository,
	) error) error
}
