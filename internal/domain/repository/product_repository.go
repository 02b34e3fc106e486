package repository

import (
	"context"

	"github.com/ekk0s/nfe-ledger/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// ProductRepository puerto de productos y de la proyección de stock.
// Usado dentro de transacciones para garantizar consistencia con el ledger.
type ProductRepository interface {
	// EnsureForUpdate crea el producto si no existe (cantidad 0) y lo devuelve bloqueado hasta el fin de la transacción.
	EnsureForUpdate(ctx context.Context, code, description string) (*entity.Product, error)
	UpdateDescription(ctx context.Context, code, description string) error
	AddQuantity(ctx context.Context, code string, delta decimal.Decimal) error
	SetQuantity(ctx context.Context, code string, quantity decimal.Decimal) error
	GetByCode(ctx context.Context, code string) (*entity.Product, error)
	// ListStock devuelve todos los productos ordenados por código.
	ListStock(ctx context.Context) ([]entity.StockRow, error)
}
