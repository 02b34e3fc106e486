package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/ekk0s/nfe-ledger/internal/domain"
	"github.com/ekk0s/nfe-ledger/internal/domain/entity"
	"github.com/ekk0s/nfe-ledger/internal/domain/repository"
)

var _ repository.ProductRepository = (*ProductRepo)(nil)

// ProductRepo productos y proyección de stock (usable con pool o tx).
type ProductRepo struct {
	q Querier
}

// NewProductRepository construye el adaptador. Pasar pool o tx (Querier).
func NewProductRepository(q Querier) *ProductRepo {
	return &ProductRepo{q: q}
}

// EnsureForUpdate crea el producto si falta y bloquea la fila (SELECT FOR UPDATE).
func (r *ProductRepo) EnsureForUpdate(ctx context.Context, code, description string) (*entity.Product, error) {
	_, err := r.q.Exec(ctx, `
		INSERT INTO products (code, description, current_quantity, updated_at)
		VALUES ($1, $2, 0, now())
		ON CONFLICT (code) DO NOTHING`, code, description)
	if err != nil {
		return nil, fmt.Errorf("ensure product: %w", classify(err, false))
	}
	return r.get(ctx, `
		SELECT code, description, current_quantity, updated_at
		FROM products WHERE code = $1
		FOR UPDATE`, code)
}

func (r *ProductRepo) UpdateDescription(ctx context.Context, code, description string) error {
	return r.update(ctx, `UPDATE products SET description = $2, updated_at = now() WHERE code = $1`, code, description)
}

// AddQuantity suma delta a la proyección en una sola sentencia.
func (r *ProductRepo) AddQuantity(ctx context.Context, code string, delta decimal.Decimal) error {
	return r.update(ctx, `UPDATE products SET current_quantity = current_quantity + $2, updated_at = now() WHERE code = $1`, code, delta)
}

func (r *ProductRepo) SetQuantity(ctx context.Context, code string, quantity decimal.Decimal) error {
	return r.update(ctx, `UPDATE products SET current_quantity = $2, updated_at = now() WHERE code = $1`, code, quantity)
}

func (r *ProductRepo) GetByCode(ctx context.Context, code string) (*entity.Product, error) {
	return r.get(ctx, `SELECT code, description, current_quantity, updated_at FROM products WHERE code = $1`, code)
}

func (r *ProductRepo) ListStock(ctx context.Context) ([]entity.StockRow, error) {
	rows, err := r.q.Query(ctx, `SELECT code, description, current_quantity FROM products ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("list stock: %w", classify(err, false))
	}
	defer rows.Close()
	var list []entity.StockRow
	for rows.Next() {
		var s entity.StockRow
		if err := rows.Scan(&s.ProductCode, &s.Description, &s.Quantity); err != nil {
			return nil, err
		}
		list = append(list, s)
	}
	return list, classify(rows.Err(), false)
}

func (r *ProductRepo) get(ctx context.Context, query, code string) (*entity.Product, error) {
	var p entity.Product
	err := r.q.QueryRow(ctx, query, code).Scan(&p.Code, &p.Description, &p.CurrentQuantity, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: producto %s", domain.ErrNotFound, code)
		}
		return nil, fmt.Errorf("get product: %w", classify(err, false))
	}
	return &p, nil
}

func (r *ProductRepo) update(ctx context.Context, query, code string, arg any) error {
	tag, err := r.q.Exec(ctx, query, code, arg)
	if err != nil {
		return fmt.Errorf("update product: %w", classify(err, false))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: producto %s", domain.ErrNotFound, code)
	}
	return nil
}
