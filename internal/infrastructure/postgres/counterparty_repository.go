package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ekk0s/nfe-ledger/internal/domain"
	"github.com/ekk0s/nfe-ledger/internal/domain/entity"
	"github.com/ekk0s/nfe-ledger/internal/domain/repository"
)

var _ repository.CounterpartyRepository = (*CounterpartyRepo)(nil)

// CounterpartyRepo contrapartes (emisores y destinatarios) sobre PostgreSQL.
type CounterpartyRepo struct {
	q Querier
}

func NewCounterpartyRepository(q Querier) *CounterpartyRepo {
	return &CounterpartyRepo{q: q}
}

// Upsert crea o actualiza por tax_id. Un nombre vacío conserva el existente.
func (r *CounterpartyRepo) Upsert(ctx context.Context, taxID, name string) (*entity.Counterparty, error) {
	query := `
		INSERT INTO counterparties (id, tax_id, name, created_at, updated_at)
		VALUES ($1, $2, $3, now(), now())
		ON CONFLICT (tax_id) DO UPDATE
		SET name = CASE WHEN EXCLUDED.name = '' THEN counterparties.name ELSE EXCLUDED.name END,
		    updated_at = now()
		RETURNING id, tax_id, name, created_at, updated_at`
	var c entity.Counterparty
	err := r.q.QueryRow(ctx, query, uuid.NewString(), taxID, name).Scan(&c.ID, &c.TaxID, &c.Name, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("upsert counterparty: %w", classify(err, false))
	}
	return &c, nil
}

func (r *CounterpartyRepo) GetByTaxID(ctx context.Context, taxID string) (*entity.Counterparty, error) {
	query := `SELECT id, tax_id, name, created_at, updated_at FROM counterparties WHERE tax_id = $1`
	var c entity.Counterparty
	err := r.q.QueryRow(ctx, query, taxID).Scan(&c.ID, &c.TaxID, &c.Name, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: contraparte %s", domain.ErrNotFound, taxID)
		}
		return nil, fmt.Errorf("get counterparty: %w", classify(err, false))
	}
	return &c, nil
}

func (r *CounterpartyRepo) List(ctx context.Context) ([]*entity.Counterparty, error) {
	rows, err := r.q.Query(ctx, `SELECT id, tax_id, name, created_at, updated_at FROM counterparties ORDER BY tax_id`)
	if err != nil {
		return nil, fmt.Errorf("list counterparties: %w", classify(err, false))
	}
	defer rows.Close()
	var list []*entity.Counterparty
	for rows.Next() {
		var c entity.Counterparty
		if err := rows.Scan(&c.ID, &c.TaxID, &c.Name, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, &c)
	}
	return list, classify(rows.Err(), false)
}
