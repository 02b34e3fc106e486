package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/ekk0s/nfe-ledger/internal/domain/entity"
	"github.com/ekk0s/nfe-ledger/internal/domain/repository"
)

var _ repository.MovementRepository = (*MovementRepo)(nil)

const movementSelect = `
	SELECT m.id, m.document_seq, d.fingerprint, m.line_number, m.product_code, m.description,
	       m.direction, m.quantity, m.unit_value, m.issue_date, m.counterparty_id
	FROM movements m
	JOIN documents d ON d.seq = m.document_seq`

// MovementRepo ledger append-only sobre PostgreSQL.
type MovementRepo struct {
	q Querier
}

func NewMovementRepository(q Querier) *MovementRepo {
	return &MovementRepo{q: q}
}

func (r *MovementRepo) Create(ctx context.Context, m *entity.Movement) error {
	query := `
		INSERT INTO movements (id, document_seq, line_number, product_code, description, direction, quantity, unit_value, issue_date, counterparty_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.q.Exec(ctx, query,
		m.ID, m.DocumentSeq, m.LineNumber, m.ProductCode, m.Description, string(m.Direction),
		m.Quantity, m.UnitValue, m.IssueDate, m.CounterpartyID,
	)
	if err != nil {
		return fmt.Errorf("insert movement: %w", classify(err, false))
	}
	return nil
}

// List arma el WHERE con los filtros presentes.
func (r *MovementRepo) List(ctx context.Context, filter entity.MovementFilter) ([]*entity.Movement, error) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if filter.DateFrom != nil {
		add("m.issue_date >= $%d", *filter.DateFrom)
	}
	if filter.DateTo != nil {
		add("m.issue_date <= $%d", *filter.DateTo)
	}
	if filter.Direction != nil {
		add("m.direction = $%d", string(*filter.Direction))
	}
	if filter.ProductCode != nil {
		add("m.product_code = $%d", *filter.ProductCode)
	}
	if filter.CounterpartyID != nil {
		add("m.counterparty_id = $%d", *filter.CounterpartyID)
	}
	if filter.DocumentSeq != nil {
		add("m.document_seq = $%d", *filter.DocumentSeq)
	}
	query := movementSelect
	if len(conds) > 0 {
		query += "\n\tWHERE " + strings.Join(conds, " AND ")
	}
	query += "\n\tORDER BY m.issue_date, m.document_seq, m.line_number"
	return r.query(ctx, query, args...)
}

func (r *MovementRepo) ListForReplay(ctx context.Context) ([]*entity.Movement, error) {
	return r.query(ctx, movementSelect+"\n\tORDER BY m.document_seq, m.line_number")
}

func (r *MovementRepo) SumByDirection(ctx context.Context, from, to time.Time) (entity.DirectionTotals, error) {
	query := `
		SELECT direction, COALESCE(SUM(quantity * unit_value), 0)
		FROM movements
		WHERE issue_date >= $1 AND issue_date <= $2
		GROUP BY direction`
	rows, err := r.q.Query(ctx, query, from, to)
	if err != nil {
		return entity.DirectionTotals{}, fmt.Errorf("sum movements: %w", classify(err, false))
	}
	defer rows.Close()
	var totals entity.DirectionTotals
	for rows.Next() {
		var (
			dir string
			sum decimal.Decimal
		)
		if err := rows.Scan(&dir, &sum); err != nil {
			return entity.DirectionTotals{}, err
		}
		if entity.Direction(dir) == entity.DirectionOut {
			totals.Out = sum
		} else {
			totals.In = sum
		}
	}
	return totals, classify(rows.Err(), false)
}

func (r *MovementRepo) query(ctx context.Context, query string, args ...any) ([]*entity.Movement, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list movements: %w", classify(err, false))
	}
	defer rows.Close()
	list, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*entity.Movement, error) {
		var (
			m   entity.Movement
			dir string
		)
		err := row.Scan(&m.ID, &m.DocumentSeq, &m.DocumentFingerprint, &m.LineNumber, &m.ProductCode, &m.Description,
			&dir, &m.Quantity, &m.UnitValue, &m.IssueDate, &m.CounterpartyID)
		m.Direction = entity.Direction(dir)
		m.IssueDate = m.IssueDate.UTC()
		return &m, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan movements: %w", classify(err, false))
	}
	return list, nil
}
