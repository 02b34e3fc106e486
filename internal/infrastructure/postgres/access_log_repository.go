package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/ekk0s/nfe-ledger/internal/domain/entity"
	"github.com/ekk0s/nfe-ledger/internal/domain/repository"
)

var _ repository.AccessLogRepository = (*AccessLogRepo)(nil)

// AccessLogRepo registro de intentos de inicio de sesión.
type AccessLogRepo struct {
	q Querier
}

func NewAccessLogRepository(q Querier) *AccessLogRepo {
	return &AccessLogRepo{q: q}
}

func (r *AccessLogRepo) Append(ctx context.Context, entry *entity.AccessLogEntry) error {
	err := r.q.QueryRow(ctx,
		`INSERT INTO access_log (username, ts, success) VALUES ($1, $2, $3) RETURNING id`,
		entry.Username, entry.Timestamp, entry.Success,
	).Scan(&entry.ID)
	if err != nil {
		return fmt.Errorf("insert access log: %w", classify(err, false))
	}
	return nil
}

func (r *AccessLogRepo) List(ctx context.Context, filter entity.AccessLogFilter) ([]*entity.AccessLogEntry, error) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if filter.From != nil {
		add("ts >= $%d", *filter.From)
	}
	if filter.To != nil {
		add("ts <= $%d", *filter.To)
	}
	if filter.Username != nil {
		add("username = $%d", *filter.Username)
	}
	if filter.Success != nil {
		add("success = $%d", *filter.Success)
	}
	query := `SELECT id, username, ts, success FROM access_log`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	if filter.Limit > 0 {
		// Los N más recientes, devueltos en orden ascendente.
		args = append(args, filter.Limit)
		query = fmt.Sprintf("SELECT * FROM (%s ORDER BY ts DESC, id DESC LIMIT $%d) recent", query, len(args))
	}
	query += " ORDER BY ts, id"

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list access log: %w", classify(err, false))
	}
	defer rows.Close()
	var list []*entity.AccessLogEntry
	for rows.Next() {
		var e entity.AccessLogEntry
		if err := rows.Scan(&e.ID, &e.Username, &e.Timestamp, &e.Success); err != nil {
			return nil, err
		}
		e.Timestamp = e.Timestamp.UTC()
		list = append(list, &e)
	}
	return list, classify(rows.Err(), false)
}
