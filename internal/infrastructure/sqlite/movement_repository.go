package sqlite

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/ekk0s/nfe-ledger/internal/domain/entity"
	"github.com/ekk0s/nfe-ledger/internal/domain/fiscal"
	"github.com/ekk0s/nfe-ledger/internal/domain/repository"
)

var _ repository.MovementRepository = (*MovementRepository)(nil)

const movementColumns = "movements.*, documents.fingerprint AS document_fingerprint"

type MovementRepository struct {
	db *gorm.DB
}

func NewMovementRepository(db *gorm.DB) *MovementRepository {
	return &MovementRepository{db: db}
}

func (r *MovementRepository) Create(ctx context.Context, m *entity.Movement) error {
	row := movementModel{
		ID:             m.ID,
		DocumentSeq:    m.DocumentSeq,
		LineNumber:     m.LineNumber,
		ProductCode:    m.ProductCode,
		Description:    m.Description,
		Direction:      string(m.Direction),
		Quantity:       m.Quantity,
		UnitValue:      m.UnitValue,
		IssueDate:      m.IssueDate.Format(fiscal.DateLayout),
		CounterpartyID: m.CounterpartyID,
	}
	return classify(r.db.WithContext(ctx).Create(&row).Error, false)
}

func (r *MovementRepository) List(ctx context.Context, filter entity.MovementFilter) ([]*entity.Movement, error) {
	q := r.joined(ctx)
	if filter.DateFrom != nil {
		q = q.Where("movements.issue_date >= ?", filter.DateFrom.Format(fiscal.DateLayout))
	}
	if filter.DateTo != nil {
		q = q.Where("movements.issue_date <= ?", filter.DateTo.Format(fiscal.DateLayout))
	}
	if filter.Direction != nil {
		q = q.Where("movements.direction = ?", string(*filter.Direction))
	}
	if filter.ProductCode != nil {
		q = q.Where("movements.product_code = ?", *filter.ProductCode)
	}
	if filter.CounterpartyID != nil {
		q = q.Where("movements.counterparty_id = ?", *filter.CounterpartyID)
	}
	if filter.DocumentSeq != nil {
		q = q.Where("movements.document_seq = ?", *filter.DocumentSeq)
	}
	return r.scan(q.Order("movements.issue_date, movements.document_seq, movements.line_number"))
}

func (r *MovementRepository) ListForReplay(ctx context.Context) ([]*entity.Movement, error) {
	return r.scan(r.joined(ctx).Order("movements.document_seq, movements.line_number"))
}

// SumByDirection suma en Go: SQLite no tiene aritmética decimal exacta.
func (r *MovementRepository) SumByDirection(ctx context.Context, from, to time.Time) (entity.DirectionTotals, error) {
	var rows []movementModel
	err := r.db.WithContext(ctx).
		Select("direction", "quantity", "unit_value").
		Where("issue_date >= ? AND issue_date <= ?", from.Format(fiscal.DateLayout), to.Format(fiscal.DateLayout)).
		Find(&rows).Error
	if err != nil {
		return entity.DirectionTotals{}, classify(err, false)
	}
	var totals entity.DirectionTotals
	for _, m := range rows {
		v := m.Quantity.Mul(m.UnitValue)
		if entity.Direction(m.Direction) == entity.DirectionOut {
			totals.Out = totals.Out.Add(v)
		} else {
			totals.In = totals.In.Add(v)
		}
	}
	return totals, nil
}

func (r *MovementRepository) joined(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Table("movements").
		Select(movementColumns).
		Joins("JOIN documents ON documents.seq = movements.document_seq")
}

func (r *MovementRepository) scan(q *gorm.DB) ([]*entity.Movement, error) {
	var rows []movementRow
	if err := q.Scan(&rows).Error; err != nil {
		return nil, classify(err, false)
	}
	out := make([]*entity.Movement, 0, len(rows))
	for _, row := range rows {
		m, err := row.toEntity()
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}
