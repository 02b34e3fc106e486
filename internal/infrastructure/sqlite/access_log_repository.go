package sqlite

import (
	"context"

	"gorm.io/gorm"

	"github.com/ekk0s/nfe-ledger/internal/domain/entity"
	"github.com/ekk0s/nfe-ledger/internal/domain/repository"
)

var _ repository.AccessLogRepository = (*AccessLogRepository)(nil)

type AccessLogRepository struct {
	db *gorm.DB
}

func NewAccessLogRepository(db *gorm.DB) *AccessLogRepository {
	return &AccessLogRepository{db: db}
}

func (r *AccessLogRepository) Append(ctx context.Context, entry *entity.AccessLogEntry) error {
	m := accessLogModel{Username: entry.Username, TsUnixNano: entry.Timestamp.UnixNano(), Success: entry.Success}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return classify(err, false)
	}
	entry.ID = m.ID
	return nil
}

func (r *AccessLogRepository) List(ctx context.Context, filter entity.AccessLogFilter) ([]*entity.AccessLogEntry, error) {
	q := r.db.WithContext(ctx).Model(&accessLogModel{})
	if filter.From != nil {
		q = q.Where("ts_unix_nano >= ?", filter.From.UnixNano())
	}
	if filter.To != nil {
		q = q.Where("ts_unix_nano <= ?", filter.To.UnixNano())
	}
	if filter.Username != nil {
		q = q.Where("username = ?", *filter.Username)
	}
	if filter.Success != nil {
		q = q.Where("success = ?", *filter.Success)
	}
	var (
		rows []accessLogModel
		err  error
	)
	if filter.Limit > 0 {
		// Los N más recientes, devueltos en orden ascendente.
		recent := q.Order("ts_unix_nano DESC, id DESC").Limit(filter.Limit)
		err = r.db.WithContext(ctx).Table("(?) AS recent", recent).Order("ts_unix_nano, id").Find(&rows).Error
	} else {
		err = q.Order("ts_unix_nano, id").Find(&rows).Error
	}
	if err != nil {
		return nil, classify(err, false)
	}
	out := make([]*entity.AccessLogEntry, 0, len(rows))
	for _, m := range rows {
		out = append(out, m.toEntity())
	}
	return out, nil
}
