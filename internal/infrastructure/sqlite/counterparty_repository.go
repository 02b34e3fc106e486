package sqlite

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ekk0s/nfe-ledger/internal/domain"
	"github.com/ekk0s/nfe-ledger/internal/domain/entity"
	"github.com/ekk0s/nfe-ledger/internal/domain/repository"
)

var _ repository.CounterpartyRepository = (*CounterpartyRepository)(nil)

type CounterpartyRepository struct {
	db *gorm.DB
}

func NewCounterpartyRepository(db *gorm.DB) *CounterpartyRepository {
	return &CounterpartyRepository{db: db}
}

// Upsert inserta o, si el tax_id existe, sobrescribe el nombre. Un nombre vacío no pisa el existente.
func (r *CounterpartyRepository) Upsert(ctx context.Context, taxID, name string) (*entity.Counterparty, error) {
	now := time.Now().UTC()
	m := counterpartyModel{ID: uuid.NewString(), TaxID: taxID, Name: name, CreatedAt: now, UpdatedAt: now}
	onConflict := clause.OnConflict{
		Columns:   []clause.Column{{Name: "tax_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "updated_at"}),
	}
	if name == "" {
		onConflict = clause.OnConflict{Columns: []clause.Column{{Name: "tax_id"}}, DoNothing: true}
	}
	if err := r.db.WithContext(ctx).Clauses(onConflict).Create(&m).Error; err != nil {
		return nil, classify(err, false)
	}
	return r.GetByTaxID(ctx, taxID)
}

func (r *CounterpartyRepository) GetByTaxID(ctx context.Context, taxID string) (*entity.Counterparty, error) {
	var m counterpartyModel
	err := r.db.WithContext(ctx).Where("tax_id = ?", taxID).Take(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: contraparte %s", domain.ErrNotFound, taxID)
	}
	if err != nil {
		return nil, classify(err, false)
	}
	return m.toEntity(), nil
}

func (r *CounterpartyRepository) List(ctx context.Context) ([]*entity.Counterparty, error) {
	var rows []counterpartyModel
	if err := r.db.WithContext(ctx).Order("tax_id").Find(&rows).Error; err != nil {
		return nil, classify(err, false)
	}
	out := make([]*entity.Counterparty, 0, len(rows))
	for _, m := range rows {
		out = append(out, m.toEntity())
	}
	return out, nil
}
