package sqlite

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ekk0s/nfe-ledger/internal/domain"
	"github.com/ekk0s/nfe-ledger/internal/domain/entity"
	"github.com/ekk0s/nfe-ledger/internal/domain/repository"
)

var _ repository.ProductRepository = (*ProductRepository)(nil)

// ProductRepository productos y proyección de stock. En SQLite el bloqueo de fila lo da
// la transacción IMMEDIATE (un único escritor), por eso AddQuantity es leer-sumar-escribir.
type ProductRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

func (r *ProductRepository) EnsureForUpdate(ctx context.Context, code, description string) (*entity.Product, error) {
	m := productModel{Code: code, Description: description, CurrentQuantity: decimal.Zero, UpdatedAt: time.Now().UTC()}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "code"}}, DoNothing: true}).
		Create(&m).Error
	if err != nil {
		return nil, classify(err, false)
	}
	return r.GetByCode(ctx, code)
}

func (r *ProductRepository) UpdateDescription(ctx context.Context, code, description string) error {
	res := r.db.WithContext(ctx).Model(&productModel{}).Where("code = ?", code).
		Updates(map[string]interface{}{"description": description, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return classify(res.Error, false)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: producto %s", domain.ErrNotFound, code)
	}
	return nil
}

func (r *ProductRepository) AddQuantity(ctx context.Context, code string, delta decimal.Decimal) error {
	p, err := r.GetByCode(ctx, code)
	if err != nil {
		return err
	}
	return r.SetQuantity(ctx, code, p.CurrentQuantity.Add(delta))
}

func (r *ProductRepository) SetQuantity(ctx context.Context, code string, quantity decimal.Decimal) error {
	res := r.db.WithContext(ctx).Model(&productModel{}).Where("code = ?", code).
		Updates(map[string]interface{}{"current_quantity": quantity, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return classify(res.Error, false)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: producto %s", domain.ErrNotFound, code)
	}
	return nil
}

func (r *ProductRepository) GetByCode(ctx context.Context, code string) (*entity.Product, error) {
	var m productModel
	err := r.db.WithContext(ctx).Where("code = ?", code).Take(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: producto %s", domain.ErrNotFound, code)
	}
	if err != nil {
		return nil, classify(err, false)
	}
	return m.toEntity(), nil
}

func (r *ProductRepository) ListStock(ctx context.Context) ([]entity.StockRow, error) {
	var rows []productModel
	if err := r.db.WithContext(ctx).Order("code").Find(&rows).Error; err != nil {
		return nil, classify(err, false)
	}
	out := make([]entity.StockRow, 0, len(rows))
	for _, m := range rows {
		out = append(out, entity.StockRow{ProductCode: m.Code, Description: m.Description, Quantity: m.CurrentQuantity})
	}
	return out, nil
}
