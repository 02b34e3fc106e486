package sqlite

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/ekk0s/nfe-ledger/internal/domain"
	"github.com/ekk0s/nfe-ledger/internal/domain/entity"
	"github.com/ekk0s/nfe-ledger/internal/domain/fiscal"
	"github.com/ekk0s/nfe-ledger/internal/domain/repository"
)

var _ repository.DocumentRepository = (*DocumentRepository)(nil)

// DocumentRepository índice persistente de huellas.
type DocumentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func (r *DocumentRepository) Insert(ctx context.Context, doc *entity.Document) error {
	m := documentModel{
		Fingerprint:       doc.Fingerprint,
		AccessKey:         doc.AccessKey,
		Kind:              string(doc.Kind),
		Direction:         string(doc.Direction),
		IssueDate:         doc.IssueDate.Format(fiscal.DateLayout),
		CounterpartyTaxID: doc.CounterpartyTaxID,
		Total:             doc.Total,
		LineCount:         doc.LineCount,
		AppliedAt:         doc.AppliedAt,
	}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return classify(err, true)
	}
	doc.Seq = m.Seq
	return nil
}

func (r *DocumentRepository) ExistsByFingerprint(ctx context.Context, fingerprint string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&documentModel{}).Where("fingerprint = ?", fingerprint).Count(&n).Error
	if err != nil {
		return false, classify(err, false)
	}
	return n > 0, nil
}

func (r *DocumentRepository) List(ctx context.Context, filter entity.DocumentFilter) ([]*entity.DocumentSummary, error) {
	q := r.withParty(ctx)
	if filter.DateFrom != nil {
		q = q.Where("documents.issue_date >= ?", filter.DateFrom.Format(fiscal.DateLayout))
	}
	if filter.DateTo != nil {
		q = q.Where("documents.issue_date <= ?", filter.DateTo.Format(fiscal.DateLayout))
	}
	if filter.Direction != nil {
		q = q.Where("documents.direction = ?", string(*filter.Direction))
	}
	if filter.ProductCode != nil {
		q = q.Where("EXISTS (SELECT 1 FROM movements m WHERE m.document_seq = documents.seq AND m.product_code = ?)", *filter.ProductCode)
	}
	if filter.CounterpartyID != nil {
		q = q.Where("counterparties.id = ?", *filter.CounterpartyID)
	}
	var rows []documentRow
	if err := q.Order("documents.issue_date, documents.seq").Scan(&rows).Error; err != nil {
		return nil, classify(err, false)
	}
	out := make([]*entity.DocumentSummary, 0, len(rows))
	for _, row := range rows {
		d, err := row.toEntity()
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

func (r *DocumentRepository) GetByFingerprint(ctx context.Context, fingerprint string) (*entity.DocumentSummary, error) {
	var rows []documentRow
	err := r.withParty(ctx).Where("documents.fingerprint = ?", fingerprint).Limit(1).Scan(&rows).Error
	if err != nil {
		return nil, classify(err, false)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: documento %s", domain.ErrNotFound, fingerprint)
	}
	return rows[0].toEntity()
}

func (r *DocumentRepository) withParty(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Table("documents").
		Select("documents.*, COALESCE(counterparties.name, '') AS counterparty_name").
		Joins("LEFT JOIN counterparties ON counterparties.tax_id = documents.counterparty_tax_id")
}
