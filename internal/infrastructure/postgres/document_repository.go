package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/ekk0s/nfe-ledger/internal/domain"
	"github.com/ekk0s/nfe-ledger/internal/domain/entity"
	"github.com/ekk0s/nfe-ledger/internal/domain/repository"
)

var _ repository.DocumentRepository = (*DocumentRepo)(nil)

const documentSelect = `
	SELECT d.seq, d.fingerprint, d.access_key, d.kind, d.direction, d.issue_date,
	       d.counterparty_tax_id, COALESCE(c.name, ''), d.total, d.line_count
	FROM documents d
	LEFT JOIN counterparties c ON c.tax_id = d.counterparty_tax_id`

// DocumentRepo índice persistente de huellas (usable con pool o tx).
type DocumentRepo struct {
	q Querier
}

// NewDocumentRepository construye el adaptador. Pasar pool o tx (Querier).
func NewDocumentRepository(q Querier) *DocumentRepo {
	return &DocumentRepo{q: q}
}

// Insert registra el documento y asigna Seq. La unicidad de fingerprint decide los duplicados concurrentes.
func (r *DocumentRepo) Insert(ctx context.Context, doc *entity.Document) error {
	query := `
		INSERT INTO documents (fingerprint, access_key, kind, direction, issue_date, counterparty_tax_id, total, line_count, applied_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING seq`
	err := r.q.QueryRow(ctx, query,
		doc.Fingerprint, doc.AccessKey, string(doc.Kind), string(doc.Direction), doc.IssueDate,
		doc.CounterpartyTaxID, doc.Total, doc.LineCount, doc.AppliedAt,
	).Scan(&doc.Seq)
	if err != nil {
		return fmt.Errorf("insert document: %w", classify(err, true))
	}
	return nil
}

func (r *DocumentRepo) ExistsByFingerprint(ctx context.Context, fingerprint string) (bool, error) {
	var exists bool
	err := r.q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM documents WHERE fingerprint = $1)`, fingerprint).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("exists document: %w", classify(err, false))
	}
	return exists, nil
}

// List arma el WHERE con los filtros presentes.
func (r *DocumentRepo) List(ctx context.Context, filter entity.DocumentFilter) ([]*entity.DocumentSummary, error) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if filter.DateFrom != nil {
		add("d.issue_date >= $%d", *filter.DateFrom)
	}
	if filter.DateTo != nil {
		add("d.issue_date <= $%d", *filter.DateTo)
	}
	if filter.Direction != nil {
		add("d.direction = $%d", string(*filter.Direction))
	}
	if filter.ProductCode != nil {
		add("EXISTS (SELECT 1 FROM movements m WHERE m.document_seq = d.seq AND m.product_code = $%d)", *filter.ProductCode)
	}
	if filter.CounterpartyID != nil {
		add("c.id = $%d", *filter.CounterpartyID)
	}
	query := documentSelect
	if len(conds) > 0 {
		query += "\n\tWHERE " + strings.Join(conds, " AND ")
	}
	query += "\n\tORDER BY d.issue_date, d.seq"

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", classify(err, false))
	}
	list, err := pgx.CollectRows(rows, scanDocument)
	if err != nil {
		return nil, fmt.Errorf("scan documents: %w", classify(err, false))
	}
	return list, nil
}

func (r *DocumentRepo) GetByFingerprint(ctx context.Context, fingerprint string) (*entity.DocumentSummary, error) {
	rows, err := r.q.Query(ctx, documentSelect+"\n\tWHERE d.fingerprint = $1", fingerprint)
	if err != nil {
		return nil, fmt.Errorf("get document: %w", classify(err, false))
	}
	list, err := pgx.CollectRows(rows, scanDocument)
	if err != nil {
		return nil, fmt.Errorf("scan document: %w", classify(err, false))
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("%w: documento %s", domain.ErrNotFound, fingerprint)
	}
	return list[0], nil
}

func scanDocument(row pgx.CollectableRow) (*entity.DocumentSummary, error) {
	var (
		d         entity.DocumentSummary
		kind, dir string
	)
	err := row.Scan(&d.Seq, &d.Fingerprint, &d.AccessKey, &kind, &dir, &d.IssueDate,
		&d.CounterpartyTaxID, &d.CounterpartyName, &d.Total, &d.LineCount)
	d.Kind = entity.DocumentKind(kind)
	d.Direction = entity.Direction(dir)
	d.IssueDate = d.IssueDate.UTC()
	return &d, err
}
