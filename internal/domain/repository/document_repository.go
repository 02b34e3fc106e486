package repository

import (
	"context"

	"github.com/ekk0s/nfe-ledger/internal/domain/entity"
)

// DocumentRepository puerto del índice persistente de huellas (tabla documents).
type DocumentRepository interface {
	// Insert registra el documento y asigna Seq. Devuelve domain.ErrDuplicate si la huella ya existe.
	Insert(ctx context.Context, doc *entity.Document) error
	ExistsByFingerprint(ctx context.Context, fingerprint string) (bool, error)
	// List aplica el filtro; orden: fecha de emisión y luego seq.
	List(ctx context.Context, filter entity.DocumentFilter) ([]*entity.DocumentSummary, error)
	// GetByFingerprint devuelve domain.ErrNotFound si la huella no existe.
	GetByFingerprint(ctx context.Context, fingerprint string) (*entity.DocumentSummary, error)
}
