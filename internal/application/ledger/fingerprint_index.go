package ledger

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/ekk0s/nfe-ledger/internal/domain/repository"
)

// FingerprintIndex atajo para descartar duplicados antes de abrir una transacción.
// Solo cachea positivos: el ledger es append-only y una huella vista no deja de estarlo.
// La garantía de unicidad es la restricción UNIQUE del almacenamiento, no este índice.
type FingerprintIndex struct {
	docs  repository.DocumentRepository
	cache *lru.Cache[string, struct{}]
}

// NewFingerprintIndex construye el índice con un caché LRU de size entradas (mínimo 1).
func NewFingerprintIndex(docs repository.DocumentRepository, size int) (*FingerprintIndex, error) {
	if size < 1 {
		size = 1
	}
	cache, err := lru.New[string, struct{}](size)
	if err != nil {
		return nil, fmt.Errorf("crear caché de huellas: %w", err)
	}
	return &FingerprintIndex{docs: docs, cache: cache}, nil
}

// AlreadySeen indica si la huella ya fue aplicada.
func (i *FingerprintIndex) AlreadySeen(ctx context.Context, fingerprint string) (bool, error) {
	if i.cache.Contains(fingerprint) {
		return true, nil
	}
	seen, err := i.docs.ExistsByFingerprint(ctx, fingerprint)
	if err != nil {
		return false, err
	}
	if seen {
		i.cache.Add(fingerprint, struct{}{})
	}
	return seen, nil
}

// Remember marca una huella recién confirmada.
func (i *FingerprintIndex) Remember(fingerprint string) {
	i.cache.Add(fingerprint, struct{}{})
}
