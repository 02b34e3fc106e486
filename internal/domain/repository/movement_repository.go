package repository

import (
	"context"
	"time"

	"github.com/ekk0s/nfe-ledger/internal/domain/entity"
)

// MovementRepository puerto del ledger append-only. No existe Update ni Delete.
type MovementRepository interface {
	Create(ctx context.Context, m *entity.Movement) error
	// List aplica el filtro; orden: fecha de emisión y luego orden de inserción (seq, línea).
	List(ctx context.Context, filter entity.MovementFilter) ([]*entity.Movement, error)
	// ListForReplay devuelve todos los movimientos en orden de inserción de documentos.
	ListForReplay(ctx context.Context) ([]*entity.Movement, error)
	// SumByDirection suma cantidad × valor unitario por dirección en [from, to] inclusivo.
	SumByDirection(ctx context.Context, from, to time.Time) (entity.DirectionTotals, error)
}
