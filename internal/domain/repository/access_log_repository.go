package repository

import (
	"context"

	"github.com/ekk0s/nfe-ledger/internal/domain/entity"
)

// AccessLogRepository puerto del registro de accesos (append-only).
type AccessLogRepository interface {
	Append(ctx context.Context, entry *entity.AccessLogEntry) error
	// List ordena por timestamp ascendente y luego por ID.
	List(ctx context.Context, filter entity.AccessLogFilter) ([]*entity.AccessLogEntry, error)
}
