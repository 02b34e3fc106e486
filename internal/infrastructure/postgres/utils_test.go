package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/ekk0s/nfe-ledger/internal/domain"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		fingerprint bool
		want        error
	}{
		{"huella duplicada", &pgconn.PgError{Code: "23505", ConstraintName: fingerprintConstraint}, true, domain.ErrDuplicate},
		{"unicidad en otra tabla", &pgconn.PgError{Code: "23505", ConstraintName: "movements_document_seq_line_number_key"}, true, domain.ErrConstraintViolation},
		{"unicidad fuera de documents", &pgconn.PgError{Code: "23505"}, false, domain.ErrConstraintViolation},
		{"foreign key", &pgconn.PgError{Code: "23503"}, false, domain.ErrConstraintViolation},
		{"check", &pgconn.PgError{Code: "23514"}, false, domain.ErrConstraintViolation},
		{"trigger append-only", &pgconn.PgError{Code: "P0001"}, false, domain.ErrConstraintViolation},
		{"conexión", &pgconn.PgError{Code: "08006"}, false, domain.ErrStorageUnavailable},
		{"serialización", &pgconn.PgError{Code: "40001"}, false, domain.ErrStorageUnavailable},
		{"deadlock", &pgconn.PgError{Code: "40P01"}, false, domain.ErrStorageUnavailable},
		{"contexto cancelado", fmt.Errorf("query: %w", context.Canceled), false, domain.ErrStorageUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify(tt.err, tt.fingerprint)
			assert.True(t, errors.Is(got, tt.want), "got %v", got)
		})
	}
}

func TestClassify_NilYDesconocido(t *testing.T) {
	assert.NoError(t, classify(nil, false))
	plain := errors.New("otro")
	assert.Equal(t, plain, classify(plain, false))
}

func TestCommitError_SiempreNoDisponible(t *testing.T) {
	err := commitError(errors.New("conn closed"))
	assert.True(t, errors.Is(err, domain.ErrStorageUnavailable))

	err = commitError(&pgconn.PgError{Code: "23503"})
	assert.True(t, errors.Is(err, domain.ErrConstraintViolation))
}
