package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ekk0s/nfe-ledger/internal/domain"
)

const fingerprintConstraint = "documents_fingerprint_key"

// isUniqueViolation verifica si un error es una violación de constraint único (23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return strings.Contains(err.Error(), "23505")
}

// classify traduce errores de pgx a los centinelas del dominio. fingerprint indica que la
// sentencia es el insert en documents, donde la unicidad de la huella es un duplicado legítimo.
func classify(err error, fingerprint bool) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return unavailable(err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == "23505":
			if fingerprint && (pgErr.ConstraintName == "" || pgErr.ConstraintName == fingerprintConstraint) {
				return fmt.Errorf("%w: %v", domain.ErrDuplicate, err)
			}
			return fmt.Errorf("%w: %v", domain.ErrConstraintViolation, err)
		case strings.HasPrefix(pgErr.Code, "23"), pgErr.Code == "P0001":
			// integrity_constraint_violation y RAISE EXCEPTION del trigger append-only
			return fmt.Errorf("%w: %v", domain.ErrConstraintViolation, err)
		case strings.HasPrefix(pgErr.Code, "08"), strings.HasPrefix(pgErr.Code, "53"),
			strings.HasPrefix(pgErr.Code, "57P"), pgErr.Code == "40001", pgErr.Code == "40P01":
			return unavailable(err)
		}
		return err
	}
	if fingerprint && isUniqueViolation(err) {
		return fmt.Errorf("%w: %v", domain.ErrDuplicate, err)
	}
	if pgconn.Timeout(err) || pgconn.SafeToRetry(err) {
		return unavailable(err)
	}
	return err
}

// unavailable marca err como falla de almacenamiento conservando la cadena original.
func unavailable(err error) error {
	if errors.Is(err, domain.ErrStorageUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
}

// commitError: un commit fallido nunca deja la transacción aplicada, salvo violaciones diferidas.
func commitError(err error) error {
	c := classify(err, false)
	if errors.Is(c, domain.ErrConstraintViolation) {
		return c
	}
	return unavailable(err)
}
