package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ekk0s/nfe-ledger/internal/domain"
	"github.com/ekk0s/nfe-ledger/internal/domain/entity"
	"github.com/ekk0s/nfe-ledger/internal/domain/fiscal"
	"github.com/ekk0s/nfe-ledger/internal/domain/repository"
	"github.com/ekk0s/nfe-ledger/pkg/logger"
)

// AccessLogUseCase registro append-only de intentos de inicio de sesión.
// La verificación de credenciales y el bloqueo temporal viven fuera de este núcleo.
type AccessLogUseCase struct {
	repo   repository.AccessLogRepository
	policy Policy
	now    func() time.Time
	log    *logger.Logger
}

// NewAccessLogUseCase construye el caso de uso. now nil usa time.Now.
func NewAccessLogUseCase(repo repository.AccessLogRepository, policy Policy, now func() time.Time, log *logger.Logger) *AccessLogUseCase {
	if now == nil {
		now = time.Now
	}
	if log == nil {
		log = logger.Nop()
	}
	return &AccessLogUseCase{repo: repo, policy: policy, now: now, log: log.Named("access_log")}
}

// RecordAttempt persiste un intento con timestamp del reloj inyectado (UTC).
func (uc *AccessLogUseCase) RecordAttempt(ctx context.Context, username string, success bool) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return fmt.Errorf("%w: usuario vacío", domain.ErrInvalidInput)
	}
	entry := &entity.AccessLogEntry{
		Username:  username,
		Timestamp: uc.now().UTC(),
		Success:   success,
	}
	if err := uc.repo.Append(ctx, entry); err != nil {
		return fmt.Errorf("registrar acceso: %w", err)
	}
	return nil
}

// Hook devuelve un callback de mejor esfuerzo para la capa de login: los errores de
// almacenamiento se registran en el log y nunca bloquean el inicio de sesión.
func (uc *AccessLogUseCase) Hook(ctx context.Context) func(username string, success bool) {
	return func(username string, success bool) {
		if err := uc.RecordAttempt(ctx, username, success); err != nil {
			uc.log.Error().Err(err).Str("username", username).Bool("success", success).
				Msg("no se pudo registrar el intento de acceso")
		}
	}
}

// QueryAttempts lista intentos filtrados, ordenados por timestamp ascendente. Requiere CapViewAccessLog.
func (uc *AccessLogUseCase) QueryAttempts(ctx context.Context, role entity.Role, filter entity.AccessLogFilter) ([]*entity.AccessLogEntry, error) {
	if err := Require(uc.policy, role, CapViewAccessLog); err != nil {
		return nil, err
	}
	if err := fiscal.ValidateStruct(filter); err != nil {
		return nil, err
	}
	if filter.From != nil && filter.To != nil && filter.From.After(*filter.To) {
		return []*entity.AccessLogEntry{}, nil
	}
	entries, err := uc.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("consultar accesos: %w", err)
	}
	if entries == nil {
		entries = []*entity.AccessLogEntry{}
	}
	return entries, nil
}
