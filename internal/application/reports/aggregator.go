// Package reports lecturas puras sobre el ledger: resumen financiero por rango, historial
// filtrado de documentos y de movimientos. Sin caché: cada llamada lee el estado confirmado.
package reports

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ekk0s/nfe-ledger/internal/domain"
	"github.com/ekk0s/nfe-ledger/internal/domain/entity"
	"github.com/ekk0s/nfe-ledger/internal/domain/fiscal"
	"github.com/ekk0s/nfe-ledger/internal/domain/repository"
)

// Aggregator calcula reportes sobre repositorios fuera de transacción.
type Aggregator struct {
	documents      repository.DocumentRepository
	movements      repository.MovementRepository
	counterparties repository.CounterpartyRepository
}

// NewAggregator construye el agregador.
func NewAggregator(documents repository.DocumentRepository, movements repository.MovementRepository, counterparties repository.CounterpartyRepository) *Aggregator {
	return &Aggregator{documents: documents, movements: movements, counterparties: counterparties}
}

// FinancialSummary suma cantidad × valor unitario por dirección en [from, to] (fechas de
// calendario, inclusivo). Un rango invertido o sin movimientos devuelve ceros.
func (a *Aggregator) FinancialSummary(ctx context.Context, from, to time.Time) (entity.FinancialSummary, error) {
	from, to = calendarDate(from), calendarDate(to)
	zero := entity.FinancialSummary{TotalIn: decimal.Zero, TotalOut: decimal.Zero, Balance: decimal.Zero}
	if from.After(to) {
		return zero, nil
	}
	totals, err := a.movements.SumByDirection(ctx, from, to)
	if err != nil {
		return zero, fmt.Errorf("resumen financiero: %w", err)
	}
	return entity.FinancialSummary{
		TotalIn:  totals.In,
		TotalOut: totals.Out,
		Balance:  totals.In.Sub(totals.Out),
	}, nil
}

// MovementHistory devuelve los movimientos que cumplen todos los filtros presentes,
// ordenados por fecha de emisión y luego por orden de inserción.
func (a *Aggregator) MovementHistory(ctx context.Context, filter entity.MovementFilter) ([]*entity.Movement, error) {
	if err := fiscal.ValidateStruct(filter); err != nil {
		return nil, err
	}
	if filter.DateFrom != nil {
		d := calendarDate(*filter.DateFrom)
		filter.DateFrom = &d
	}
	if filter.DateTo != nil {
		d := calendarDate(*filter.DateTo)
		filter.DateTo = &d
	}
	if filter.DateFrom != nil && filter.DateTo != nil && filter.DateFrom.After(*filter.DateTo) {
		return []*entity.Movement{}, nil
	}
	movs, err := a.movements.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("historial de movimientos: %w", err)
	}
	if movs == nil {
		movs = []*entity.Movement{}
	}
	return movs, nil
}

// DocumentHistory lista documentos aplicados con clave, fecha, tipo, contraparte y total,
// ordenados por fecha de emisión y luego por orden de inserción.
func (a *Aggregator) DocumentHistory(ctx context.Context, filter entity.DocumentFilter) ([]*entity.DocumentSummary, error) {
	if err := fiscal.ValidateStruct(filter); err != nil {
		return nil, err
	}
	if filter.DateFrom != nil {
		d := calendarDate(*filter.DateFrom)
		filter.DateFrom = &d
	}
	if filter.DateTo != nil {
		d := calendarDate(*filter.DateTo)
		filter.DateTo = &d
	}
	if filter.DateFrom != nil && filter.DateTo != nil && filter.DateFrom.After(*filter.DateTo) {
		return []*entity.DocumentSummary{}, nil
	}
	docs, err := a.documents.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("historial de documentos: %w", err)
	}
	if docs == nil {
		docs = []*entity.DocumentSummary{}
	}
	return docs, nil
}

// DocumentItems líneas de un documento por seq, en orden de línea. Todo documento
// aplicado tiene al menos una línea: sin resultados es domain.ErrNotFound.
func (a *Aggregator) DocumentItems(ctx context.Context, seq int64) ([]*entity.Movement, error) {
	movs, err := a.movements.List(ctx, entity.MovementFilter{DocumentSeq: &seq})
	if err != nil {
		return nil, fmt.Errorf("líneas del documento %d: %w", seq, err)
	}
	if len(movs) == 0 {
		return nil, fmt.Errorf("%w: documento %d", domain.ErrNotFound, seq)
	}
	return movs, nil
}

// DocumentItemsByFingerprint resuelve la huella y devuelve el documento con sus líneas.
func (a *Aggregator) DocumentItemsByFingerprint(ctx context.Context, fingerprint string) (*entity.DocumentSummary, []*entity.Movement, error) {
	doc, err := a.documents.GetByFingerprint(ctx, fingerprint)
	if err != nil {
		return nil, nil, fmt.Errorf("buscar documento: %w", err)
	}
	movs, err := a.DocumentItems(ctx, doc.Seq)
	if err != nil {
		return nil, nil, err
	}
	return doc, movs, nil
}

// Counterparties lista las contrapartes conocidas (para selectores de filtro).
func (a *Aggregator) Counterparties(ctx context.Context) ([]*entity.Counterparty, error) {
	list, err := a.counterparties.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listar contrapartes: %w", err)
	}
	if list == nil {
		list = []*entity.Counterparty{}
	}
	return list, nil
}

// calendarDate descarta la hora conservando el día en el huso del valor recibido.
func calendarDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
