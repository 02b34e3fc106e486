// Package ingestion coordina la importación por lotes: expande fuentes (payloads, ZIPs,
// directorios), parsea y aplica cada documento al ledger en paralelo, y resume el resultado.
// Cada documento es independiente: la falla de uno no afecta a los demás.
package ingestion

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ekk0s/nfe-ledger/internal/application/auth"
	"github.com/ekk0s/nfe-ledger/internal/domain"
	"github.com/ekk0s/nfe-ledger/internal/domain/entity"
	"github.com/ekk0s/nfe-ledger/pkg/logger"
	"github.com/ekk0s/nfe-ledger/pkg/metrics"
)

// DocumentParser convierte bytes en un documento parseado.
type DocumentParser interface {
	Parse(data []byte) (*entity.ParsedDocument, error)
}

// Ledger aplica documentos de forma atómica.
type Ledger interface {
	Apply(ctx context.Context, role entity.Role, doc *entity.ParsedDocument) (*entity.AppliedDocument, error)
}

// SeenChecker atajo opcional de duplicados previo a la transacción.
type SeenChecker interface {
	AlreadySeen(ctx context.Context, fingerprint string) (bool, error)
}

// Failure documento rechazado y el motivo.
type Failure struct {
	Source string
	Reason string
	Err    error
}

// BatchSummary resultado de un lote. Imported + Duplicates + Failed = payloads procesados.
type BatchSummary struct {
	Imported   int
	Duplicates int
	Failed     int
	Failures   []Failure
}

// Config parámetros de la ingesta.
type Config struct {
	Workers           int
	MaxArchiveEntries int
}

// Coordinator orquesta un lote.
type Coordinator struct {
	parser  DocumentParser
	ledger  Ledger
	seen    SeenChecker
	policy  auth.Policy
	metrics *metrics.IngestMetrics
	log     *logger.Logger
	cfg     Config
}

// NewCoordinator construye el coordinador. seen, metrics y log pueden ser nil.
func NewCoordinator(parser DocumentParser, ledger Ledger, seen SeenChecker, policy auth.Policy, m *metrics.IngestMetrics, log *logger.Logger, cfg Config) *Coordinator {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Coordinator{parser: parser, ledger: ledger, seen: seen, policy: policy, metrics: m, log: log.Named("ingestion"), cfg: cfg}
}

type outcome int

const (
	outcomeSkipped outcome = iota // no procesado por aborto del lote
	outcomeImported
	outcomeDuplicate
	outcomeFailed
)

type result struct {
	outcome outcome
	err     error
}

// Import procesa las fuentes. La capacidad se verifica antes de cualquier efecto.
// domain.ErrStorageUnavailable aborta el lote: se devuelve junto con el resumen parcial.
func (c *Coordinator) Import(ctx context.Context, role entity.Role, sources ...Source) (BatchSummary, error) {
	if err := auth.Require(c.policy, role, auth.CapImportDocuments); err != nil {
		return BatchSummary{}, err
	}
	start := time.Now()

	exp := expander{maxEntries: c.cfg.MaxArchiveEntries}
	var items []item
	for _, src := range sources {
		items = append(items, exp.expand(src)...)
	}

	results := make([]result, len(items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.Workers)
	for i, it := range items {
		if it.err != nil {
			results[i] = result{outcome: outcomeFailed, err: it.err}
			continue
		}
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			results[i] = c.process(gctx, role, it)
			if errors.Is(results[i].err, domain.ErrStorageUnavailable) {
				return results[i].err
			}
			return nil
		})
	}
	abortErr := g.Wait()
	if abortErr == nil && ctx.Err() != nil {
		abortErr = ctx.Err()
	}

	summary := summarize(items, results)
	for _, r := range results {
		switch r.outcome {
		case outcomeImported:
			c.metrics.IncDocument(metrics.OutcomeImported)
		case outcomeDuplicate:
			c.metrics.IncDocument(metrics.OutcomeDuplicate)
		case outcomeFailed:
			c.metrics.IncDocument(metrics.OutcomeFailed)
		}
	}
	c.metrics.ObserveBatch(time.Since(start))

	var ev *zerolog.Event
	if abortErr != nil {
		ev = c.log.Error().Err(abortErr)
	} else {
		ev = c.log.Info()
	}
	ev.Int("payloads", len(items)).
		Int("imported", summary.Imported).
		Int("duplicates", summary.Duplicates).
		Int("failed", summary.Failed).
		Dur("elapsed", time.Since(start)).
		Msg("lote de ingesta finalizado")

	if abortErr != nil {
		return summary, fmt.Errorf("lote abortado: %w", abortErr)
	}
	return summary, nil
}

func (c *Coordinator) process(ctx context.Context, role entity.Role, it item) result {
	doc, err := c.parser.Parse(it.data)
	if err != nil {
		c.log.Warn().Str("source", it.source).Err(err).Msg("documento rechazado por el parser")
		return result{outcome: outcomeFailed, err: err}
	}

	if c.seen != nil {
		seen, err := c.seen.AlreadySeen(ctx, doc.Fingerprint)
		if err != nil {
			return result{outcome: outcomeFailed, err: err}
		}
		if seen {
			c.log.Debug().Str("source", it.source).Str("fingerprint", doc.Fingerprint).Msg("duplicado (índice)")
			return result{outcome: outcomeDuplicate}
		}
	}

	if _, err := c.ledger.Apply(ctx, role, doc); err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			c.log.Debug().Str("source", it.source).Str("fingerprint", doc.Fingerprint).Msg("duplicado (ledger)")
			return result{outcome: outcomeDuplicate}
		}
		c.log.Warn().Str("source", it.source).Err(err).Msg("documento no aplicado")
		return result{outcome: outcomeFailed, err: err}
	}
	return result{outcome: outcomeImported}
}

// summarize agrega en orden de entrada; las fallas quedan en el orden de las fuentes.
func summarize(items []item, results []result) BatchSummary {
	var s BatchSummary
	for i, r := range results {
		switch r.outcome {
		case outcomeImported:
			s.Imported++
		case outcomeDuplicate:
			s.Duplicates++
		case outcomeFailed:
			s.Failed++
			s.Failures = append(s.Failures, Failure{Source: items[i].source, Reason: r.err.Error(), Err: r.err})
		}
	}
	return s
}
