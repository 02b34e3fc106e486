package ledger

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/ekk0s/nfe-ledger/internal/application/auth"
	"github.com/ekk0s/nfe-ledger/internal/domain/entity"
	"github.com/ekk0s/nfe-ledger/internal/domain/inventory"
	"github.com/ekk0s/nfe-ledger/internal/domain/repository"
	"github.com/ekk0s/nfe-ledger/pkg/logger"
	"github.com/ekk0s/nfe-ledger/pkg/metrics"
)

// StockProjector expone la proyección de stock y su recomputación desde el ledger.
type StockProjector struct {
	txRunner TxRunner
	products repository.ProductRepository
	policy   auth.Policy
	metrics  *metrics.IngestMetrics
	log      *logger.Logger
}

// NewStockProjector construye el proyector. products es el repositorio fuera de transacción.
func NewStockProjector(txRunner TxRunner, products repository.ProductRepository, policy auth.Policy, m *metrics.IngestMetrics, log *logger.Logger) *StockProjector {
	if log == nil {
		log = logger.Nop()
	}
	return &StockProjector{txRunner: txRunner, products: products, policy: policy, metrics: m, log: log.Named("stock")}
}

// CurrentStock lee la proyección incremental, ordenada por código.
func (p *StockProjector) CurrentStock(ctx context.Context) ([]entity.StockRow, error) {
	rows, err := p.products.ListStock(ctx)
	if err != nil {
		return nil, fmt.Errorf("listar stock: %w", err)
	}
	if rows == nil {
		rows = []entity.StockRow{}
	}
	return rows, nil
}

// RecomputeFromLedger reproduce todos los movimientos en orden de inserción dentro de una
// única instantánea de lectura. El resultado debe coincidir con CurrentStock.
func (p *StockProjector) RecomputeFromLedger(ctx context.Context) ([]entity.StockRow, error) {
	var out []entity.StockRow
	err := p.txRunner.RunSnapshot(ctx, func(productRepo repository.ProductRepository, movRepo repository.MovementRepository) error {
		rows, replayed, err := snapshot(ctx, productRepo, movRepo)
		if err != nil {
			return err
		}
		out = make([]entity.StockRow, 0, len(rows))
		for _, r := range rows {
			out = append(out, entity.StockRow{ProductCode: r.ProductCode, Description: r.Description, Quantity: replayed[r.ProductCode]})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("recomputar stock: %w", err)
	}
	return out, nil
}

// Verify compara proyección y replay en la misma instantánea; vacío = consistente.
func (p *StockProjector) Verify(ctx context.Context) ([]entity.StockDrift, error) {
	var drift []entity.StockDrift
	err := p.txRunner.RunSnapshot(ctx, func(productRepo repository.ProductRepository, movRepo repository.MovementRepository) error {
		rows, replayed, err := snapshot(ctx, productRepo, movRepo)
		if err != nil {
			return err
		}
		drift = inventory.Drift(rows, replayed)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("verificar stock: %w", err)
	}
	p.metrics.SetDrift(len(drift))
	if len(drift) > 0 {
		p.log.Warn().Int("products", len(drift)).Msg("proyección de stock difiere del ledger")
	}
	if drift == nil {
		drift = []entity.StockDrift{}
	}
	return drift, nil
}

// Rebuild reescribe current_quantity con el replay del ledger (vía de recuperación).
// Bloquea todos los productos en orden de código antes de leer los movimientos.
func (p *StockProjector) Rebuild(ctx context.Context, role entity.Role) ([]entity.StockDrift, error) {
	if err := auth.Require(p.policy, role, auth.CapRebuildProjection); err != nil {
		return nil, err
	}
	var fixed []entity.StockDrift
	err := p.txRunner.Run(ctx, func(
		_ repository.DocumentRepository,
		_ repository.CounterpartyRepository,
		productRepo repository.ProductRepository,
		movRepo repository.MovementRepository,
	) error {
		rows, err := productRepo.ListStock(ctx)
		if err != nil {
			return err
		}
		locked := make([]entity.StockRow, 0, len(rows))
		for _, r := range rows {
			prod, err := productRepo.EnsureForUpdate(ctx, r.ProductCode, "")
			if err != nil {
				return err
			}
			locked = append(locked, entity.StockRow{ProductCode: prod.Code, Description: prod.Description, Quantity: prod.CurrentQuantity})
		}
		movs, err := movRepo.ListForReplay(ctx)
		if err != nil {
			return err
		}
		replayed := inventory.Replay(movs)
		fixed = inventory.Drift(locked, replayed)
		for _, d := range fixed {
			if err := productRepo.SetQuantity(ctx, d.ProductCode, d.Replayed); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("reconstruir stock: %w", err)
	}
	p.metrics.SetDrift(0)
	p.log.Info().Int("corrected", len(fixed)).Msg("proyección de stock reconstruida")
	if fixed == nil {
		fixed = []entity.StockDrift{}
	}
	return fixed, nil
}

func snapshot(ctx context.Context, productRepo repository.ProductRepository, movRepo repository.MovementRepository) ([]entity.StockRow, map[string]decimal.Decimal, error) {
	rows, err := productRepo.ListStock(ctx)
	if err != nil {
		return nil, nil, err
	}
	movs, err := movRepo.ListForReplay(ctx)
	if err != nil {
		return nil, nil, err
	}
	return rows, inventory.Replay(movs), nil
}
