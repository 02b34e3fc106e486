package ledger

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ekk0s/nfe-ledger/internal/application/auth"
	"github.com/ekk0s/nfe-ledger/internal/application/dto"
	"github.com/ekk0s/nfe-ledger/internal/domain"
	"github.com/ekk0s/nfe-ledger/internal/domain/entity"
	"github.com/ekk0s/nfe-ledger/internal/domain/fiscal"
	"github.com/ekk0s/nfe-ledger/internal/domain/repository"
	"github.com/ekk0s/nfe-ledger/pkg/logger"
	"github.com/ekk0s/nfe-ledger/pkg/metrics"
	"github.com/ekk0s/nfe-ledger/pkg/taxid"
)

// Options reglas opcionales del ledger.
type Options struct {
	// ForbidNegativeStock rechaza con domain.ErrInsufficientStock un documento que deje
	// algún producto con cantidad negativa. Por defecto se acepta y se refleja tal cual.
	ForbidNegativeStock bool
	Now                 func() time.Time
}

// Service aplica documentos al ledger de forma transaccional y mantiene la proyección
// de stock en la misma transacción (SELECT FOR UPDATE sobre los productos tocados).
type Service struct {
	txRunner TxRunner
	policy   auth.Policy
	index    *FingerprintIndex
	metrics  *metrics.IngestMetrics
	log      *logger.Logger
	opts     Options
}

// NewService construye el servicio. index, metrics y log pueden ser nil.
func NewService(txRunner TxRunner, policy auth.Policy, index *FingerprintIndex, m *metrics.IngestMetrics, log *logger.Logger, opts Options) *Service {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Service{txRunner: txRunner, policy: policy, index: index, metrics: m, log: log.Named("ledger"), opts: opts}
}

// Index devuelve el índice de huellas compartido (puede ser nil).
func (s *Service) Index() *FingerprintIndex { return s.index }

// Apply registra el documento: inserta la huella, actualiza la contraparte, asegura los
// productos, escribe un movimiento por línea y ajusta current_quantity, todo en una
// transacción. Una huella existente devuelve domain.ErrDuplicate sin efectos.
func (s *Service) Apply(ctx context.Context, role entity.Role, doc *entity.ParsedDocument) (*entity.AppliedDocument, error) {
	if err := auth.Require(s.policy, role, auth.CapImportDocuments); err != nil {
		return nil, err
	}
	return s.apply(ctx, doc)
}

func (s *Service) apply(ctx context.Context, doc *entity.ParsedDocument) (*entity.AppliedDocument, error) {
	if err := fiscal.ValidateDocument(doc); err != nil {
		return nil, err
	}
	start := s.opts.Now()
	var applied *entity.AppliedDocument
	err := s.txRunner.Run(ctx, func(
		docRepo repository.DocumentRepository,
		partyRepo repository.CounterpartyRepository,
		productRepo repository.ProductRepository,
		movRepo repository.MovementRepository,
	) error {
		var err error
		applied, err = s.applyInTx(ctx, docRepo, partyRepo, productRepo, movRepo, doc, start)
		return err
	})
	if err != nil {
		if errors.Is(err, domain.ErrDuplicate) && s.index != nil {
			s.index.Remember(doc.Fingerprint)
		}
		return nil, err
	}

	if s.index != nil {
		s.index.Remember(doc.Fingerprint)
	}
	s.metrics.AddMovements(len(applied.Movements))
	s.metrics.ObserveApply(s.opts.Now().Sub(start))
	s.log.Info().
		Str("fingerprint", doc.Fingerprint).
		Str("access_key", doc.AccessKey).
		Str("direction", string(doc.Direction)).
		Int64("seq", applied.Document.Seq).
		Int("lines", len(applied.Movements)).
		Msg("documento aplicado")
	return applied, nil
}

func (s *Service) applyInTx(
	ctx context.Context,
	docRepo repository.DocumentRepository,
	partyRepo repository.CounterpartyRepository,
	productRepo repository.ProductRepository,
	movRepo repository.MovementRepository,
	doc *entity.ParsedDocument,
	now time.Time,
) (*entity.AppliedDocument, error) {
	// 1) Huella primero: un duplicado aborta antes de tocar cualquier otra fila
	record := &entity.Document{
		Fingerprint:       doc.Fingerprint,
		AccessKey:         doc.AccessKey,
		Kind:              doc.Kind,
		Direction:         doc.Direction,
		IssueDate:         doc.IssueDate,
		CounterpartyTaxID: doc.Counterparty.TaxID,
		Total:             doc.Total,
		LineCount:         len(doc.Lines),
		AppliedAt:         now.UTC(),
	}
	if err := docRepo.Insert(ctx, record); err != nil {
		return nil, err
	}

	// 2) Contraparte (el nombre más reciente gana)
	var partyID *string
	if doc.Counterparty.TaxID != "" {
		party, err := partyRepo.Upsert(ctx, doc.Counterparty.TaxID, doc.Counterparty.Name)
		if err != nil {
			return nil, err
		}
		partyID = &party.ID
	}

	// 3) Productos bloqueados en orden ascendente de código para evitar deadlocks
	descriptions, codes := lastDescriptions(doc.Lines)
	current := make(map[string]decimal.Decimal, len(codes))
	for _, code := range codes {
		product, err := productRepo.EnsureForUpdate(ctx, code, descriptions[code])
		if err != nil {
			return nil, err
		}
		if d := descriptions[code]; d != "" && product.Description != d {
			if product.Description != "" {
				s.log.Warn().Str("product_code", code).
					Str("previous", product.Description).Str("current", d).
					Msg("descripción de producto cambiada por documento más reciente")
			}
			if err := productRepo.UpdateDescription(ctx, code, d); err != nil {
				return nil, err
			}
		}
		current[code] = product.CurrentQuantity
	}

	// 4) Un movimiento por línea, en orden del documento
	deltas := make(map[string]decimal.Decimal, len(codes))
	movements := make([]*entity.Movement, 0, len(doc.Lines))
	for i, line := range doc.Lines {
		m := &entity.Movement{
			ID:                  uuid.New().String(),
			DocumentSeq:         record.Seq,
			DocumentFingerprint: record.Fingerprint,
			LineNumber:          i + 1,
			ProductCode:         line.ProductCode,
			Description:         line.Description,
			Direction:           doc.Direction,
			Quantity:            line.Quantity,
			UnitValue:           line.UnitValue,
			IssueDate:           doc.IssueDate,
			CounterpartyID:      partyID,
		}
		if err := movRepo.Create(ctx, m); err != nil {
			return nil, err
		}
		deltas[line.ProductCode] = deltas[line.ProductCode].Add(m.SignedQuantity())
		movements = append(movements, m)
	}

	// 5) Proyección incremental
	for _, code := range codes {
		delta := deltas[code]
		if s.opts.ForbidNegativeStock && current[code].Add(delta).IsNegative() {
			return nil, fmt.Errorf("%w: producto %s quedaría en %s", domain.ErrInsufficientStock, code, current[code].Add(delta).String())
		}
		if delta.IsZero() {
			continue
		}
		if err := productRepo.AddQuantity(ctx, code, delta); err != nil {
			return nil, err
		}
	}
	return &entity.AppliedDocument{Document: record, Movements: movements}, nil
}

// lastDescriptions devuelve la última descripción no vacía por código y los códigos ordenados.
func lastDescriptions(lines []entity.LineItem) (map[string]string, []string) {
	desc := make(map[string]string, len(lines))
	var codes []string
	for _, l := range lines {
		if _, ok := desc[l.ProductCode]; !ok {
			codes = append(codes, l.ProductCode)
			desc[l.ProductCode] = ""
		}
		if l.Description != "" {
			desc[l.ProductCode] = l.Description
		}
	}
	sort.Strings(codes)
	return desc, codes
}

// ── Operaciones manuales ──────────────────────────────────────────────────────

// RegisterProduct crea o renombra un producto. Una cantidad inicial distinta de cero se
// registra en la misma transacción como documento de ajuste, de modo que el replay del
// ledger la reproduce.
func (s *Service) RegisterProduct(ctx context.Context, role entity.Role, in dto.RegisterProductInput) (*entity.Product, error) {
	if err := auth.Require(s.policy, role, auth.CapRegisterProducts); err != nil {
		return nil, err
	}
	in.Code = strings.TrimSpace(in.Code)
	in.Description = strings.TrimSpace(in.Description)
	if err := fiscal.ValidateStruct(in); err != nil {
		return nil, err
	}

	if !in.InitialQuantity.IsZero() {
		doc := s.adjustmentDocument(in.Code, in.Description, in.InitialQuantity, in.UnitValue, time.Time{})
		applied, err := s.apply(ctx, doc)
		if err != nil {
			return nil, err
		}
		s.log.Info().Str("product_code", in.Code).Str("quantity", in.InitialQuantity.String()).
			Int64("seq", applied.Document.Seq).Msg("producto registrado con cantidad inicial")
	} else {
		err := s.txRunner.Run(ctx, func(
			_ repository.DocumentRepository,
			_ repository.CounterpartyRepository,
			productRepo repository.ProductRepository,
			_ repository.MovementRepository,
		) error {
			p, err := productRepo.EnsureForUpdate(ctx, in.Code, in.Description)
			if err != nil {
				return err
			}
			if p.Description != in.Description {
				return productRepo.UpdateDescription(ctx, in.Code, in.Description)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		s.log.Info().Str("product_code", in.Code).Msg("producto registrado")
	}
	return s.product(ctx, in.Code)
}

// RegisterCounterparty da de alta (o renombra) una contraparte validando CNPJ/CPF.
func (s *Service) RegisterCounterparty(ctx context.Context, role entity.Role, in dto.RegisterCounterpartyInput) (*entity.Counterparty, error) {
	if err := auth.Require(s.policy, role, auth.CapRegisterCounterparties); err != nil {
		return nil, err
	}
	in.Name = strings.TrimSpace(in.Name)
	if err := fiscal.ValidateStruct(in); err != nil {
		return nil, err
	}
	if err := taxid.Validate(in.TaxID); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	var party *entity.Counterparty
	err := s.txRunner.Run(ctx, func(
		_ repository.DocumentRepository,
		partyRepo repository.CounterpartyRepository,
		_ repository.ProductRepository,
		_ repository.MovementRepository,
	) error {
		var err error
		party, err = partyRepo.Upsert(ctx, taxid.Normalize(in.TaxID), in.Name)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("tax_id", party.TaxID).Msg("contraparte registrada")
	return party, nil
}

// Adjust registra un movimiento correctivo como documento sintético de tipo ADJUSTMENT.
// Los movimientos existentes nunca se editan.
func (s *Service) Adjust(ctx context.Context, role entity.Role, in dto.AdjustmentInput) (*entity.AppliedDocument, error) {
	if err := auth.Require(s.policy, role, auth.CapAdjustStock); err != nil {
		return nil, err
	}
	in.ProductCode = strings.TrimSpace(in.ProductCode)
	if err := fiscal.ValidateStruct(in); err != nil {
		return nil, err
	}
	if in.Quantity.IsZero() {
		return nil, fmt.Errorf("%w: la cantidad del ajuste no puede ser cero", domain.ErrInvalidInput)
	}
	doc := s.adjustmentDocument(in.ProductCode, strings.TrimSpace(in.Description), in.Quantity, in.UnitValue, in.Date)
	return s.apply(ctx, doc)
}

// adjustmentDocument construye un documento de una línea; el signo de qty define la dirección.
// La huella es aleatoria: dos ajustes idénticos son dos hechos distintos.
func (s *Service) adjustmentDocument(code, description string, qty, unitValue decimal.Decimal, date time.Time) *entity.ParsedDocument {
	dir := entity.DirectionIn
	if qty.IsNegative() {
		dir = entity.DirectionOut
	}
	if date.IsZero() {
		date = s.opts.Now()
	}
	y, m, d := date.Date()
	id := uuid.New().String()
	sum := sha256.Sum256([]byte("ajuste|" + id))
	return &entity.ParsedDocument{
		Fingerprint: hex.EncodeToString(sum[:]),
		AccessKey:   "AJ" + strings.ReplaceAll(id, "-", ""),
		Kind:        entity.DocumentKindAdjustment,
		Direction:   dir,
		IssueDate:   time.Date(y, m, d, 0, 0, 0, 0, time.UTC),
		Total:       qty.Abs().Mul(unitValue),
		Lines: []entity.LineItem{{
			ProductCode: code,
			Description: description,
			Quantity:    qty.Abs(),
			UnitValue:   unitValue,
		}},
	}
}

func (s *Service) product(ctx context.Context, code string) (*entity.Product, error) {
	var out *entity.Product
	err := s.txRunner.RunSnapshot(ctx, func(productRepo repository.ProductRepository, _ repository.MovementRepository) error {
		p, err := productRepo.GetByCode(ctx, code)
		if err != nil {
			return err
		}
		if p == nil {
			return fmt.Errorf("%w: producto %s", domain.ErrNotFound, code)
		}
		out = p
		return nil
	})
	return out, err
}
