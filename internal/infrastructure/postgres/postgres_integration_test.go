package postgres_test

import (
	"context"
	"encoding/hex"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekk0s/nfe-ledger/internal/domain"
	"github.com/ekk0s/nfe-ledger/internal/domain/entity"
	"github.com/ekk0s/nfe-ledger/internal/domain/repository"
	"github.com/ekk0s/nfe-ledger/internal/infrastructure/postgres"
	"github.com/ekk0s/nfe-ledger/pkg/config"
)

// Las pruebas de integración requieren una base descartable en NFE_TEST_DATABASE_URL.

func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	url := os.Getenv("NFE_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("NFE_TEST_DATABASE_URL no definido")
	}
	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, config.DBConfig{DatabaseURL: url, MaxConns: 8})
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	_, err = postgres.Migrate(ctx, pool)
	require.NoError(t, err)
	_, err = pool.Exec(ctx, `ALTER TABLE movements DISABLE TRIGGER movements_append_only`)
	require.NoError(t, err)
	_, err = pool.Exec(ctx, `TRUNCATE movements, documents, products, counterparties, access_log RESTART IDENTITY CASCADE`)
	require.NoError(t, err)
	_, err = pool.Exec(ctx, `ALTER TABLE movements ENABLE TRIGGER movements_append_only`)
	require.NoError(t, err)
	return pool
}

func randomFingerprint() string {
	a, b := uuid.New(), uuid.New()
	return hex.EncodeToString(append(a[:], b[:]...))
}

// ── TxRunner ──────────────────────────────────────────────────────────────────

func TestPostgres_DuplicadoConcurrente(t *testing.T) {
	pool := testPool(t)
	runner := postgres.NewTxRunner(pool)
	ctx := context.Background()
	fingerprint := randomFingerprint()

	const n = 8
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := runner.Run(ctx, func(docRepo repository.DocumentRepository, _ repository.CounterpartyRepository, productRepo repository.ProductRepository, _ repository.MovementRepository) error {
				if err := docRepo.Insert(ctx, &entity.Document{
					Fingerprint: fingerprint, Kind: entity.DocumentKindNFe, Direction: entity.DirectionIn,
					IssueDate: time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC), LineCount: 1, AppliedAt: time.Now(),
				}); err != nil {
					return err
				}
				if _, err := productRepo.EnsureForUpdate(ctx, "COD123", ""); err != nil {
					return err
				}
				return productRepo.AddQuantity(ctx, "COD123", decimal.NewFromInt(5))
			})
			mu.Lock()
			errs = append(errs, err)
			mu.Unlock()
		}()
	}
	wg.Wait()

	var ok, dup int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, domain.ErrDuplicate):
			dup++
		default:
			t.Fatalf("error inesperado: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, n-1, dup)

	p, err := postgres.NewProductRepository(pool).GetByCode(ctx, "COD123")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(5).Equal(p.CurrentQuantity))
}

// ── Repositorios ──────────────────────────────────────────────────────────────

func TestPostgres_MovimientosYSumas(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	docs := postgres.NewDocumentRepository(pool)
	products := postgres.NewProductRepository(pool)
	movs := postgres.NewMovementRepository(pool)

	insert := func(dir entity.Direction, issue time.Time, qty, unit string) {
		doc := &entity.Document{Fingerprint: randomFingerprint(), Kind: entity.DocumentKindNFe, Direction: dir, IssueDate: issue, LineCount: 1, AppliedAt: time.Now()}
		require.NoError(t, docs.Insert(ctx, doc))
		_, err := products.EnsureForUpdate(ctx, "COD123", "Parafuso")
		require.NoError(t, err)
		require.NoError(t, movs.Create(ctx, &entity.Movement{
			ID: uuid.NewString(), DocumentSeq: doc.Seq, LineNumber: 1, ProductCode: "COD123", Direction: dir,
			Quantity: decimal.RequireFromString(qty), UnitValue: decimal.RequireFromString(unit), IssueDate: issue,
		}))
	}
	insert(entity.DirectionIn, time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC), "50", "10")
	insert(entity.DirectionOut, time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC), "20", "12.5")

	totals, err := movs.SumByDirection(ctx, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(500).Equal(totals.In))
	assert.True(t, decimal.NewFromInt(250).Equal(totals.Out))

	out := entity.DirectionOut
	list, err := movs.List(ctx, entity.MovementFilter{Direction: &out})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "2024-01-20", list[0].IssueDate.Format("2006-01-02"))

	_, err = pool.Exec(ctx, `DELETE FROM movements`)
	require.Error(t, err)
	var pgErr *pgconn.PgError
	require.True(t, errors.As(err, &pgErr))
	assert.Equal(t, "P0001", pgErr.Code)
}

func TestPostgres_AccessLog(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	repo := postgres.NewAccessLogRepository(pool)
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Append(ctx, &entity.AccessLogEntry{Username: "ana", Timestamp: base.Add(time.Minute), Success: false}))
	require.NoError(t, repo.Append(ctx, &entity.AccessLogEntry{Username: "ana", Timestamp: base, Success: true}))

	list, err := repo.List(ctx, entity.AccessLogFilter{Limit: 1})
	require.NoError(t, err)
	require.Len(t, list, 1, "con límite se devuelve el más reciente")
	assert.True(t, list[0].Timestamp.Equal(base.Add(time.Minute)))
	assert.False(t, list[0].Success)

	all, err := repo.List(ctx, entity.AccessLogFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.True(t, all[0].Timestamp.Equal(base))
}

func TestPostgres_DocumentosConContraparte(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	docs := postgres.NewDocumentRepository(pool)
	products := postgres.NewProductRepository(pool)
	movs := postgres.NewMovementRepository(pool)

	party, err := postgres.NewCounterpartyRepository(pool).Upsert(ctx, "52998224725", "Cliente Final")
	require.NoError(t, err)

	insert := func(dir entity.Direction, issue time.Time, taxID, code string) *entity.Document {
		doc := &entity.Document{
			Fingerprint: randomFingerprint(), Kind: entity.DocumentKindNFe, Direction: dir, IssueDate: issue,
			CounterpartyTaxID: taxID, Total: decimal.NewFromInt(10), LineCount: 1, AppliedAt: time.Now(),
		}
		require.NoError(t, docs.Insert(ctx, doc))
		_, err := products.EnsureForUpdate(ctx, code, "")
		require.NoError(t, err)
		require.NoError(t, movs.Create(ctx, &entity.Movement{
			ID: uuid.NewString(), DocumentSeq: doc.Seq, LineNumber: 1, ProductCode: code, Direction: dir,
			Quantity: decimal.NewFromInt(1), UnitValue: decimal.NewFromInt(10), IssueDate: issue,
		}))
		return doc
	}
	late := insert(entity.DirectionOut, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), "52998224725", "COD456")
	early := insert(entity.DirectionIn, time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), "", "COD123")

	all, err := docs.List(ctx, entity.DocumentFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, early.Seq, all[0].Seq)
	assert.Equal(t, "Cliente Final", all[1].CounterpartyName)

	code := "COD456"
	byCode, err := docs.List(ctx, entity.DocumentFilter{ProductCode: &code, CounterpartyID: &party.ID})
	require.NoError(t, err)
	require.Len(t, byCode, 1)
	assert.Equal(t, late.Fingerprint, byCode[0].Fingerprint)

	items, err := movs.List(ctx, entity.MovementFilter{DocumentSeq: &late.Seq})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "COD456", items[0].ProductCode)

	_, err = docs.GetByFingerprint(ctx, randomFingerprint())
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}
