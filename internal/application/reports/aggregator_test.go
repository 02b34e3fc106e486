package reports_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekk0s/nfe-ledger/internal/application/auth"
	"github.com/ekk0s/nfe-ledger/internal/application/ledger"
	"github.com/ekk0s/nfe-ledger/internal/application/reports"
	"github.com/ekk0s/nfe-ledger/internal/domain"
	"github.com/ekk0s/nfe-ledger/internal/domain/entity"
	"github.com/ekk0s/nfe-ledger/internal/domain/fiscal"
	"github.com/ekk0s/nfe-ledger/internal/infrastructure/sqlite"
)

// ── helpers ───────────────────────────────────────────────────────────────────

func day(s string) time.Time {
	d, err := time.Parse(fiscal.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return d
}

// seeded aplica: 10/01 IN COD123 50×10; 20/01 OUT COD123 20×12; 05/02 OUT COD456 1×3.
func seeded(t *testing.T) (*reports.Aggregator, *sqlite.CounterpartyRepository) {
	t.Helper()
	ctx := context.Background()
	db, err := sqlite.Open(ctx, sqlite.Options{Path: filepath.Join(t.TempDir(), "r.db"), AutoMigrate: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlite.Close(db) })

	svc := ledger.NewService(sqlite.NewTxRunner(db), auth.DefaultPolicy(), nil, nil, nil, ledger.Options{})
	apply := func(key string, dir entity.Direction, issue, taxID, code, qty, unit string) {
		doc := &entity.ParsedDocument{
			AccessKey:    key,
			Kind:         entity.DocumentKindNFe,
			Direction:    dir,
			IssueDate:    day(issue),
			Counterparty: entity.CounterpartyRef{TaxID: taxID, Name: "Parte " + taxID},
			Lines: []entity.LineItem{{
				ProductCode: code, Quantity: decimal.RequireFromString(qty), UnitValue: decimal.RequireFromString(unit),
			}},
		}
		doc.Fingerprint, err = fiscal.Fingerprint(doc)
		require.NoError(t, err)
		_, err = svc.Apply(ctx, entity.RoleOperator, doc)
		require.NoError(t, err)
	}
	apply("K1", entity.DirectionIn, "2024-01-10", "11222333000181", "COD123", "50", "10")
	apply("K2", entity.DirectionOut, "2024-01-20", "52998224725", "COD123", "20", "12")
	apply("K3", entity.DirectionOut, "2024-02-05", "52998224725", "COD456", "1", "3")

	parties := sqlite.NewCounterpartyRepository(db)
	return reports.NewAggregator(sqlite.NewDocumentRepository(db), sqlite.NewMovementRepository(db), parties), parties
}

// ── FinancialSummary ──────────────────────────────────────────────────────────

func TestFinancialSummary_Periodo(t *testing.T) {
	agg, _ := seeded(t)
	s, err := agg.FinancialSummary(context.Background(), day("2024-01-01"), day("2024-01-31"))
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(500).Equal(s.TotalIn))
	assert.True(t, decimal.NewFromInt(240).Equal(s.TotalOut))
	assert.True(t, decimal.NewFromInt(260).Equal(s.Balance))
}

func TestFinancialSummary_Aditividad(t *testing.T) {
	agg, _ := seeded(t)
	ctx := context.Background()

	whole, err := agg.FinancialSummary(ctx, day("2024-01-01"), day("2024-02-29"))
	require.NoError(t, err)
	a, err := agg.FinancialSummary(ctx, day("2024-01-01"), day("2024-01-20"))
	require.NoError(t, err)
	b, err := agg.FinancialSummary(ctx, day("2024-01-21"), day("2024-02-29"))
	require.NoError(t, err)

	assert.True(t, whole.TotalIn.Equal(a.TotalIn.Add(b.TotalIn)))
	assert.True(t, whole.TotalOut.Equal(a.TotalOut.Add(b.TotalOut)))
	assert.True(t, whole.Balance.Equal(a.Balance.Add(b.Balance)))
}

func TestFinancialSummary_RangoVacioEInvertido(t *testing.T) {
	agg, _ := seeded(t)
	ctx := context.Background()

	empty, err := agg.FinancialSummary(ctx, day("2023-01-01"), day("2023-12-31"))
	require.NoError(t, err)
	assert.True(t, empty.TotalIn.IsZero())
	assert.True(t, empty.Balance.IsZero())

	inverted, err := agg.FinancialSummary(ctx, day("2024-02-01"), day("2024-01-01"))
	require.NoError(t, err)
	assert.True(t, inverted.TotalIn.IsZero())
	assert.True(t, inverted.TotalOut.IsZero())
}

func TestFinancialSummary_IgnoraHora(t *testing.T) {
	agg, _ := seeded(t)
	to := time.Date(2024, 1, 10, 8, 0, 0, 0, time.UTC)
	s, err := agg.FinancialSummary(context.Background(), to, to)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(500).Equal(s.TotalIn), "el límite se compara por día de calendario")
}

// ── MovementHistory ───────────────────────────────────────────────────────────

func TestMovementHistory_SalidasDeEnero(t *testing.T) {
	agg, _ := seeded(t)
	from, to := day("2024-01-01"), day("2024-01-31")
	out := entity.DirectionOut

	movs, err := agg.MovementHistory(context.Background(), entity.MovementFilter{DateFrom: &from, DateTo: &to, Direction: &out})
	require.NoError(t, err)
	require.Len(t, movs, 1)
	assert.Equal(t, "COD123", movs[0].ProductCode)
	assert.True(t, decimal.NewFromInt(240).Equal(movs[0].Total()))
}

func TestMovementHistory_PorContraparteYProducto(t *testing.T) {
	agg, parties := seeded(t)
	ctx := context.Background()

	p, err := parties.GetByTaxID(ctx, "52998224725")
	require.NoError(t, err)
	movs, err := agg.MovementHistory(ctx, entity.MovementFilter{CounterpartyID: &p.ID})
	require.NoError(t, err)
	require.Len(t, movs, 2)
	assert.True(t, movs[0].IssueDate.Before(movs[1].IssueDate))

	code := "COD456"
	movs, err = agg.MovementHistory(ctx, entity.MovementFilter{CounterpartyID: &p.ID, ProductCode: &code})
	require.NoError(t, err)
	assert.Len(t, movs, 1)
}

func TestMovementHistory_FiltroInvalidoYRangoInvertido(t *testing.T) {
	agg, _ := seeded(t)
	ctx := context.Background()

	bad := entity.Direction("SIDEWAYS")
	_, err := agg.MovementHistory(ctx, entity.MovementFilter{Direction: &bad})
	assert.Error(t, err)

	from, to := day("2024-03-01"), day("2024-01-01")
	movs, err := agg.MovementHistory(ctx, entity.MovementFilter{DateFrom: &from, DateTo: &to})
	require.NoError(t, err)
	assert.NotNil(t, movs)
	assert.Empty(t, movs)
}

// ── DocumentHistory / DocumentItems ───────────────────────────────────────────

func TestDocumentHistory_OrdenYNombreDeContraparte(t *testing.T) {
	agg, _ := seeded(t)
	docs, err := agg.DocumentHistory(context.Background(), entity.DocumentFilter{})
	require.NoError(t, err)
	require.Len(t, docs, 3)

	assert.Equal(t, []string{"K1", "K2", "K3"}, []string{docs[0].AccessKey, docs[1].AccessKey, docs[2].AccessKey})
	assert.Equal(t, "Parte 11222333000181", docs[0].CounterpartyName)
	assert.Equal(t, "Parte 52998224725", docs[1].CounterpartyName)
	assert.Equal(t, entity.DirectionOut, docs[2].Direction)
	assert.Equal(t, 1, docs[2].LineCount)
	assert.True(t, docs[0].IssueDate.Equal(day("2024-01-10")))
	assert.Less(t, docs[0].Seq, docs[1].Seq)
}

func TestDocumentHistory_Filtros(t *testing.T) {
	agg, parties := seeded(t)
	ctx := context.Background()
	keys := func(docs []*entity.DocumentSummary) []string {
		out := make([]string, 0, len(docs))
		for _, d := range docs {
			out = append(out, d.AccessKey)
		}
		return out
	}

	out := entity.DirectionOut
	docs, err := agg.DocumentHistory(ctx, entity.DocumentFilter{Direction: &out})
	require.NoError(t, err)
	assert.Equal(t, []string{"K2", "K3"}, keys(docs))

	code := "COD456"
	docs, err = agg.DocumentHistory(ctx, entity.DocumentFilter{ProductCode: &code})
	require.NoError(t, err)
	assert.Equal(t, []string{"K3"}, keys(docs))

	p, err := parties.GetByTaxID(ctx, "52998224725")
	require.NoError(t, err)
	docs, err = agg.DocumentHistory(ctx, entity.DocumentFilter{CounterpartyID: &p.ID})
	require.NoError(t, err)
	assert.Equal(t, []string{"K2", "K3"}, keys(docs))

	from, to := day("2024-01-15"), day("2024-01-31")
	docs, err = agg.DocumentHistory(ctx, entity.DocumentFilter{DateFrom: &from, DateTo: &to})
	require.NoError(t, err)
	assert.Equal(t, []string{"K2"}, keys(docs))

	from, to = day("2024-03-01"), day("2024-01-01")
	docs, err = agg.DocumentHistory(ctx, entity.DocumentFilter{DateFrom: &from, DateTo: &to})
	require.NoError(t, err)
	assert.NotNil(t, docs)
	assert.Empty(t, docs)

	bad := entity.Direction("SIDEWAYS")
	_, err = agg.DocumentHistory(ctx, entity.DocumentFilter{Direction: &bad})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestDocumentItems(t *testing.T) {
	agg, _ := seeded(t)
	ctx := context.Background()

	docs, err := agg.DocumentHistory(ctx, entity.DocumentFilter{})
	require.NoError(t, err)
	require.Len(t, docs, 3)

	items, err := agg.DocumentItems(ctx, docs[1].Seq)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "COD123", items[0].ProductCode)
	assert.Equal(t, entity.DirectionOut, items[0].Direction)
	assert.True(t, decimal.NewFromInt(20).Equal(items[0].Quantity))

	_, err = agg.DocumentItems(ctx, 9999)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	doc, items, err := agg.DocumentItemsByFingerprint(ctx, docs[2].Fingerprint)
	require.NoError(t, err)
	assert.Equal(t, "K3", doc.AccessKey)
	require.Len(t, items, 1)
	assert.Equal(t, "COD456", items[0].ProductCode)

	_, _, err = agg.DocumentItemsByFingerprint(ctx, "ffff")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCounterparties(t *testing.T) {
	agg, _ := seeded(t)
	list, err := agg.Counterparties(context.Background())
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

// ── Tablas ────────────────────────────────────────────────────────────────────

func TestTables(t *testing.T) {
	fin := reports.FinancialTable(entity.FinancialSummary{
		TotalIn: decimal.NewFromInt(500), TotalOut: decimal.NewFromInt(240), Balance: decimal.NewFromInt(260),
	})
	assert.Equal(t, [][]string{{"500.00", "240.00", "260.00"}}, fin.Rows)

	stock := reports.StockTable([]entity.StockRow{{ProductCode: "COD123", Description: "Parafuso", Quantity: decimal.NewFromInt(30)}})
	assert.Equal(t, []string{"COD123", "Parafuso", "30"}, stock.Rows[0])
	assert.Len(t, stock.Numeric, len(stock.Headers))
}
