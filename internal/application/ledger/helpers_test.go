package ledger_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ekk0s/nfe-ledger/internal/application/auth"
	"github.com/ekk0s/nfe-ledger/internal/application/ledger"
	"github.com/ekk0s/nfe-ledger/internal/domain/entity"
	"github.com/ekk0s/nfe-ledger/internal/domain/fiscal"
	"github.com/ekk0s/nfe-ledger/internal/infrastructure/sqlite"
)

// ── helpers ───────────────────────────────────────────────────────────────────

type fixture struct {
	db      *gorm.DB
	tx      *sqlite.TxRunner
	svc     *ledger.Service
	stock   *ledger.StockProjector
	index   *ledger.FingerprintIndex
	clockAt time.Time
}

func newFixture(t *testing.T, opts ledger.Options) *fixture {
	t.Helper()
	db, err := sqlite.Open(context.Background(), sqlite.Options{
		Path:        filepath.Join(t.TempDir(), "ledger.db"),
		AutoMigrate: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlite.Close(db) })

	f := &fixture{db: db, tx: sqlite.NewTxRunner(db), clockAt: time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)}
	if opts.Now == nil {
		opts.Now = func() time.Time { return f.clockAt }
	}
	f.index, err = ledger.NewFingerprintIndex(sqlite.NewDocumentRepository(db), 16)
	require.NoError(t, err)
	policy := auth.DefaultPolicy()
	f.svc = ledger.NewService(f.tx, policy, f.index, nil, nil, opts)
	f.stock = ledger.NewStockProjector(f.tx, sqlite.NewProductRepository(db), policy, nil, nil)
	return f
}

type line struct {
	code, desc, qty, unit string
}

// nfe arma un documento NF-e con huella calculada sobre su contenido.
func nfe(t *testing.T, key string, dir entity.Direction, issue string, lines ...line) *entity.ParsedDocument {
	t.Helper()
	date, err := time.Parse(fiscal.DateLayout, issue)
	require.NoError(t, err)
	doc := &entity.ParsedDocument{
		AccessKey:    key,
		Kind:         entity.DocumentKindNFe,
		Direction:    dir,
		IssueDate:    date,
		Counterparty: entity.CounterpartyRef{TaxID: "11222333000181", Name: "Fornecedor Alfa"},
	}
	total := decimal.Zero
	for _, l := range lines {
		item := entity.LineItem{
			ProductCode: l.code,
			Description: l.desc,
			Quantity:    decimal.RequireFromString(l.qty),
			UnitValue:   decimal.RequireFromString(l.unit),
		}
		total = total.Add(item.Total())
		doc.Lines = append(doc.Lines, item)
	}
	doc.Total = total
	doc.Fingerprint, err = fiscal.Fingerprint(doc)
	require.NoError(t, err)
	return doc
}

func qty(t *testing.T, rows []entity.StockRow, code string) decimal.Decimal {
	t.Helper()
	for _, r := range rows {
		if r.ProductCode == code {
			return r.Quantity
		}
	}
	t.Fatalf("producto %s no encontrado", code)
	return decimal.Zero
}
