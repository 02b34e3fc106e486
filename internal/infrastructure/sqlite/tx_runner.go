package sqlite

import (
	"context"
	"database/sql/driver"
	"fmt"

	"gorm.io/gorm"

	"github.com/ekk0s/nfe-ledger/internal/application/ledger"
	"github.com/ekk0s/nfe-ledger/internal/domain/repository"
)

var _ ledger.TxRunner = (*TxRunner)(nil)

// TxRunner ejecuta callbacks dentro de una transacción SQLite. Run usa BEGIN IMMEDIATE
// (vía DSN); RunSnapshot usa BEGIN DEFERRED.
type TxRunner struct {
	db *gorm.DB
}

// NewTxRunner construye el runner.
func NewTxRunner(db *gorm.DB) *TxRunner {
	return &TxRunner{db: db}
}

// Run inicia una transacción, ejecuta fn con repos atados a la tx y hace Commit o Rollback.
func (r *TxRunner) Run(ctx context.Context, fn func(
	docRepo repository.DocumentRepository,
	partyRepo repository.CounterpartyRepository,
	productRepo repository.ProductRepository,
	movRepo repository.MovementRepository,
) error) error {
	return r.inTx(ctx, func(tx *gorm.DB) error {
		return fn(NewDocumentRepository(tx), NewCounterpartyRepository(tx), NewProductRepository(tx), NewMovementRepository(tx))
	})
}

// RunSnapshot ejecuta lecturas dentro de una transacción BEGIN DEFERRED sobre una conexión
// dedicada: no toma la reserva de escritura que impone _txlock=immediate, así que no espera
// a los Apply en curso. En WAL la instantánea queda fija desde la primera lectura.
func (r *TxRunner) RunSnapshot(ctx context.Context, fn func(
	productRepo repository.ProductRepository,
	movRepo repository.MovementRepository,
) error) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("%w: sql.DB: %v", errUnavailable, err)
	}
	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("%w: conexión de lectura: %v", errUnavailable, err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "BEGIN DEFERRED"); err != nil {
		return fmt.Errorf("%w: begin snapshot: %v", errUnavailable, err)
	}
	defer func() {
		// Solo lectura: siempre ROLLBACK. Si falla, la conexión se descarta del pool.
		if _, err := conn.ExecContext(context.Background(), "ROLLBACK"); err != nil {
			_ = conn.Raw(func(any) error { return driver.ErrBadConn })
		}
	}()

	tx := r.db.Session(&gorm.Session{Context: ctx, NewDB: true})
	tx.Statement.ConnPool = conn
	return fn(NewProductRepository(tx), NewMovementRepository(tx))
}

func (r *TxRunner) inTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	tx := r.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return fmt.Errorf("%w: begin transaction: %v", errUnavailable, tx.Error)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("%w: commit transaction: %v", errUnavailable, err)
	}
	return nil
}
