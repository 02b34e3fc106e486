// Package sqlite implementa los puertos del ledger sobre un archivo SQLite local vía GORM.
// Modo WAL para lecturas concurrentes; BEGIN IMMEDIATE para que los escritores se
// serialicen al abrir la transacción en lugar de fallar al promover el bloqueo.
package sqlite

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/ekk0s/nfe-ledger/pkg/logger"
)

// Options apertura de la base.
type Options struct {
	Path        string
	BusyTimeout time.Duration
	AutoMigrate bool
	Log         *logger.Logger
}

// DSN arma el connection string de mattn/go-sqlite3 con los pragmas necesarios.
func DSN(path string, busy time.Duration) string {
	if busy <= 0 {
		busy = 10 * time.Second
	}
	q := url.Values{}
	q.Set("_busy_timeout", fmt.Sprint(busy.Milliseconds()))
	q.Set("_journal_mode", "WAL")
	q.Set("_txlock", "immediate")
	q.Set("_foreign_keys", "on")
	q.Set("_synchronous", "NORMAL")
	return "file:" + path + "?" + q.Encode()
}

// Open abre (y opcionalmente migra) la base.
func Open(ctx context.Context, opts Options) (*gorm.DB, error) {
	log := opts.Log
	if log == nil {
		log = logger.Nop()
	}
	db, err := gorm.Open(sqlite.Open(DSN(opts.Path, opts.BusyTimeout)), &gorm.Config{
		TranslateError:         true,
		SkipDefaultTransaction: true,
		Logger: gormlogger.New(log.Named("gorm"), gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("%w: abrir %s: %v", errUnavailable, opts.Path, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("sqlite: sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(8)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)
	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("%w: ping: %v", errUnavailable, err)
	}
	if opts.AutoMigrate {
		n, err := Migrate(ctx, sqlDB)
		if err != nil {
			return nil, err
		}
		log.Info().Str("path", opts.Path).Int("applied", n).Msg("migraciones sqlite aplicadas")
	}
	return db, nil
}

// Close cierra el pool subyacente.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
