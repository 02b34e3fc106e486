package main

import (
	"context"
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/pflag"

	"github.com/ekk0s/nfe-ledger/internal/application/auth"
	"github.com/ekk0s/nfe-ledger/internal/application/ingestion"
	"github.com/ekk0s/nfe-ledger/internal/application/ledger"
	"github.com/ekk0s/nfe-ledger/internal/application/reports"
	"github.com/ekk0s/nfe-ledger/internal/domain/entity"
	"github.com/ekk0s/nfe-ledger/internal/domain/repository"
	"github.com/ekk0s/nfe-ledger/internal/infrastructure/nfe"
	"github.com/ekk0s/nfe-ledger/internal/infrastructure/postgres"
	"github.com/ekk0s/nfe-ledger/internal/infrastructure/sqlite"
	"github.com/ekk0s/nfe-ledger/pkg/config"
	"github.com/ekk0s/nfe-ledger/pkg/logger"
	"github.com/ekk0s/nfe-ledger/pkg/metrics"
)

func registerCommonFlags(flags *pflag.FlagSet) {
	flags.String("role", "visualizador", "rol del usuario: admin, operador o visualizador")
	flags.String("storage-driver", "", "backend del ledger: sqlite o postgres (STORAGE_DRIVER)")
	flags.String("sqlite-path", "", "archivo SQLite (SQLITE_PATH)")
	flags.String("database-url", "", "connection string PostgreSQL (DATABASE_URL)")
	flags.String("log-level", "", "trace, debug, info, warn o error (LOG_LEVEL)")
	flags.Int("ingest-workers", 0, "documentos aplicados en paralelo (INGEST_WORKERS)")
}

// storage repositorios fuera de transacción y runner del backend elegido.
type storage struct {
	tx        ledger.TxRunner
	documents repository.DocumentRepository
	products  repository.ProductRepository
	movements repository.MovementRepository
	parties   repository.CounterpartyRepository
	accessLog repository.AccessLogRepository
	close     func()
}

// environment dependencias armadas para un comando.
type environment struct {
	cfg      *config.Config
	log      *logger.Logger
	registry *prometheus.Registry
	store    *storage
	role     entity.Role

	ledger    *ledger.Service
	stock     *ledger.StockProjector
	importer  *ingestion.Coordinator
	reports   *reports.Aggregator
	accessLog *auth.AccessLogUseCase
}

func newEnvironment(ctx context.Context, flags *pflag.FlagSet, stderr io.Writer) (*environment, error) {
	cfg, err := config.Load(flags)
	if err != nil {
		return nil, err
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel, Output: stderr})

	store, err := openStorage(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	m := metrics.NewIngestMetrics(registry)
	policy := auth.DefaultPolicy()

	index, err := ledger.NewFingerprintIndex(store.documents, cfg.Ingest.FingerprintCache)
	if err != nil {
		store.close()
		return nil, err
	}
	svc := ledger.NewService(store.tx, policy, index, m, log, ledger.Options{
		ForbidNegativeStock: cfg.Ledger.ForbidNegativeStock,
	})

	return &environment{
		cfg:      cfg,
		log:      log,
		registry: registry,
		store:    store,
		ledger:   svc,
		stock:    ledger.NewStockProjector(store.tx, store.products, policy, m, log),
		importer: ingestion.NewCoordinator(nfe.NewParser(), svc, index, policy, m, log, ingestion.Config{
			Workers:           cfg.Ingest.Workers,
			MaxArchiveEntries: cfg.Ingest.MaxArchiveEntries,
		}),
		reports:   reports.NewAggregator(store.documents, store.movements, store.parties),
		accessLog: auth.NewAccessLogUseCase(store.accessLog, policy, nil, log),
	}, nil
}

// Close vuelca métricas (si se configuró archivo) y libera el almacenamiento.
func (e *environment) Close() {
	if path := e.cfg.Metrics.TextfilePath; path != "" {
		if err := prometheus.WriteToTextfile(path, e.registry); err != nil {
			e.log.Warn().Err(err).Str("path", path).Msg("no se pudieron escribir las métricas")
		}
	}
	e.store.close()
}

func openStorage(ctx context.Context, cfg *config.Config, log *logger.Logger) (*storage, error) {
	switch cfg.Storage.Driver {
	case config.DriverPostgres:
		pool, err := postgres.NewPool(ctx, cfg.DB)
		if err != nil {
			return nil, fmt.Errorf("conexión a PostgreSQL: %w", err)
		}
		if cfg.Storage.AutoMigrate {
			n, err := postgres.Migrate(ctx, pool)
			if err != nil {
				pool.Close()
				return nil, err
			}
			log.Debug().Int("applied", n).Msg("migraciones postgres aplicadas")
		}
		return &storage{
			tx:        postgres.NewTxRunner(pool),
			documents: postgres.NewDocumentRepository(pool),
			products:  postgres.NewProductRepository(pool),
			movements: postgres.NewMovementRepository(pool),
			parties:   postgres.NewCounterpartyRepository(pool),
			accessLog: postgres.NewAccessLogRepository(pool),
			close:     pool.Close,
		}, nil
	default:
		db, err := sqlite.Open(ctx, sqlite.Options{
			Path:        cfg.Storage.SQLitePath,
			AutoMigrate: cfg.Storage.AutoMigrate,
			Log:         log,
		})
		if err != nil {
			return nil, err
		}
		return &storage{
			tx:        sqlite.NewTxRunner(db),
			documents: sqlite.NewDocumentRepository(db),
			products:  sqlite.NewProductRepository(db),
			movements: sqlite.NewMovementRepository(db),
			parties:   sqlite.NewCounterpartyRepository(db),
			accessLog: sqlite.NewAccessLogRepository(db),
			close: func() {
				if err := sqlite.Close(db); err != nil {
					log.Warn().Err(err).Msg("cerrar sqlite")
				}
			},
		}, nil
	}
}
