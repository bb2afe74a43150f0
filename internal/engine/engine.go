// =================================
// File: internal/engine/engine.go
// =================================
package engine

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"

	"github.com/rovshanmuradov/curve-engine/internal/config"
	"github.com/rovshanmuradov/curve-engine/internal/custody"
	"github.com/rovshanmuradov/curve-engine/internal/events"
	"github.com/rovshanmuradov/curve-engine/internal/quote"
	"github.com/rovshanmuradov/curve-engine/internal/settlement"
	"github.com/rovshanmuradov/curve-engine/internal/storage"
	"github.com/rovshanmuradov/curve-engine/internal/storage/postgres"
	"github.com/rovshanmuradov/curve-engine/internal/utils/logger"
	"github.com/rovshanmuradov/curve-engine/internal/utils/metrics"
)

const shutdownTimeout = 10 * time.Second

// Engine собирает все компоненты: хранилище, метрики, шину событий,
// леджер, программу расчетов и сервис котировок.
type Engine struct {
	Config  *config.Config
	Logger  *logger.Logger
	Store   storage.Storage
	Metrics *metrics.Collector
	Bus     *events.Bus
	Ledger  *custody.Ledger
	Program *settlement.Program
	Quotes  *quote.Service

	shutdown *ShutdownHandler
}

// Option tweaks the engine before it is assembled.
type Option func(*options)

type options struct {
	clock  settlement.Clock
	logger *logger.Logger
}

// WithClock overrides the settlement clock.
func WithClock(clock settlement.Clock) Option {
	return func(o *options) { o.clock = clock }
}

// WithLogger uses an existing logger instead of building one from cfg.Log.
func WithLogger(l *logger.Logger) Option {
	return func(o *options) { o.logger = l }
}

// New assembles an engine from cfg.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Engine, error) {
	o := options{clock: settlement.SystemClock}
	for _, opt := range opts {
		opt(&o)
	}

	// Шаг 1: Логгер
	log := o.logger
	if log == nil {
		var err error
		if log, err = logger.New(cfg.Log.LoggerConfig()); err != nil {
			return nil, fmt.Errorf("failed to create logger: %w", err)
		}
	}
	end := log.TrackPerformance("engine_init")
	defer end()

	shutdown := NewShutdownHandler(log.WithComponent("shutdown"))
	fail := func(err error) (*Engine, error) {
		_ = shutdown.Shutdown(context.Background())
		return nil, err
	}

	// Шаг 2: Глобальные настройки
	global, err := cfg.Curve.ToGlobalConfig()
	if err != nil {
		return nil, err
	}
	programID, err := cfg.Curve.ProgramPublicKey()
	if err != nil {
		return nil, err
	}

	// Шаг 3: Метрики и хранилище
	collector := metrics.NewCollector()
	store, err := OpenStore(ctx, cfg.Storage, log.Logger, collector)
	if err != nil {
		return nil, err
	}
	shutdown.Add("storage", store)
	if err := store.RunMigrations(); err != nil {
		return fail(fmt.Errorf("failed to run migrations: %w", err))
	}

	// Шаг 4: Шина событий и журнал
	bus := events.NewBus(log.Logger, cfg.Events.BufferSize)
	shutdown.AddFunc("event_bus", func() error {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return bus.Shutdown(ctx)
	})
	subscribeJournal(bus, log)

	// Шаг 5: Программа расчетов
	ledger := custody.NewLedger(log.Logger)
	program, err := settlement.NewProgram(settlement.Options{
		ProgramID: programID,
		Global:    global,
		Ledger:    ledger,
		Bus:       bus,
		Store:     store,
		Metrics:   collector,
		Logger:    log.Logger,
		Clock:     o.clock,
	})
	if err != nil {
		return fail(err)
	}

	log.Info("Engine ready",
		zap.String("program_id", programID.String()),
		zap.String("status", global.Status.String()),
		zap.String("storage", cfg.Storage.Driver))

	return &Engine{
		Config:   cfg,
		Logger:   log,
		Store:    store,
		Metrics:  collector,
		Bus:      bus,
		Ledger:   ledger,
		Program:  program,
		Quotes:   quote.NewService(program, collector, log.Logger, o.clock),
		shutdown: shutdown,
	}, nil
}

// OpenStore opens the configured store. Retries are counted in collector.
func OpenStore(ctx context.Context, cfg config.StorageConfig, log *zap.Logger, collector *metrics.Collector) (storage.Storage, error) {
	level, err := parseGormLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	opts := postgres.Options{
		MaxRetries: uint(cfg.MaxRetries),
		RetryDelay: cfg.RetryDelayDuration(),
		LogLevel:   level,
	}
	if collector != nil {
		opts.OnRetry = func(operation string, _ error) {
			collector.RecordStoreRetry(operation)
		}
	}

	switch cfg.Driver {
	case "postgres":
		return postgres.NewStorage(ctx, cfg.DSN, log, opts)
	case "sqlite":
		return postgres.Open(ctx, sqlite.Open(cfg.DSN), log, opts)
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.Driver)
	}
}

func parseGormLevel(raw string) (gormlogger.LogLevel, error) {
	switch strings.ToLower(raw) {
	case "silent":
		return gormlogger.Silent, nil
	case "error":
		return gormlogger.Error, nil
	case "", "warn":
		return gormlogger.Warn, nil
	case "info":
		return gormlogger.Info, nil
	default:
		return 0, fmt.Errorf("unknown storage log level %q", raw)
	}
}

// ServeMetrics exposes /metrics on addr until the engine is closed. It
// returns the bound address.
func (e *Engine) ServeMetrics(addr string) (string, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return "", fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", e.Metrics.Handler())
	server := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			e.Logger.Error("Metrics server failed", zap.Error(err))
		}
	}()
	e.shutdown.AddFunc("metrics_server", func() error {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(ctx)
	})

	e.Logger.Info("Metrics server started", zap.String("addr", listener.Addr().String()))
	return listener.Addr().String(), nil
}

// Close shuts every component down and flushes the logger.
func (e *Engine) Close(ctx context.Context) error {
	err := e.shutdown.Shutdown(ctx)
	if syncErr := e.Logger.Sync(); syncErr != nil {
		err = errors.Join(err, syncErr)
	}
	return err
}
