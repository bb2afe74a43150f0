// internal/storage/postgres/postgres.go
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/rovshanmuradov/curve-engine/internal/storage"
	"github.com/rovshanmuradov/curve-engine/internal/storage/models"
)

const migrationLockID = 101

// Options настраивает подключение и повторы
type Options struct {
	MaxRetries uint
	RetryDelay time.Duration
	LogLevel   logger.LogLevel
	// OnRetry вызывается перед каждой повторной попыткой, например для метрик
	OnRetry func(operation string, err error)
}

func (o Options) withDefaults() Options {
	if o.MaxRetries == 0 {
		o.MaxRetries = 5
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = 100 * time.Millisecond
	}
	if o.LogLevel == 0 {
		o.LogLevel = logger.Warn
	}
	return o
}

// postgresStorage реализует интерфейс Storage
type postgresStorage struct {
	db     *gorm.DB
	logger *zap.Logger
	opts   Options
}

// NewStorage подключается к PostgreSQL по DSN
func NewStorage(ctx context.Context, dsn string, zapLogger *zap.Logger, opts Options) (storage.Storage, error) {
	return Open(ctx, postgres.Open(dsn), zapLogger, opts)
}

// Open подключается через произвольный диалект GORM (sqlite для симулятора и тестов)
func Open(ctx context.Context, dialector gorm.Dialector, zapLogger *zap.Logger, opts Options) (storage.Storage, error) {
	opts = opts.withDefaults()
	s := &postgresStorage{logger: zapLogger.Named("storage"), opts: opts}

	db, err := retry(ctx, s, "connect", func() (*gorm.DB, error) {
		return gorm.Open(dialector, &gorm.Config{
			Logger: newGormLogger(zapLogger.Named("gorm"), opts.LogLevel),
			NowFunc: func() time.Time {
				return time.Now().UTC()
			},
			DisableForeignKeyConstraintWhenMigrating: true,
			SkipDefaultTransaction:                   true,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	// Настройка пула соединений
	if db.Dialector.Name() == "sqlite" {
		// у in-memory sqlite своя база на каждое соединение
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(100)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	s.db = db
	return s, nil
}

// retry повторяет операцию с экспоненциальной задержкой. Ошибки контекста
// и отсутствие записи не повторяются.
func retry[T any](ctx context.Context, s *postgresStorage, operation string, fn func() (T, error)) (T, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = s.opts.RetryDelay
	policy.MaxInterval = s.opts.RetryDelay * 10

	notify := func(err error, d time.Duration) {
		s.logger.Warn("Повтор операции хранилища",
			zap.String("operation", operation),
			zap.Duration("backoff", d),
			zap.Error(err))
		if s.opts.OnRetry != nil {
			s.opts.OnRetry(operation, err)
		}
	}

	op := func() (T, error) {
		v, err := fn()
		if err != nil && (errors.Is(err, context.Canceled) ||
			errors.Is(err, context.DeadlineExceeded) ||
			errors.Is(err, gorm.ErrRecordNotFound)) {
			return v, backoff.Permanent(err)
		}
		return v, err
	}

	return backoff.Retry(ctx, op,
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(s.opts.MaxRetries),
		backoff.WithNotify(notify))
}

func (p *postgresStorage) exec(ctx context.Context, operation string, fn func(db *gorm.DB) error) error {
	_, err := retry(ctx, p, operation, func() (struct{}, error) {
		return struct{}{}, fn(p.db.WithContext(ctx))
	})
	if err != nil {
		return fmt.Errorf("%s: %w", operation, err)
	}
	return nil
}

// RunMigrations использует GORM AutoMigrate
func (p *postgresStorage) RunMigrations() error {
	if p.db.Dialector.Name() == "postgres" {
		var lockObtained bool
		err := p.db.Raw("SELECT pg_try_advisory_lock(?)", migrationLockID).Scan(&lockObtained).Error
		if err != nil {
			return fmt.Errorf("failed to acquire migration lock: %w", err)
		}
		if !lockObtained {
			return fmt.Errorf("another migration is in progress")
		}
		defer p.db.Exec("SELECT pg_advisory_unlock(?)", migrationLockID)
	}

	err := p.db.AutoMigrate(
		&models.Curve{},
		&models.Trade{},
		&models.GlobalSnapshot{},
	)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

func (p *postgresStorage) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

var curveUpdateColumns = []string{
	"updated_at",
	"name", "symbol", "uri",
	"virtual_sol_reserves", "virtual_token_reserves",
	"real_sol_reserves", "real_token_reserves",
	"complete",
}

func (p *postgresStorage) SaveCurve(ctx context.Context, c *models.Curve) error {
	return p.exec(ctx, "save_curve", func(db *gorm.DB) error {
		return db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "mint"}},
			DoUpdates: clause.AssignmentColumns(curveUpdateColumns),
		}).Create(c).Error
	})
}

func (p *postgresStorage) GetCurve(ctx context.Context, mint string) (*models.Curve, error) {
	var c models.Curve
	err := p.db.WithContext(ctx).Where("mint = ?", mint).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("curve %s: %w", mint, storage.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (p *postgresStorage) ListCurves(ctx context.Context, complete *bool) ([]*models.Curve, error) {
	var curves []*models.Curve
	q := p.db.WithContext(ctx).Order("id asc")
	if complete != nil {
		q = q.Where("complete = ?", *complete)
	}
	err := q.Find(&curves).Error
	return curves, err
}

func (p *postgresStorage) SaveTrade(ctx context.Context, trade *models.Trade) error {
	return p.exec(ctx, "save_trade", func(db *gorm.DB) error {
		// повтор после таймаута не должен задвоить сделку
		return db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "trade_id"}},
			DoNothing: true,
		}).Create(trade).Error
	})
}

// ListTrades возвращает журнал в порядке исполнения; пустой mint = все кривые
func (p *postgresStorage) ListTrades(ctx context.Context, mint string, limit, offset int) ([]*models.Trade, error) {
	var trades []*models.Trade
	q := p.db.WithContext(ctx).Order("id asc")
	if mint != "" {
		q = q.Where("mint = ?", mint)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}
	err := q.Find(&trades).Error
	return trades, err
}

func (p *postgresStorage) SaveGlobal(ctx context.Context, snapshot *models.GlobalSnapshot) error {
	return p.exec(ctx, "save_global", func(db *gorm.DB) error {
		return db.Create(snapshot).Error
	})
}

func (p *postgresStorage) LatestGlobal(ctx context.Context) (*models.GlobalSnapshot, error) {
	var g models.GlobalSnapshot
	err := p.db.WithContext(ctx).Order("id desc").First(&g).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("global snapshot: %w", storage.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &g, nil
}
