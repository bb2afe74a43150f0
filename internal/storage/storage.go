// internal/storage/storage.go
package storage

import (
	"context"
	"errors"

	"github.com/rovshanmuradov/curve-engine/internal/storage/models"
)

// ErrNotFound возвращается, когда запись отсутствует
var ErrNotFound = errors.New("record not found")

// Storage определяет интерфейс для работы с хранилищем
type Storage interface {
	// Кривые (upsert по mint)
	SaveCurve(ctx context.Context, c *models.Curve) error
	GetCurve(ctx context.Context, mint string) (*models.Curve, error)
	ListCurves(ctx context.Context, complete *bool) ([]*models.Curve, error)

	// Журнал сделок
	SaveTrade(ctx context.Context, trade *models.Trade) error
	ListTrades(ctx context.Context, mint string, limit, offset int) ([]*models.Trade, error)

	// История настроек программы
	SaveGlobal(ctx context.Context, snapshot *models.GlobalSnapshot) error
	LatestGlobal(ctx context.Context) (*models.GlobalSnapshot, error)

	RunMigrations() error
	Close() error
}
