// =================================
// File: internal/config/config.go
// =================================
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/viper"

	"github.com/rovshanmuradov/curve-engine/internal/curve"
	"github.com/rovshanmuradov/curve-engine/internal/utils/logger"
)

const EnvPrefix = "CURVE_ENGINE"

type Config struct {
	Curve   CurveConfig   `mapstructure:"curve"`
	Log     LogConfig     `mapstructure:"log"`
	Storage StorageConfig `mapstructure:"storage"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Events  EventsConfig  `mapstructure:"events"`
}

// CurveConfig задает глобальные параметры программы. Адреса в base58,
// пустая строка означает нулевой ключ.
type CurveConfig struct {
	ProgramID                   string `mapstructure:"program_id"`
	Status                      string `mapstructure:"status"`
	GlobalAuthority             string `mapstructure:"global_authority"`
	MigrationAuthority          string `mapstructure:"migration_authority"`
	FeeReceiver                 string `mapstructure:"fee_receiver"`
	MeteoraConfig               string `mapstructure:"meteora_config"`
	MigrateFeeAmount            uint64 `mapstructure:"migrate_fee_amount"`
	InitialVirtualTokenReserves uint64 `mapstructure:"initial_virtual_token_reserves"`
	InitialVirtualSolReserves   uint64 `mapstructure:"initial_virtual_sol_reserves"`
	InitialRealTokenReserves    uint64 `mapstructure:"initial_real_token_reserves"`
	TokenTotalSupply            uint64 `mapstructure:"token_total_supply"`
	MintDecimals                uint8  `mapstructure:"mint_decimals"`
	WhitelistEnabled            bool   `mapstructure:"whitelist_enabled"`
}

type LogConfig struct {
	File        string `mapstructure:"file"`
	Level       string `mapstructure:"level"`
	MaxSize     int    `mapstructure:"max_size"`
	MaxAge      int    `mapstructure:"max_age"`
	MaxBackups  int    `mapstructure:"max_backups"`
	Compress    bool   `mapstructure:"compress"`
	Development bool   `mapstructure:"development"`
	Console     bool   `mapstructure:"console"`
}

// StorageConfig: driver "sqlite" (DSN is a file path or ":memory:") or "postgres".
type StorageConfig struct {
	Driver     string `mapstructure:"driver"`
	DSN        string `mapstructure:"dsn"`
	MaxRetries int    `mapstructure:"max_retries"`
	RetryDelay int    `mapstructure:"retry_delay"` // миллисекунды
	LogLevel   string `mapstructure:"log_level"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Listen  string `mapstructure:"listen"`
}

type EventsConfig struct {
	BufferSize int `mapstructure:"buffer_size"`
}

const (
	DefaultStorageDriver = "sqlite"
	DefaultStorageDSN    = "curve-engine.db"
	DefaultMaxRetries    = 5
	DefaultRetryDelay    = 100
	DefaultMetricsListen = ":9102"
	DefaultBufferSize    = 1000
)

func defaults() map[string]interface{} {
	g := curve.DefaultGlobalConfig()
	l := logger.DefaultConfig()
	return map[string]interface{}{
		"curve.program_id":                     curve.DefaultProgramID.String(),
		"curve.status":                         g.Status.String(),
		"curve.global_authority":               "",
		"curve.migration_authority":            "",
		"curve.fee_receiver":                   "",
		"curve.meteora_config":                 "",
		"curve.migrate_fee_amount":             g.MigrateFeeAmount,
		"curve.initial_virtual_token_reserves": g.InitialVirtualTokenReserves,
		"curve.initial_virtual_sol_reserves":   g.InitialVirtualSolReserves,
		"curve.initial_real_token_reserves":    g.InitialRealTokenReserves,
		"curve.token_total_supply":             g.TokenTotalSupply,
		"curve.mint_decimals":                  g.MintDecimals,
		"curve.whitelist_enabled":              g.WhitelistEnabled,
		"log.file":                             l.LogFile,
		"log.level":                            "",
		"log.max_size":                         l.MaxSize,
		"log.max_age":                          l.MaxAge,
		"log.max_backups":                      l.MaxBackups,
		"log.compress":                         l.Compress,
		"log.development":                      l.Development,
		"log.console":                          l.Console,
		"storage.driver":                       DefaultStorageDriver,
		"storage.dsn":                          DefaultStorageDSN,
		"storage.max_retries":                  DefaultMaxRetries,
		"storage.retry_delay":                  DefaultRetryDelay,
		"storage.log_level":                    "warn",
		"metrics.enabled":                      false,
		"metrics.listen":                       DefaultMetricsListen,
		"events.buffer_size":                   DefaultBufferSize,
	}
}

// LoadConfig читает файл (JSON/YAML по расширению), затем переменные
// окружения CURVE_ENGINE_<SECTION>_<KEY>. Пустой path означает только
// значения по умолчанию и окружение.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults() {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	return &cfg, validateConfig(&cfg)
}

func validateConfig(cfg *Config) error {
	switch cfg.Storage.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported storage driver %q", cfg.Storage.Driver)
	}
	if cfg.Storage.DSN == "" {
		return errors.New("storage dsn is empty")
	}
	if cfg.Storage.MaxRetries < 0 {
		return errors.New("invalid storage max_retries")
	}
	if cfg.Storage.RetryDelay < 0 {
		return errors.New("invalid storage retry_delay")
	}
	if cfg.Events.BufferSize <= 0 {
		return errors.New("invalid events buffer_size")
	}
	if cfg.Metrics.Enabled && cfg.Metrics.Listen == "" {
		return errors.New("metrics listen address is empty")
	}
	if _, err := cfg.Curve.ProgramPublicKey(); err != nil {
		return err
	}
	_, err := cfg.Curve.ToGlobalConfig()
	return err
}

// ProgramPublicKey returns the program id, DefaultProgramID when unset.
func (c CurveConfig) ProgramPublicKey() (solana.PublicKey, error) {
	if c.ProgramID == "" {
		return curve.DefaultProgramID, nil
	}
	key, err := solana.PublicKeyFromBase58(c.ProgramID)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("invalid curve.program_id: %w", err)
	}
	return key, nil
}

// ToGlobalConfig собирает и проверяет снимок глобальных настроек.
func (c CurveConfig) ToGlobalConfig() (curve.GlobalConfig, error) {
	status, err := curve.ParseProgramStatus(c.Status)
	if err != nil {
		return curve.GlobalConfig{}, err
	}

	g := curve.GlobalConfig{
		Status:                      status,
		Initialized:                 true,
		MigrateFeeAmount:            c.MigrateFeeAmount,
		InitialVirtualTokenReserves: c.InitialVirtualTokenReserves,
		InitialVirtualSolReserves:   c.InitialVirtualSolReserves,
		InitialRealTokenReserves:    c.InitialRealTokenReserves,
		TokenTotalSupply:            c.TokenTotalSupply,
		MintDecimals:                c.MintDecimals,
		WhitelistEnabled:            c.WhitelistEnabled,
	}

	keys := []struct {
		field string
		raw   string
		dst   *solana.PublicKey
	}{
		{"global_authority", c.GlobalAuthority, &g.GlobalAuthority},
		{"migration_authority", c.MigrationAuthority, &g.MigrationAuthority},
		{"fee_receiver", c.FeeReceiver, &g.FeeReceiver},
		{"meteora_config", c.MeteoraConfig, &g.MeteoraConfig},
	}

	for _, k := range keys {
		if k.raw == "" {
			continue
		}
		key, err := solana.PublicKeyFromBase58(k.raw)
		if err != nil {
			return curve.GlobalConfig{}, fmt.Errorf("invalid curve.%s: %w", k.field, err)
		}
		*k.dst = key
	}

	if err := g.Validate(); err != nil {
		return curve.GlobalConfig{}, err
	}
	return g, nil
}

// LoggerConfig converts the log section for logger.New.
func (l LogConfig) LoggerConfig() *logger.Config {
	return &logger.Config{
		LogFile:     l.File,
		Level:       l.Level,
		MaxSize:     l.MaxSize,
		MaxAge:      l.MaxAge,
		MaxBackups:  l.MaxBackups,
		Compress:    l.Compress,
		Development: l.Development,
		Console:     l.Console,
	}
}

// RetryDelayDuration returns the storage retry delay.
func (s StorageConfig) RetryDelayDuration() time.Duration {
	return time.Duration(s.RetryDelay) * time.Millisecond
}
