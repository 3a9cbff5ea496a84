package config

import (
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/rpattn/cvetrack/internal/db"
)

// AppConfig holds the service tunables. Every bound the query and
// aggregation layers enforce is injected from here rather than read from
// package globals so tests can vary them.
type AppConfig struct {
	Port string
	// MaxPage is the system-wide result cap: no listing operation can
	// return (or be asked to return) more rows than this in one page.
	MaxPage int
	// TopN is the number of event names a monthly-trends response covers.
	TopN int
	// SuggestLimit caps autocomplete suggestions per request.
	SuggestLimit int
	// TrendCacheTTL is how long a cached monthly-trends payload may be
	// served before it is recomputed.
	TrendCacheTTL time.Duration
	// ExportMaxRows is a safety valve for the otherwise unbounded export:
	// 0 disables the ceiling, which means a filter matching the whole
	// table will stream the whole table into the workbook.
	ExportMaxRows int64
	// ExportPageSize is the batch size the export worker reads with.
	ExportPageSize int
	ExportDir      string
	MigrationsPath string
}

// Config is the full service configuration.
type Config struct {
	DB  db.Config
	App AppConfig
}

// DefaultAppConfig returns the documented defaults.
func DefaultAppConfig() AppConfig {
	return AppConfig{
		Port:           "8080",
		MaxPage:        5000,
		TopN:           5,
		SuggestLimit:   10,
		TrendCacheTTL:  5 * time.Minute,
		ExportMaxRows:  0,
		ExportPageSize: 1000,
		ExportDir:      "",
		MigrationsPath: "./migrations",
	}
}

// Load reads config.yaml from configPath, with environment overrides
// (CVETRACK_ prefix, e.g. CVETRACK_DATABASE_HOST). Missing file means
// defaults plus env.
func Load(configPath string, logger *zap.Logger) (Config, error) {
	cfg := Config{
		DB:  db.DefaultConfig(),
		App: DefaultAppConfig(),
	}

	if configPath == "" {
		configPath = "."
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AutomaticEnv()
	v.SetEnvPrefix("CVETRACK")

	v.BindEnv("database.host")
	v.BindEnv("database.port")
	v.BindEnv("database.user")
	v.BindEnv("database.password")
	v.BindEnv("database.dbname")
	v.BindEnv("database.sslmode")
	v.BindEnv("server.port")

	if err := v.ReadInConfig(); err != nil {
		logger.Info("no config.yaml found, using defaults and env vars")
	} else {
		logger.Info("loaded config.yaml", zap.String("path", v.ConfigFileUsed()))
	}

	if v.IsSet("database.host") {
		cfg.DB.Host = v.GetString("database.host")
	}
	if v.IsSet("database.port") {
		cfg.DB.Port = v.GetInt("database.port")
	}
	if v.IsSet("database.user") {
		cfg.DB.User = v.GetString("database.user")
	}
	if v.IsSet("database.password") {
		cfg.DB.Password = v.GetString("database.password")
	}
	if v.IsSet("database.dbname") {
		cfg.DB.DBName = v.GetString("database.dbname")
	}
	if v.IsSet("database.sslmode") {
		cfg.DB.SSLMode = v.GetString("database.sslmode")
	}

	if v.IsSet("server.port") {
		cfg.App.Port = v.GetString("server.port")
	}
	if v.IsSet("query.maxPage") {
		cfg.App.MaxPage = v.GetInt("query.maxPage")
	}
	if v.IsSet("trends.topN") {
		cfg.App.TopN = v.GetInt("trends.topN")
	}
	if v.IsSet("trends.cacheTTL") {
		cfg.App.TrendCacheTTL = v.GetDuration("trends.cacheTTL")
	}
	if v.IsSet("suggest.limit") {
		cfg.App.SuggestLimit = v.GetInt("suggest.limit")
	}
	if v.IsSet("export.maxRows") {
		cfg.App.ExportMaxRows = v.GetInt64("export.maxRows")
	}
	if v.IsSet("export.pageSize") {
		cfg.App.ExportPageSize = v.GetInt("export.pageSize")
	}
	if v.IsSet("export.dir") {
		cfg.App.ExportDir = v.GetString("export.dir")
	}
	if v.IsSet("migrations.path") {
		cfg.App.MigrationsPath = v.GetString("migrations.path")
	}

	return cfg, nil
}
