package main

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/rowmap-io/rowmap/internal/cli/config"
	"github.com/rowmap-io/rowmap/storage"
)

// openStore builds the configured store adapter and a matching logger
func openStore() (storage.Store, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	logger, err := buildLogger(cfg.Logging.Level)
	if err != nil {
		return nil, nil, err
	}

	switch cfg.Store.Backend {
	case "redis":
		store, err := storage.NewRedisStore(storage.RedisConfig{
			Addr:     cfg.Store.Redis.Addr,
			Password: cfg.Store.Redis.Password,
			DB:       cfg.Store.Redis.DB,
			Prefix:   cfg.Store.Redis.Prefix,
		}, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Store.Redis.Addr, err)
		}
		return store, logger, nil
	case "sqlite":
		store, err := storage.NewSQLiteStore(cfg.Store.SQLite.Path, logger)
		if err != nil {
			return nil, nil, err
		}
		return store, logger, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend: %s", cfg.Store.Backend)
	}
}

func buildLogger(level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %s: %w", level, err)
	}

	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = lvl
	return zapCfg.Build()
}
