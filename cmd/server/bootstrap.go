package main

import (
	"context"
	"os"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"profeamigo/config"
	"profeamigo/db"
	"profeamigo/utils"
)

// backends are the stores the server runs on. Missing optional backends fall
// back to in-memory stores outside production.
type backends struct {
	users    db.UserRepository
	profiles db.ProfileStore
	redis    *redis.Client
	closers  []func()
}

func (b *backends) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

// loadConfig reads and validates the configuration and installs the logger.
func loadConfig(path string) (*config.Config, *zap.Logger, error) {
	if path == defaultConfigPath {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			path = ""
		}
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, nil, err
	}
	logger, err := utils.InitLogger(cfg.IsProduction(), cfg.Log.Level)
	if err != nil {
		return nil, nil, err
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		for _, e := range errs {
			zap.S().Errorf("config: %v", e)
		}
		return nil, nil, errors.Errorf("invalid configuration (%d problems)", len(errs))
	}
	return cfg, logger, nil
}

func connectBackends(ctx context.Context, cfg *config.Config) (*backends, error) {
	b := &backends{}

	if cfg.Database.Host != "" {
		gdb, err := db.ConnectMySQL(cfg)
		if err != nil {
			return nil, err
		}
		b.users = db.NewGormUserRepository(gdb)
		if sqlDB, err := gdb.DB(); err == nil {
			b.closers = append(b.closers, func() { _ = sqlDB.Close() })
		}
	} else {
		zap.S().Warn("mysql: no database host configured, accounts are kept in memory")
		b.users = db.NewMemoryUserRepository()
	}

	if cfg.Mongo.URI != "" {
		client, database, err := db.ConnectMongoDB(cfg.Mongo.URI)
		if err != nil {
			b.Close()
			return nil, err
		}
		b.profiles = db.NewMongoProfileStore(database)
		b.closers = append(b.closers, func() { _ = client.Disconnect(context.Background()) })
	} else {
		zap.S().Warn("mongo: no URI configured, skill profiles are kept in memory")
		b.profiles = db.NewMemoryProfileStore()
	}

	if cfg.Redis.Addr != "" {
		rdb, err := db.ConnectRedis(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			if cfg.IsProduction() {
				b.Close()
				return nil, err
			}
			zap.S().Warnf("redis: %v, correction history disabled", err)
		} else {
			b.redis = rdb
			b.closers = append(b.closers, func() { _ = rdb.Close() })
		}
	}
	return b, nil
}

// setupJWTSecret installs the signing secret. Production refuses to start
// without one; elsewhere a random secret is used for the process lifetime.
func setupJWTSecret(cfg *config.Config) error {
	secret := cfg.JWT.Secret
	switch {
	case secret == "" && cfg.IsProduction():
		return errors.New("JWT_SECRET is not set in production")
	case secret == "":
		random, err := utils.GenerateRandomToken(48)
		if err != nil {
			return err
		}
		secret = random
		zap.S().Warn("jwt: JWT_SECRET is not set, using a random secret; tokens will not survive a restart")
	case len(secret) < 32:
		zap.S().Warnf("jwt: JWT_SECRET is only %d characters, use at least 32", len(secret))
	}
	utils.SetJWTSecret(secret)
	return nil
}
