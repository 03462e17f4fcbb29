package db

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/dbresolver"

	"profeamigo/config"
	"profeamigo/models"
)

// ConnectMySQL opens the users database, registers read replicas when
// configured and verifies the connection.
func ConnectMySQL(cfg *config.Config) (*gorm.DB, error) {
	gormLogger := logger.Default.LogMode(logger.Warn)
	if !cfg.IsProduction() {
		gormLogger = logger.Default.LogMode(logger.Info)
	}
	gdb, err := gorm.Open(mysql.Open(cfg.MySQLDSN()), &gorm.Config{
		Logger:         gormLogger,
		TranslateError: true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to open MySQL")
	}

	if len(cfg.Database.Replicas) > 0 {
		replicas := make([]gorm.Dialector, 0, len(cfg.Database.Replicas))
		for _, dsn := range cfg.Database.Replicas {
			replicas = append(replicas, mysql.Open(dsn))
		}
		err := gdb.Use(dbresolver.Register(dbresolver.Config{
			Replicas: replicas,
			Policy:   dbresolver.RandomPolicy{},
		}).SetMaxOpenConns(cfg.Database.MaxOpenConns))
		if err != nil {
			return nil, errors.Wrap(err, "failed to register replicas")
		}
		zap.S().Infof("mysql: %d read replicas registered", len(replicas))
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get sql.DB")
	}
	sqlDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, errors.Wrap(err, "failed to ping MySQL")
	}
	zap.S().Infof("mysql: connected to %s:%d/%s", cfg.Database.Host, cfg.Database.Port, cfg.Database.Name)
	return gdb, nil
}

// AutoMigrate creates or updates the tables the app owns.
func AutoMigrate(gdb *gorm.DB) error {
	return errors.Wrap(gdb.AutoMigrate(&models.User{}), "auto migrate")
}
