package storage

import (
	"fmt"

	"urlmapper/internal/config"
	"urlmapper/internal/logger"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

// Open 打开 sqlite 数据库并完成表结构迁移
func Open(cfg *config.Config, l logger.Logger) (*gorm.DB, error) {
	gl := NewGormLogger(l.With("component", "gorm"))
	if logger.ParseLevel(cfg.Log.Level) == zerolog.TraceLevel {
		gl.LogLevel = gormlogger.Info
	}

	db, err := gorm.Open(sqlite.Open(cfg.Sqlite.Dsn), &gorm.Config{
		Logger: gl,
		NamingStrategy: schema.NamingStrategy{
			TablePrefix: cfg.Sqlite.Prefix,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", cfg.Sqlite.Dsn, err)
	}
	if err := db.AutoMigrate(&Mapping{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// Close 关闭底层连接
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
