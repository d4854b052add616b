package db

import (
	"fmt"
	"kejinlab/internal/logger"
	"kejinlab/internal/models"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

// Init 连接 PostgreSQL 并迁移评论表
func Init(dsn string) error {
	conn, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	logger.L().Info("database connection established")

	if err := Migrate(conn); err != nil {
		return err
	}
	logger.L().Info("database migration completed")

	DB = conn
	return nil
}

// Migrate creates or updates the comments table.
func Migrate(conn *gorm.DB) error {
	if err := conn.AutoMigrate(&models.Comment{}); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func Close() {
	if DB == nil {
		return
	}
	sqlDB, err := DB.DB()
	if err != nil {
		logger.L().Warn("get sql db", zap.Error(err))
		return
	}
	if err := sqlDB.Close(); err != nil {
		logger.L().Warn("close database", zap.Error(err))
	}
}
