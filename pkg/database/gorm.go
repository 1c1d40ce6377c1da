package database

import (
	"fmt"
	"time"

	"collab_chat_service/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// NewGormDB open a gorm postgres connection with retry
func NewGormDB(d Connection) (*gorm.DB, error) {
	var (
		db  *gorm.DB
		err error
	)

	attempts := d.RetryCount
	if attempts < 1 {
		attempts = 1
	}
	for i := 0; i < attempts; i++ {
		db, err = gorm.Open(postgres.Open(d.ConnectStr), &gorm.Config{
			Logger:                                   NewGormLogger(gormlogger.Warn, 200*time.Millisecond),
			DisableForeignKeyConstraintWhenMigrating: true,
		})
		if err == nil {
			sqlDB, dbErr := db.DB()
			if dbErr == nil {
				if err = sqlDB.Ping(); err == nil {
					sqlDB.SetMaxOpenConns(25)
					sqlDB.SetMaxIdleConns(5)
					sqlDB.SetConnMaxLifetime(30 * time.Minute)
					return db, nil
				}
			} else {
				err = dbErr
			}
		}
		logger.Log.Warn("Failed to open gorm postgres, retrying...", zap.Int("attempt", i+1), zap.Error(err))
		time.Sleep(d.RetryInterval)
	}

	return nil, fmt.Errorf("open gorm postgres: %w", err)
}
