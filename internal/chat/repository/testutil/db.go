// Package testutil opens throwaway chat databases for tests.
package testutil

import (
	"fmt"
	"testing"
	"time"

	"collab_chat_service/internal/chat/domain"
	"collab_chat_service/internal/chat/repository"
	"collab_chat_service/pkg/database"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB open a migrated in-memory sqlite database private to tb
func NewDB(tb testing.TB) *gorm.DB {
	tb.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                                   database.NewGormLogger(logger.Silent, 0),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		tb.Fatalf("open sqlite: %v", err)
	}
	if err := repository.AutoMigrate(db); err != nil {
		tb.Fatalf("migrate: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		tb.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	tb.Cleanup(func() { sqlDB.Close() })
	return db
}

// SeedUsers insert users with display name equal to id
func SeedUsers(tb testing.TB, db *gorm.DB, ids ...string) {
	tb.Helper()
	for _, id := range ids {
		if err := db.Create(&domain.User{ID: id, DisplayName: id}).Error; err != nil {
			tb.Fatalf("seed user %s: %v", id, err)
		}
	}
}

// SeedMessage insert a message at created and advance the thread's last activity
func SeedMessage(tb testing.TB, db *gorm.DB, threadID, authorID, content string, created time.Time) domain.Message {
	tb.Helper()
	m := domain.Message{
		ID:        uuid.NewString(),
		ThreadID:  threadID,
		AuthorID:  authorID,
		Content:   content,
		CreatedAt: created,
	}
	if err := db.Create(&m).Error; err != nil {
		tb.Fatalf("seed message: %v", err)
	}
	if err := db.Model(&domain.Thread{}).Where("id = ? AND last_activity_at < ?", threadID, created).
		Update("last_activity_at", created).Error; err != nil {
		tb.Fatalf("seed activity: %v", err)
	}
	return m
}
