package repository

import (
	"context"
	"errors"
	"time"

	"collab_chat_service/internal/chat/domain"
	"collab_chat_service/pkg/database"
	"collab_chat_service/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UserRepository definition author profiles
type UserRepository interface {
	FindByID(ctx context.Context, userID string) (*domain.User, error)
	// Upsert 以 identity provider 的 claims 更新 profile
	Upsert(ctx context.Context, user *domain.User) error
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository create a gorm UserRepository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) FindByID(ctx context.Context, userID string) (*domain.User, error) {
	var u domain.User
	if err := r.db.WithContext(ctx).First(&u, "id = ?", userID).Error; err != nil {
		return nil, wrapDBErr("user.find", err)
	}
	return &u, nil
}

func (r *userRepository) Upsert(ctx context.Context, user *domain.User) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"display_name", "avatar_url"}),
	}).Create(user).Error
	return wrapDBErr("user.upsert", err)
}

type cachedUserRepository struct {
	next  UserRepository
	cache database.RedisRepository[domain.User]
	ttl   time.Duration
}

// NewCachedUserRepository read-through redis cache in front of next
func NewCachedUserRepository(next UserRepository, cache database.RedisRepository[domain.User], ttl time.Duration) UserRepository {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &cachedUserRepository{next: next, cache: cache, ttl: ttl}
}

func userCacheKey(userID string) string {
	return "chat:profile:" + userID
}

func (r *cachedUserRepository) FindByID(ctx context.Context, userID string) (*domain.User, error) {
	key := userCacheKey(userID)
	u, err := r.cache.Get(ctx, key)
	if err == nil {
		r.touch(ctx, key)
		return &u, nil
	}
	if !errors.Is(err, database.ErrCacheMiss) {
		logger.Log.Warn("profile cache read failed", zap.String("user_id", userID), zap.Error(err))
	}

	found, err := r.next.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := r.cache.Set(ctx, userCacheKey(userID), *found, r.ttl); err != nil {
		logger.Log.Warn("profile cache write failed", zap.String("user_id", userID), zap.Error(err))
	}
	return found, nil
}

// touch 剩餘 TTL 不到一半時延長, 常用的 profile 留在快取
func (r *cachedUserRepository) touch(ctx context.Context, key string) {
	left, err := r.cache.GetTTL(ctx, key)
	if err != nil || time.Duration(left)*time.Second >= r.ttl/2 {
		return
	}
	if err := r.cache.ExtendTTL(ctx, key, r.ttl); err != nil {
		logger.Log.Debug("profile cache extend failed", zap.String("key", key), zap.Error(err))
	}
}

func (r *cachedUserRepository) Upsert(ctx context.Context, user *domain.User) error {
	if err := r.next.Upsert(ctx, user); err != nil {
		return err
	}
	if err := r.cache.Del(ctx, userCacheKey(user.ID)); err != nil {
		logger.Log.Warn("profile cache evict failed", zap.String("user_id", user.ID), zap.Error(err))
	}
	return nil
}
