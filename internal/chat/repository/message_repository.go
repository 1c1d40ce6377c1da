package repository

import (
	"context"
	"time"

	"collab_chat_service/internal/chat/domain"

	"gorm.io/gorm"
)

// MessageRepository definition chat messages
type MessageRepository interface {
	// Create 寫入訊息並推進 thread last_activity_at
	Create(ctx context.Context, msg *domain.Message) error
	// FindByID 讀取訊息與作者
	FindByID(ctx context.Context, messageID string) (*domain.Message, error)
	// ListByThread 最新 limit 筆, 依建立時間升序
	ListByThread(ctx context.Context, threadID string, limit int) ([]domain.Message, error)
	// CountUnread created_at > since 且非 userID 所寫
	CountUnread(ctx context.Context, threadID, userID string, since time.Time) (int, error)
	// LatestByThreads 每個 thread 最後一則訊息
	LatestByThreads(ctx context.Context, threadIDs []string) (map[string]domain.Message, error)
}

type messageRepository struct {
	db *gorm.DB
}

// NewMessageRepository create a gorm MessageRepository
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) Create(ctx context.Context, msg *domain.Message) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Author").Create(msg).Error; err != nil {
			return err
		}
		return tx.Model(&domain.Thread{}).
			Where("id = ? AND last_activity_at < ?", msg.ThreadID, msg.CreatedAt).
			Update("last_activity_at", msg.CreatedAt).Error
	})
	return wrapDBErr("message.create", err)
}

func (r *messageRepository) FindByID(ctx context.Context, messageID string) (*domain.Message, error) {
	var m domain.Message
	if err := r.db.WithContext(ctx).Preload("Author").First(&m, "id = ?", messageID).Error; err != nil {
		return nil, wrapDBErr("message.find", err)
	}
	return &m, nil
}

func (r *messageRepository) ListByThread(ctx context.Context, threadID string, limit int) ([]domain.Message, error) {
	var msgs []domain.Message
	q := r.db.WithContext(ctx).Preload("Author").
		Where("thread_id = ?", threadID).
		Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&msgs).Error; err != nil {
		return nil, wrapDBErr("message.list", err)
	}

	// 反轉成升序
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

func (r *messageRepository) CountUnread(ctx context.Context, threadID, userID string, since time.Time) (int, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.Message{}).
		Where("thread_id = ? AND created_at > ? AND author_id <> ?", threadID, since, userID).
		Count(&n).Error
	if err != nil {
		return 0, wrapDBErr("message.count_unread", err)
	}
	return int(n), nil
}

func (r *messageRepository) LatestByThreads(ctx context.Context, threadIDs []string) (map[string]domain.Message, error) {
	out := make(map[string]domain.Message, len(threadIDs))
	for _, id := range threadIDs {
		var m domain.Message
		err := r.db.WithContext(ctx).
			Where("thread_id = ?", id).
			Order("created_at DESC").
			Limit(1).
			Find(&m).Error
		if err != nil {
			return nil, wrapDBErr("message.latest", err)
		}
		if m.ID != "" {
			out[id] = m
		}
	}
	return out, nil
}
