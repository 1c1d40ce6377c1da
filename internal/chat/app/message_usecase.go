package app

import (
	"context"
	"strings"

	"collab_chat_service/internal/chat/domain"
	"collab_chat_service/internal/chat/repository"
	errprocess "collab_chat_service/pkg/err"
	"collab_chat_service/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SendMessageUseCase 負責處理聊天訊息
type SendMessageUseCase struct {
	threadRepo repository.ThreadRepository
	msgRepo    repository.MessageRepository
	userRepo   repository.UserRepository
	unreadUC   *UnreadUseCase
	pubSub     repository.PubSub
}

// NewSendMessageUseCase init create message use case
func NewSendMessageUseCase(
	threadRepo repository.ThreadRepository,
	msgRepo repository.MessageRepository,
	userRepo repository.UserRepository,
	unreadUC *UnreadUseCase,
	pub repository.PubSub,
) *SendMessageUseCase {
	return &SendMessageUseCase{
		threadRepo: threadRepo,
		msgRepo:    msgRepo,
		userRepo:   userRepo,
		unreadUC:   unreadUC,
		pubSub:     pub,
	}
}

// Execute create and broadcast a message
func (uc *SendMessageUseCase) Execute(ctx context.Context, threadID, senderID, content string) (*domain.Message, error) {
	msg, err := uc.Create(ctx, threadID, senderID, content)
	if err != nil {
		return nil, err
	}
	uc.Broadcast(ctx, msg)
	return msg, nil
}

// Create persist a message and mark the thread read for the sender
func (uc *SendMessageUseCase) Create(ctx context.Context, threadID, senderID, content string) (*domain.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, errprocess.New(errprocess.ErrInvalidInput, "message.create", "content required")
	}

	// 1. 檢查 thread 與權限
	thread, err := authorizeThread(ctx, uc.threadRepo, threadID, senderID)
	if err != nil {
		return nil, err
	}

	// 2. 建立訊息
	msg := &domain.Message{
		ID:        uuid.NewString(),
		ThreadID:  thread.ID,
		AuthorID:  senderID,
		Content:   content,
		CreatedAt: timeNow(),
	}
	if err := uc.msgRepo.Create(ctx, msg); err != nil {
		return nil, err
	}

	// 3. 自己送出的訊息視為已讀, 失敗不影響送出
	if err := uc.unreadUC.MarkThreadRead(ctx, thread, senderID); err != nil {
		logger.Log.Warn("mark read after send failed", zap.String("thread_id", thread.ID), zap.String("user_id", senderID), zap.Error(err))
	}

	// 4. 作者顯示資料
	if author, err := uc.userRepo.FindByID(ctx, senderID); err == nil {
		msg.Author = author
	} else {
		msg.Author = &domain.User{ID: senderID, DisplayName: senderID}
	}
	return msg, nil
}

// Broadcast publish new_message on the thread topic and every participant's user topic
func (uc *SendMessageUseCase) Broadcast(ctx context.Context, msg *domain.Message) {
	if uc.pubSub == nil {
		return
	}
	evt := domain.RealtimeEvent{
		Type:     domain.EventNewMessage,
		ThreadID: msg.ThreadID,
		UserID:   msg.AuthorID,
		Message:  msg,
		SentAt:   timeNow(),
	}

	if err := uc.pubSub.Publish(ctx, domain.ThreadTopic(msg.ThreadID), evt); err != nil {
		logger.Log.Warn("publish thread event failed", zap.String("thread_id", msg.ThreadID), zap.Error(err))
	}

	thread, err := uc.threadRepo.FindByID(ctx, msg.ThreadID)
	if err != nil {
		logger.Log.Warn("broadcast thread lookup failed", zap.String("thread_id", msg.ThreadID), zap.Error(err))
		return
	}
	members, err := uc.threadRepo.ParticipantIDs(ctx, thread)
	if err != nil {
		logger.Log.Warn("broadcast participants lookup failed", zap.String("thread_id", msg.ThreadID), zap.Error(err))
		return
	}
	for _, memberID := range members {
		if err := uc.pubSub.Publish(ctx, domain.UserTopic(memberID), evt); err != nil {
			logger.Log.Warn("publish user event failed", zap.String("user_id", memberID), zap.Error(err))
		}
	}
}

// PublishTyping broadcast a typing or typing_stop event on the thread topic
func (uc *SendMessageUseCase) PublishTyping(ctx context.Context, threadID, userID string, typ domain.EventType) error {
	if uc.pubSub == nil {
		return nil
	}
	return uc.pubSub.Publish(ctx, domain.ThreadTopic(threadID), domain.RealtimeEvent{
		Type:     typ,
		ThreadID: threadID,
		UserID:   userID,
		SentAt:   timeNow(),
	})
}
