package app

import (
	"context"
	"time"

	"collab_chat_service/internal/chat/domain"

	"github.com/stretchr/testify/mock"
)

// MockThreadRepository Mock ThreadRepository
type MockThreadRepository struct {
	mock.Mock
}

// FindOrCreateDirect mock find or create direct thread
func (m *MockThreadRepository) FindOrCreateDirect(ctx context.Context, userX, userY string) (*domain.Thread, bool, error) {
	args := m.Called(ctx, userX, userY)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.Thread), args.Bool(1), args.Error(2)
	}
	return nil, args.Bool(1), args.Error(2)
}

// CreateGroupThread mock create group thread
func (m *MockThreadRepository) CreateGroupThread(ctx context.Context, group *domain.Group, memberIDs []string) (*domain.Thread, error) {
	args := m.Called(ctx, group, memberIDs)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.Thread), args.Error(1)
	}
	return nil, args.Error(1)
}

// FindByID mock find thread
func (m *MockThreadRepository) FindByID(ctx context.Context, threadID string) (*domain.Thread, error) {
	args := m.Called(ctx, threadID)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.Thread), args.Error(1)
	}
	return nil, args.Error(1)
}

// FindGroup mock find group
func (m *MockThreadRepository) FindGroup(ctx context.Context, groupID string) (*domain.Group, error) {
	args := m.Called(ctx, groupID)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.Group), args.Error(1)
	}
	return nil, args.Error(1)
}

// ListForUser mock list threads with cursor
func (m *MockThreadRepository) ListForUser(ctx context.Context, userID string) ([]domain.ThreadCursor, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) != nil {
		return args.Get(0).([]domain.ThreadCursor), args.Error(1)
	}
	return nil, args.Error(1)
}

// IsParticipant mock participant check
func (m *MockThreadRepository) IsParticipant(ctx context.Context, thread *domain.Thread, userID string) (bool, error) {
	args := m.Called(ctx, thread, userID)
	return args.Bool(0), args.Error(1)
}

// ParticipantIDs mock participant ids
func (m *MockThreadRepository) ParticipantIDs(ctx context.Context, thread *domain.Thread) ([]string, error) {
	args := m.Called(ctx, thread)
	if args.Get(0) != nil {
		return args.Get(0).([]string), args.Error(1)
	}
	return nil, args.Error(1)
}

// UpdateReadCursor mock cursor update
func (m *MockThreadRepository) UpdateReadCursor(ctx context.Context, thread *domain.Thread, userID string, at time.Time) error {
	args := m.Called(ctx, thread, userID, at)
	return args.Error(0)
}

// MockMessageRepository Mock MessageRepository
type MockMessageRepository struct {
	mock.Mock
}

// Create mock create message
func (m *MockMessageRepository) Create(ctx context.Context, msg *domain.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

// FindByID mock find message
func (m *MockMessageRepository) FindByID(ctx context.Context, messageID string) (*domain.Message, error) {
	args := m.Called(ctx, messageID)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.Message), args.Error(1)
	}
	return nil, args.Error(1)
}

// ListByThread mock list messages
func (m *MockMessageRepository) ListByThread(ctx context.Context, threadID string, limit int) ([]domain.Message, error) {
	args := m.Called(ctx, threadID, limit)
	if args.Get(0) != nil {
		return args.Get(0).([]domain.Message), args.Error(1)
	}
	return nil, args.Error(1)
}

// CountUnread mock unread count
func (m *MockMessageRepository) CountUnread(ctx context.Context, threadID, userID string, since time.Time) (int, error) {
	args := m.Called(ctx, threadID, userID, since)
	return args.Int(0), args.Error(1)
}

// LatestByThreads mock latest messages
func (m *MockMessageRepository) LatestByThreads(ctx context.Context, threadIDs []string) (map[string]domain.Message, error) {
	args := m.Called(ctx, threadIDs)
	if args.Get(0) != nil {
		return args.Get(0).(map[string]domain.Message), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockUserRepository Mock UserRepository
type MockUserRepository struct {
	mock.Mock
}

// FindByID mock find user
func (m *MockUserRepository) FindByID(ctx context.Context, userID string) (*domain.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.User), args.Error(1)
	}
	return nil, args.Error(1)
}

// Upsert mock upsert user
func (m *MockUserRepository) Upsert(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

// MockTranslationRepository Mock TranslationRepository
type MockTranslationRepository struct {
	mock.Mock
}

// Find mock cache lookup
func (m *MockTranslationRepository) Find(ctx context.Context, key domain.TranslationKey) (*domain.Translation, error) {
	args := m.Called(ctx, key)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.Translation), args.Error(1)
	}
	return nil, args.Error(1)
}

// Save mock cache write
func (m *MockTranslationRepository) Save(ctx context.Context, tr *domain.Translation) error {
	args := m.Called(ctx, tr)
	return args.Error(0)
}

// ListByEntities mock cache list
func (m *MockTranslationRepository) ListByEntities(ctx context.Context, entityType string, entityIDs []string) (map[string][]domain.Translation, error) {
	args := m.Called(ctx, entityType, entityIDs)
	if args.Get(0) != nil {
		return args.Get(0).(map[string][]domain.Translation), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockPubSub Mock PubSub
type MockPubSub struct {
	mock.Mock
}

// Publish mock publish
func (m *MockPubSub) Publish(ctx context.Context, topic string, event domain.RealtimeEvent) error {
	args := m.Called(ctx, topic, event)
	return args.Error(0)
}

// Subscribe mock subscribe
func (m *MockPubSub) Subscribe(ctx context.Context, topic string, handler func(domain.RealtimeEvent)) error {
	args := m.Called(ctx, topic, handler)
	return args.Error(0)
}

// MockTranslator Mock Translator
type MockTranslator struct {
	mock.Mock
}

// Translate mock external translate
func (m *MockTranslator) Translate(ctx context.Context, text, targetLang string) (TranslationResult, error) {
	args := m.Called(ctx, text, targetLang)
	return args.Get(0).(TranslationResult), args.Error(1)
}

// MockMessageSender Mock MessageSender
type MockMessageSender struct {
	mock.Mock
}

// Create mock durable create
func (m *MockMessageSender) Create(ctx context.Context, threadID, senderID, content string) (*domain.Message, error) {
	args := m.Called(ctx, threadID, senderID, content)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.Message), args.Error(1)
	}
	return nil, args.Error(1)
}

// Broadcast mock broadcast
func (m *MockMessageSender) Broadcast(ctx context.Context, msg *domain.Message) {
	m.Called(ctx, msg)
}

// PublishTyping mock typing publish
func (m *MockMessageSender) PublishTyping(ctx context.Context, threadID, userID string, typ domain.EventType) error {
	args := m.Called(ctx, threadID, userID, typ)
	return args.Error(0)
}

// MockMessageTranslator Mock MessageTranslator
type MockMessageTranslator struct {
	mock.Mock
}

// TranslateMessage mock cache-first translate
func (m *MockMessageTranslator) TranslateMessage(ctx context.Context, msg *domain.Message, lang string) (*domain.Translation, error) {
	args := m.Called(ctx, msg, lang)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.Translation), args.Error(1)
	}
	return nil, args.Error(1)
}
