package app

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"collab_chat_service/internal/chat/domain"
	"collab_chat_service/internal/chat/store"
	errprocess "collab_chat_service/pkg/err"
	"collab_chat_service/pkg/logger"

	"go.uber.org/zap"
)

// MessageSender durable create + realtime broadcast
type MessageSender interface {
	Create(ctx context.Context, threadID, senderID, content string) (*domain.Message, error)
	Broadcast(ctx context.Context, msg *domain.Message)
	PublishTyping(ctx context.Context, threadID, userID string, typ domain.EventType) error
}

// MessageTranslator cache-first translation of a stored message
type MessageTranslator interface {
	TranslateMessage(ctx context.Context, msg *domain.Message, lang string) (*domain.Translation, error)
}

// ControllerState send state of a chat window
type ControllerState string

const (
	// StateIdle nothing in flight
	StateIdle ControllerState = "idle"
	// StateSending a send is in flight
	StateSending ControllerState = "sending"
)

// ChatWindowController composer, send, translate and typing of one open thread
type ChatWindowController struct {
	threadID      string
	userID        string
	store         *store.Store
	sender        MessageSender
	translator    MessageTranslator
	typingTimeout time.Duration
	onTyping      func(userID string, typing bool)

	mu          sync.Mutex
	state       ControllerState
	composer    string
	language    string
	translating map[string]bool
	typing      map[string]typingEntry
	typingGen   uint64
	closed      bool
}

type typingEntry struct {
	gen   uint64
	timer *time.Timer
}

// NewChatWindowController create a controller for threadID
func NewChatWindowController(
	threadID, userID string,
	s *store.Store,
	sender MessageSender,
	translator MessageTranslator,
	language string,
	typingTimeout time.Duration,
	onTyping func(userID string, typing bool),
) *ChatWindowController {
	if typingTimeout <= 0 {
		typingTimeout = 3 * time.Second
	}
	if onTyping == nil {
		onTyping = func(string, bool) {}
	}
	return &ChatWindowController{
		threadID:      threadID,
		userID:        userID,
		store:         s,
		sender:        sender,
		translator:    translator,
		typingTimeout: typingTimeout,
		onTyping:      onTyping,
		state:         StateIdle,
		language:      NormalizeLanguage(language),
		translating:   make(map[string]bool),
		typing:        make(map[string]typingEntry),
	}
}

// ThreadID thread this controller is bound to
func (c *ChatWindowController) ThreadID() string {
	return c.threadID
}

// State current send state
func (c *ChatWindowController) State() ControllerState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Composer current composer text
func (c *ChatWindowController) Composer() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.composer
}

// SetLanguage target language for Translate
func (c *ChatWindowController) SetLanguage(lang string) {
	c.mu.Lock()
	c.language = NormalizeLanguage(lang)
	c.mu.Unlock()
}

// Translating whether messageID has a translation in flight
func (c *ChatWindowController) Translating(messageID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.translating[messageID]
}

// UpdateComposer store text and broadcast typing while it is non-empty
func (c *ChatWindowController) UpdateComposer(ctx context.Context, text string) {
	c.mu.Lock()
	c.composer = text
	c.mu.Unlock()

	if strings.TrimSpace(text) == "" {
		return
	}
	if err := c.sender.PublishTyping(ctx, c.threadID, c.userID, domain.EventTyping); err != nil {
		logger.Log.Debug("typing publish failed", zap.String("thread_id", c.threadID), zap.Error(err))
	}
}

// Send create text as a message, nil message and nil error means nothing was sent
func (c *ChatWindowController) Send(ctx context.Context, text string) (*domain.Message, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	c.mu.Lock()
	if c.state == StateSending {
		c.mu.Unlock()
		return nil, nil
	}
	c.state = StateSending
	c.composer = text
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.state = StateIdle
		c.mu.Unlock()
	}()

	msg, err := c.sender.Create(ctx, c.threadID, c.userID, text)
	if err != nil {
		// composer 保留原文讓使用者重送
		return nil, err
	}

	c.store.AddMessage(c.threadID, *msg)
	c.sender.Broadcast(ctx, msg)

	c.mu.Lock()
	if c.composer == text {
		c.composer = ""
	}
	c.mu.Unlock()

	if err := c.sender.PublishTyping(ctx, c.threadID, c.userID, domain.EventTypingStop); err != nil {
		logger.Log.Debug("typing_stop publish failed", zap.String("thread_id", c.threadID), zap.Error(err))
	}
	return msg, nil
}

// Translate translate a stored message into the controller language
func (c *ChatWindowController) Translate(ctx context.Context, messageID string) (*domain.Translation, error) {
	msg, ok := c.store.Message(c.threadID, messageID)
	if !ok {
		return nil, errprocess.New(errprocess.ErrNotFound, "translate", "message "+messageID+" not loaded in thread")
	}

	c.mu.Lock()
	lang := c.language
	c.translating[messageID] = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.translating, messageID)
		c.mu.Unlock()
	}()

	if tr, ok := msg.TranslationFor(lang); ok && tr.Fingerprint == domain.Fingerprint(msg.Content) {
		return &tr, nil
	}

	tr, err := c.translator.TranslateMessage(ctx, &msg, lang)
	if err != nil {
		return nil, err
	}
	c.store.AttachTranslation(c.threadID, messageID, *tr)
	return tr, nil
}

// HandleTyping start, reset or clear the countdown of another user's typing indicator
func (c *ChatWindowController) HandleTyping(evt domain.RealtimeEvent) {
	if evt.ThreadID != c.threadID || evt.UserID == "" || evt.UserID == c.userID {
		return
	}
	userID := evt.UserID

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	current, active := c.typing[userID]
	if active {
		current.timer.Stop()
	}

	switch evt.Type {
	case domain.EventTyping:
		// 每次 typing 重新倒數
		c.typingGen++
		gen := c.typingGen
		c.typing[userID] = typingEntry{
			gen:   gen,
			timer: time.AfterFunc(c.typingTimeout, func() { c.expireTyping(userID, gen) }),
		}
		c.mu.Unlock()
		if !active {
			c.onTyping(userID, true)
		}

	case domain.EventTypingStop:
		delete(c.typing, userID)
		c.mu.Unlock()
		if active {
			c.onTyping(userID, false)
		}

	default:
		c.mu.Unlock()
	}
}

func (c *ChatWindowController) expireTyping(userID string, gen uint64) {
	c.mu.Lock()
	if current, ok := c.typing[userID]; !ok || current.gen != gen || c.closed {
		c.mu.Unlock()
		return
	}
	delete(c.typing, userID)
	c.mu.Unlock()
	c.onTyping(userID, false)
}

// TypingUsers users currently shown as typing
func (c *ChatWindowController) TypingUsers() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	users := make([]string, 0, len(c.typing))
	for id := range c.typing {
		users = append(users, id)
	}
	sort.Strings(users)
	return users
}

// IsOtherTyping whether anyone else is typing
func (c *ChatWindowController) IsOtherTyping() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.typing) > 0
}

// Close stop typing timers, in-flight work may still update the store
func (c *ChatWindowController) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	for id, e := range c.typing {
		e.timer.Stop()
		delete(c.typing, id)
	}
}
