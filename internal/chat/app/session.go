package app

import (
	"context"
	"strings"
	"sync"
	"time"

	"collab_chat_service/internal/chat/domain"
	"collab_chat_service/internal/chat/repository"
	"collab_chat_service/internal/chat/store"
	"collab_chat_service/pkg/config"
	errprocess "collab_chat_service/pkg/err"
	"collab_chat_service/pkg/logger"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Services use cases and transports shared by every session
type Services struct {
	Threads   *ThreadUseCase
	Messages  *SendMessageUseCase
	Unread    *UnreadUseCase
	Translate *TranslateUseCase
	Profiles  repository.UserRepository
	PubSub    repository.PubSub
	Feed      repository.InsertFeed
}

// SessionConfig per-session tuning
type SessionConfig struct {
	TypingTimeout         time.Duration
	UnreadRefreshInterval time.Duration
	Language              string
	HistoryLimit          int
	SendRate              float64
	SendBurst             int
}

// SessionConfigFrom build SessionConfig from the realtime yaml section
func SessionConfigFrom(r config.RealtimeConfig) SessionConfig {
	r = r.WithDefaults()
	return SessionConfig{
		TypingTimeout:         r.TypingTimeout,
		UnreadRefreshInterval: r.UnreadRefreshInterval,
		Language:              r.DefaultLanguage,
		HistoryLimit:          r.HistoryLimit,
		SendRate:              r.SendRate,
		SendBurst:             r.SendBurst,
	}
}

// Session one connection's store, subscriptions and open chat window
type Session struct {
	userID     string
	svc        Services
	cfg        SessionConfig
	store      *store.Store
	emit       func(domain.WSResponse)
	reconciler *UnreadReconciler
	limiter    *rate.Limiter
	log        *logger.LogInfo

	ctx    context.Context
	cancel context.CancelFunc

	mu              sync.Mutex
	active          *ChatWindowController
	activeCancel    context.CancelFunc
	unsubscribeFeed func()
}

// NewSession create a session for userID, emit pushes server events to the client
func NewSession(userID string, svc Services, cfg SessionConfig, emit func(domain.WSResponse)) *Session {
	if emit == nil {
		emit = func(domain.WSResponse) {}
	}
	if cfg.SendRate <= 0 {
		cfg.SendRate = 5
	}
	if cfg.SendBurst <= 0 {
		cfg.SendBurst = 10
	}
	s := &Session{
		userID:  userID,
		svc:     svc,
		cfg:     cfg,
		store:   store.New(),
		emit:    emit,
		limiter: rate.NewLimiter(rate.Limit(cfg.SendRate), cfg.SendBurst),
		log:     logger.Log.With(zap.String("user_id", userID)),
	}
	s.reconciler = NewUnreadReconciler(svc.Unread, userID, cfg.UnreadRefreshInterval, s.applyUnread)
	return s
}

// Store session store
func (s *Session) Store() *store.Store {
	return s.store
}

// Reconciler unread reconciler of this session
func (s *Session) Reconciler() *UnreadReconciler {
	return s.reconciler
}

// Active open chat window, nil when none
func (s *Session) Active() *ChatWindowController {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Start load thread previews and attach realtime sources
func (s *Session) Start(ctx context.Context) error {
	s.ctx, s.cancel = context.WithCancel(ctx)

	// 1. 從持久層重建 store
	previews, err := s.svc.Threads.ListThreads(s.ctx, s.userID)
	if err != nil {
		s.cancel()
		return err
	}
	s.store.SetThreads(previews)

	// 2. 訂閱自己的 user topic, 斷線只記錄
	if s.svc.PubSub != nil {
		if err := s.svc.PubSub.Subscribe(s.ctx, domain.UserTopic(s.userID), s.HandleEvent); err != nil {
			s.log.Warn("user topic subscribe failed", zap.Error(err))
		}
	}

	// 3. fallback row-insert feed
	if s.svc.Feed != nil {
		unsubscribe := s.svc.Feed.Subscribe(func(n domain.InsertNotification) {
			go s.HandleInsert(n)
		})
		s.mu.Lock()
		s.unsubscribeFeed = unsubscribe
		s.mu.Unlock()
	}

	// 4. 未讀數 timer + push 共用 Reconcile
	go s.reconciler.Run(s.ctx)
	return nil
}

// Close detach every source and close the open window
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.unsubscribeFeed != nil {
		s.unsubscribeFeed()
		s.unsubscribeFeed = nil
	}
	if s.active != nil {
		s.active.Close()
		s.active = nil
	}
	if s.activeCancel != nil {
		s.activeCancel()
		s.activeCancel = nil
	}
	if s.cancel != nil {
		s.cancel()
	}
}

// HandleEvent single consumer of realtime events from every source
func (s *Session) HandleEvent(evt domain.RealtimeEvent) {
	switch evt.Type {
	case domain.EventNewMessage:
		s.handleNewMessage(evt)
	case domain.EventTyping, domain.EventTypingStop:
		if c := s.Active(); c != nil {
			c.HandleTyping(evt)
		}
	}
}

func (s *Session) handleNewMessage(evt domain.RealtimeEvent) {
	if evt.Message == nil {
		return
	}
	msg := *evt.Message
	if msg.ThreadID == "" {
		msg.ThreadID = evt.ThreadID
	}

	var changed bool
	switch {
	case s.store.HasMessages(msg.ThreadID):
		changed = s.store.AddMessage(msg.ThreadID, msg)
	case s.store.HasThread(msg.ThreadID):
		changed = s.store.UpdateThreadState(msg.ThreadID, msg.Content, msg.CreatedAt)
	default:
		// 別人新建的 thread, 重新載入列表
		changed = s.reloadThreads()
	}
	if !changed {
		return
	}

	if c := s.Active(); c != nil && c.ThreadID() == msg.ThreadID && msg.AuthorID != s.userID {
		if err := s.svc.Unread.MarkRead(s.context(), msg.ThreadID, s.userID); err != nil {
			s.log.Warn("mark read on view failed", zap.String("thread_id", msg.ThreadID), zap.Error(err))
		}
	}

	s.emit(domain.WSResponse{
		Action:  string(domain.PushNewMessage),
		Success: true,
		Payload: map[string]interface{}{
			"thread_id": msg.ThreadID,
			"message":   msg,
		},
	})
	s.reconciler.Trigger()
}

// HandleInsert fetch a row announced by the insert feed and funnel it into HandleEvent
func (s *Session) HandleInsert(n domain.InsertNotification) {
	if !s.store.HasThread(n.ThreadID) {
		return
	}
	if _, ok := s.store.Message(n.ThreadID, n.MessageID); ok {
		return
	}

	msg, err := s.svc.Threads.FetchMessage(s.context(), s.userID, n.MessageID)
	if err != nil {
		s.log.Debug("insert fetch failed", zap.String("message_id", n.MessageID), zap.Error(err))
		return
	}
	s.HandleEvent(domain.RealtimeEvent{
		Type:     domain.EventNewMessage,
		ThreadID: msg.ThreadID,
		UserID:   msg.AuthorID,
		Message:  msg,
		SentAt:   timeNow(),
	})
}

func (s *Session) reloadThreads() bool {
	previews, err := s.svc.Threads.ListThreads(s.context(), s.userID)
	if err != nil {
		s.log.Warn("reload threads failed", zap.Error(err))
		return false
	}
	s.store.SetThreads(previews)
	s.emit(domain.WSResponse{
		Action:  string(domain.PushThreads),
		Success: true,
		Payload: map[string]interface{}{"threads": previews},
	})
	return true
}

func (s *Session) applyUnread(summary domain.UnreadSummary) {
	s.store.SetUnread(summary.ByThread)
	s.emit(domain.WSResponse{
		Action:  string(domain.PushUnread),
		Success: true,
		Payload: map[string]interface{}{
			"total":     summary.Total,
			"by_thread": summary.ByThread,
		},
	})
}

// OpenThread open threadID's window, subscribe its topic, then load history.
// Messages delivered while the history loads are merged, not overwritten.
// limit <= 0 or above the configured history limit uses the configured one.
func (s *Session) OpenThread(ctx context.Context, threadID string, limit int) (*ChatWindowController, []domain.Message, error) {
	thread, err := s.svc.Threads.Authorize(ctx, s.userID, threadID)
	if err != nil {
		return nil, nil, err
	}

	// 1. 先建立空列表, 載入期間的 new_message 走 AddMessage
	created := s.store.EnsureMessages(thread.ID)

	c := NewChatWindowController(
		thread.ID, s.userID, s.store,
		s.svc.Messages, s.svc.Translate,
		s.cfg.Language, s.cfg.TypingTimeout,
		s.pushTyping(thread.ID),
	)

	threadCtx, cancel := context.WithCancel(s.context())
	s.mu.Lock()
	if s.active != nil {
		s.active.Close()
	}
	if s.activeCancel != nil {
		s.activeCancel()
	}
	s.active = c
	s.activeCancel = cancel
	s.mu.Unlock()

	// 2. 在讀歷史之前訂閱 thread topic
	if s.svc.PubSub != nil {
		if err := s.svc.PubSub.Subscribe(threadCtx, domain.ThreadTopic(thread.ID), s.HandleEvent); err != nil {
			s.log.Warn("thread topic subscribe failed", zap.String("thread_id", thread.ID), zap.Error(err))
		}
	}

	// 3. 歷史合併進 store
	msgs, err := s.svc.Threads.History(ctx, thread.ID, s.historyLimit(limit))
	if err != nil {
		s.closeWindow(c)
		if created {
			s.store.DropMessages(thread.ID)
		}
		return nil, nil, err
	}
	s.store.MergeMessages(thread.ID, msgs)

	if err := s.svc.Unread.MarkThreadRead(ctx, thread, s.userID); err != nil {
		s.log.Warn("mark read on open failed", zap.String("thread_id", thread.ID), zap.Error(err))
	}

	s.reconciler.Trigger()
	return c, s.store.Messages(thread.ID), nil
}

func (s *Session) historyLimit(requested int) int {
	if requested <= 0 || (s.cfg.HistoryLimit > 0 && requested > s.cfg.HistoryLimit) {
		return s.cfg.HistoryLimit
	}
	return requested
}

// closeWindow close c if it is still the open window
func (s *Session) closeWindow(c *ChatWindowController) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active != c {
		return
	}
	s.active.Close()
	s.active = nil
	if s.activeCancel != nil {
		s.activeCancel()
		s.activeCancel = nil
	}
}

// CloseThread close the open window
func (s *Session) CloseThread() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active != nil {
		s.active.Close()
		s.active = nil
	}
	if s.activeCancel != nil {
		s.activeCancel()
		s.activeCancel = nil
	}
}

func (s *Session) pushTyping(threadID string) func(string, bool) {
	return func(userID string, typing bool) {
		s.emit(domain.WSResponse{
			Action:  string(domain.PushTyping),
			Success: true,
			Payload: map[string]interface{}{
				"thread_id": threadID,
				"user_id":   userID,
				"typing":    typing,
			},
		})
	}
}

// window return the open controller for threadID, empty threadID means the open one
func (s *Session) window(threadID string) (*ChatWindowController, error) {
	c := s.Active()
	if c == nil || (threadID != "" && c.ThreadID() != threadID) {
		return nil, errprocess.New(errprocess.ErrInvalidInput, "session.window", "thread is not open")
	}
	return c, nil
}

// Send send text in the open thread
func (s *Session) Send(ctx context.Context, threadID, text string) (*domain.Message, error) {
	c, err := s.window(threadID)
	if err != nil {
		return nil, err
	}
	// 空白訊息不消耗 token
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	if !s.limiter.Allow() {
		return nil, errprocess.Wrap(errprocess.ErrRateLimited, "session.send", nil)
	}
	return c.Send(ctx, text)
}

// Typing update the composer of the open thread
func (s *Session) Typing(ctx context.Context, threadID, text string) error {
	c, err := s.window(threadID)
	if err != nil {
		return err
	}
	c.UpdateComposer(ctx, text)
	return nil
}

// Translate translate a message of the open thread, lang overrides the window language
func (s *Session) Translate(ctx context.Context, threadID, messageID, lang string) (*domain.Translation, error) {
	c, err := s.window(threadID)
	if err != nil {
		return nil, err
	}
	if lang != "" {
		c.SetLanguage(lang)
	}
	return c.Translate(ctx, messageID)
}

// MarkRead mark threadID read and reconcile
func (s *Session) MarkRead(ctx context.Context, threadID string) error {
	if err := s.svc.Unread.MarkRead(ctx, threadID, s.userID); err != nil {
		return err
	}
	s.reconciler.Trigger()
	return nil
}

// Unread reconcile now and return the summary
func (s *Session) Unread(ctx context.Context) (domain.UnreadSummary, error) {
	return s.reconciler.Reconcile(ctx)
}

// CreateDirect open or create the direct thread with otherID
func (s *Session) CreateDirect(ctx context.Context, otherID string) (domain.ThreadPreview, error) {
	thread, err := s.svc.Threads.CreateDirect(ctx, s.userID, otherID)
	if err != nil {
		return domain.ThreadPreview{}, err
	}
	p := s.svc.Threads.Preview(ctx, s.userID, thread)
	s.store.UpsertThread(p)
	return p, nil
}

// CreateGroup create a group thread owned by the session user
func (s *Session) CreateGroup(ctx context.Context, name string, members []string) (domain.ThreadPreview, error) {
	thread, err := s.svc.Threads.CreateGroup(ctx, s.userID, name, members)
	if err != nil {
		return domain.ThreadPreview{}, err
	}
	p := s.svc.Threads.Preview(ctx, s.userID, thread)
	s.store.UpsertThread(p)
	return p, nil
}

func (s *Session) context() context.Context {
	if s.ctx == nil {
		return context.Background()
	}
	return s.ctx
}
