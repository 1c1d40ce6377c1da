package app

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"collab_chat_service/internal/chat/domain"
	"collab_chat_service/internal/chat/repository"
	"collab_chat_service/internal/chat/repository/testutil"
	"collab_chat_service/pkg/logger"

	"gorm.io/gorm"
)

func TestMain(m *testing.M) {
	logger.SetNewNop()
	os.Exit(m.Run())
}

// testClock 可控制的 timeNow
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}

// useClock 將 timeNow 換成 testClock, 起點在 thread 建立時間之後
func useClock(t *testing.T) *testClock {
	t.Helper()
	c := &testClock{now: time.Now().UTC().Truncate(time.Second).Add(time.Hour)}
	old := timeNow
	timeNow = c.Now
	t.Cleanup(func() { timeNow = old })
	return c
}

// fakeTranslator 計數的假翻譯服務
type fakeTranslator struct {
	calls atomic.Int32
	delay time.Duration
	err   error
}

func (f *fakeTranslator) Translate(ctx context.Context, text, targetLang string) (TranslationResult, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.err != nil {
		return TranslationResult{}, f.err
	}
	return TranslationResult{Text: "[" + targetLang + "] " + text, SourceLanguage: "EN"}, nil
}

// testEnv sqlite + local pubsub + memory translation cache 組成的完整服務
type testEnv struct {
	db         *gorm.DB
	threadRepo repository.ThreadRepository
	msgRepo    repository.MessageRepository
	userRepo   repository.UserRepository
	transRepo  repository.TranslationRepository
	pubsub     *repository.LocalPubSub
	translator *fakeTranslator
	svc        Services
}

func newTestEnv(t *testing.T, users ...string) *testEnv {
	t.Helper()

	db := testutil.NewDB(t)
	testutil.SeedUsers(t, db, users...)

	env := &testEnv{
		db:         db,
		threadRepo: repository.NewThreadRepository(db),
		msgRepo:    repository.NewMessageRepository(db),
		userRepo:   repository.NewUserRepository(db),
		transRepo:  repository.NewMemoryTranslationRepository(),
		pubsub:     repository.NewLocalPubSub(),
		translator: &fakeTranslator{},
	}

	unreadUC := NewUnreadUseCase(env.threadRepo, env.msgRepo)
	env.svc = Services{
		Threads:   NewThreadUseCase(env.threadRepo, env.msgRepo, env.userRepo, env.transRepo, unreadUC),
		Messages:  NewSendMessageUseCase(env.threadRepo, env.msgRepo, env.userRepo, unreadUC, env.pubsub),
		Unread:    unreadUC,
		Translate: NewTranslateUseCase(env.threadRepo, env.msgRepo, env.transRepo, env.translator),
		Profiles:  env.userRepo,
		PubSub:    env.pubsub,
	}
	return env
}

func (e *testEnv) direct(t *testing.T, x, y string) *domain.Thread {
	t.Helper()
	thread, err := e.svc.Threads.CreateDirect(context.Background(), x, y)
	if err != nil {
		t.Fatalf("create direct: %v", err)
	}
	return thread
}

func (e *testEnv) unread(t *testing.T, userID string) domain.UnreadSummary {
	t.Helper()
	summary, err := e.svc.Unread.CountUnread(context.Background(), userID)
	if err != nil {
		t.Fatalf("count unread: %v", err)
	}
	return summary
}

// recorder 收集 session 推送的事件
type recorder struct {
	mu     sync.Mutex
	events []domain.WSResponse
}

func (r *recorder) emit(resp domain.WSResponse) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, resp)
}

func (r *recorder) count(action domain.Action) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Action == string(action) {
			n++
		}
	}
	return n
}

func (r *recorder) last(action domain.Action) (domain.WSResponse, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i].Action == string(action) {
			return r.events[i], true
		}
	}
	return domain.WSResponse{}, false
}
