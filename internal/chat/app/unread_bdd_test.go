package app

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"collab_chat_service/internal/chat/domain"

	"github.com/cucumber/godog"
)

type unreadFeature struct {
	t            *testing.T
	clock        *testClock
	env          *testEnv
	thread       *domain.Thread
	last         *domain.Message
	translations []string
}

func TestUnreadFeatures(t *testing.T) {
	f := &unreadFeature{t: t, clock: useClock(t)}

	suite := godog.TestSuite{
		ScenarioInitializer: f.InitializeScenario,
		Options: &godog.Options{
			Paths:    []string{"./features"},
			Format:   "pretty",
			Output:   os.Stdout,
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fail()
	}
}

// 這個函式用來註冊 Gherkin 與 Step Definition 的對應
func (f *unreadFeature) InitializeScenario(s *godog.ScenarioContext) {
	s.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		f.env, f.thread, f.last, f.translations = nil, nil, nil, nil
		return ctx, nil
	})

	s.Step(`^a direct thread between "([^"]*)" and "([^"]*)"$`, f.aDirectThreadBetween)
	s.Step(`^"([^"]*)" sends "([^"]*)"$`, f.userSends)
	s.Step(`^"([^"]*)" opens the thread$`, f.userOpensTheThread)
	s.Step(`^"([^"]*)" should have (\d+) unread$`, f.userShouldHaveUnread)
	s.Step(`^"([^"]*)" translates the last message to "([^"]*)" twice$`, f.userTranslatesTwice)
	s.Step(`^the translator should be called (\d+) times?$`, f.translatorCalled)
	s.Step(`^both translations should read "([^"]*)"$`, f.bothTranslationsRead)
}

func (f *unreadFeature) aDirectThreadBetween(a, b string) error {
	f.env = newTestEnv(f.t, a, b)
	thread, err := f.env.svc.Threads.CreateDirect(context.Background(), a, b)
	if err != nil {
		return err
	}
	f.thread = thread
	return nil
}

func (f *unreadFeature) userSends(userID, content string) error {
	f.clock.Advance(time.Second)
	msg, err := f.env.svc.Messages.Execute(context.Background(), f.thread.ID, userID, content)
	if err != nil {
		return err
	}
	f.last = msg
	return nil
}

func (f *unreadFeature) userOpensTheThread(userID string) error {
	f.clock.Advance(time.Second)
	_, _, err := f.env.svc.Threads.OpenThread(context.Background(), userID, f.thread.ID, 50)
	if err != nil {
		return err
	}
	return f.env.svc.Unread.MarkRead(context.Background(), f.thread.ID, userID)
}

func (f *unreadFeature) userShouldHaveUnread(userID string, want int) error {
	summary, err := f.env.svc.Unread.CountUnread(context.Background(), userID)
	if err != nil {
		return err
	}
	if summary.Total != want {
		return fmt.Errorf("expected %s to have %d unread, but got %d", userID, want, summary.Total)
	}
	return nil
}

func (f *unreadFeature) userTranslatesTwice(userID, lang string) error {
	for i := 0; i < 2; i++ {
		tr, err := f.env.svc.Translate.Translate(context.Background(), userID, f.last.ID, lang)
		if err != nil {
			return err
		}
		f.translations = append(f.translations, tr.Text)
	}
	return nil
}

func (f *unreadFeature) translatorCalled(want int) error {
	if got := int(f.env.translator.calls.Load()); got != want {
		return fmt.Errorf("expected %d translator calls, but got %d", want, got)
	}
	return nil
}

func (f *unreadFeature) bothTranslationsRead(want string) error {
	if len(f.translations) != 2 {
		return fmt.Errorf("expected 2 translations, got %d", len(f.translations))
	}
	for _, text := range f.translations {
		if text != want {
			return fmt.Errorf("expected %q, but got %q", want, text)
		}
	}
	return nil
}
