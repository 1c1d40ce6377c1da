package store

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"collab_chat_service/internal/chat/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func msg(id string, offset time.Duration, content string) domain.Message {
	return domain.Message{ID: id, ThreadID: "t1", AuthorID: "u1", Content: content, CreatedAt: t0.Add(offset)}
}

func newSeeded() *Store {
	s := New()
	// 呼叫端依 UpdatedAt 由新到舊傳入
	s.SetThreads([]domain.ThreadPreview{
		{ID: "t2", Type: domain.ThreadTypeGroup, UpdatedAt: t0.Add(time.Minute)},
		{ID: "t1", Type: domain.ThreadTypeDirect, UpdatedAt: t0},
	})
	return s
}

func TestAddMessageIsIdempotent(t *testing.T) {
	s := newSeeded()
	s.SetMessages("t1", nil)

	m := msg("m1", 5*time.Minute, "hello")
	assert.True(t, s.AddMessage("t1", m))
	assert.False(t, s.AddMessage("t1", m))

	assert.Len(t, s.Messages("t1"), 1)
}

// broadcast and row feed deliver the same message in either order
func TestAddMessageDuplicateDeliveryConverges(t *testing.T) {
	first := newSeeded()
	second := newSeeded()
	m := msg("m1", 5*time.Minute, "hello")

	first.AddMessage("t1", m)
	first.AddMessage("t1", m)
	second.AddMessage("t1", m)

	assert.Equal(t, second.Messages("t1"), first.Messages("t1"))
	assert.Equal(t, second.Threads(), first.Threads())
}

func TestAddMessageKeepsAscendingOrder(t *testing.T) {
	s := newSeeded()
	s.SetMessages("t1", []domain.Message{msg("m1", time.Second, "one"), msg("m3", 3*time.Second, "three")})

	s.AddMessage("t1", msg("m2", 2*time.Second, "two"))

	got := s.Messages("t1")
	require.Len(t, got, 3)
	assert.Equal(t, []string{"m1", "m2", "m3"}, []string{got[0].ID, got[1].ID, got[2].ID})
	for i := 1; i < len(got); i++ {
		assert.False(t, got[i].CreatedAt.Before(got[i-1].CreatedAt))
	}
}

func TestAddMessageUpdatesPreviewAndReordersThreads(t *testing.T) {
	s := newSeeded()
	assert.Equal(t, "t2", s.Threads()[0].ID)

	s.AddMessage("t1", msg("m1", 10*time.Minute, "latest"))

	threads := s.Threads()
	assert.Equal(t, "t1", threads[0].ID)
	assert.Equal(t, "latest", threads[0].LastMessage)
	assert.Equal(t, t0.Add(10*time.Minute), threads[0].UpdatedAt)
}

func TestAddMessageLateArrivalKeepsLatestPreview(t *testing.T) {
	s := newSeeded()
	s.AddMessage("t1", msg("m2", 10*time.Minute, "newer"))
	s.AddMessage("t1", msg("m1", 9*time.Minute, "older"))

	assert.Equal(t, "newer", s.Threads()[0].LastMessage)
	assert.Equal(t, "m1", s.Messages("t1")[0].ID)
}

func TestUpdateThreadState(t *testing.T) {
	s := newSeeded()

	assert.True(t, s.UpdateThreadState("t1", "ping", t0.Add(time.Hour)))
	threads := s.Threads()
	assert.Equal(t, "t1", threads[0].ID)
	assert.Equal(t, "ping", threads[0].LastMessage)

	assert.False(t, s.UpdateThreadState("t1", "ping", t0.Add(time.Hour)))
	assert.False(t, s.UpdateThreadState("t1", "stale", t0))
	assert.Equal(t, "ping", s.Threads()[0].LastMessage)

	assert.False(t, s.UpdateThreadState("missing", "x", t0))
}

func TestAttachTranslationReplacesSameLanguage(t *testing.T) {
	s := newSeeded()
	s.SetMessages("t1", []domain.Message{msg("m1", 0, "hola")})

	ok := s.AttachTranslation("t1", "m1", domain.Translation{TargetLanguage: "EN", Text: "hi", SourceLanguage: "ES"})
	require.True(t, ok)
	s.AttachTranslation("t1", "m1", domain.Translation{TargetLanguage: "EN", Text: "hello"})
	s.AttachTranslation("t1", "m1", domain.Translation{TargetLanguage: "DE", Text: "hallo"})

	m, found := s.Message("t1", "m1")
	require.True(t, found)
	assert.Len(t, m.Translations, 2)
	tr, _ := m.TranslationFor("EN")
	assert.Equal(t, "hello", tr.Text)
	assert.Equal(t, "ES", m.SourceLanguage)

	assert.False(t, s.AttachTranslation("t1", "missing", domain.Translation{}))
}

func TestSetUnread(t *testing.T) {
	s := newSeeded()
	s.SetUnread(map[string]int{"t1": 3})

	for _, th := range s.Threads() {
		if th.ID == "t1" {
			assert.Equal(t, 3, th.Unread)
		} else {
			assert.Equal(t, 0, th.Unread)
		}
	}
}

func TestConcurrentAddMessageLosesNothing(t *testing.T) {
	s := newSeeded()
	s.SetMessages("t1", nil)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		m := msg(fmt.Sprintf("m%02d", i), time.Duration(i)*time.Second, "x")
		go func() { defer wg.Done(); s.AddMessage("t1", m) }()
		go func() { defer wg.Done(); s.AddMessage("t1", m) }()
	}
	wg.Wait()

	assert.Len(t, s.Messages("t1"), 50)
}

func TestHasMessagesAndDrop(t *testing.T) {
	s := newSeeded()
	assert.False(t, s.HasMessages("t1"))
	s.SetMessages("t1", nil)
	assert.True(t, s.HasMessages("t1"))
	s.DropMessages("t1")
	assert.False(t, s.HasMessages("t1"))
	assert.True(t, s.HasThread("t2"))
}

// 歷史載入期間先到的訊息不會被覆蓋
func TestMergeMessagesKeepsLiveDeliveries(t *testing.T) {
	s := newSeeded()
	require.True(t, s.EnsureMessages("t1"))
	require.False(t, s.EnsureMessages("t1"))
	assert.True(t, s.HasMessages("t1"))

	live := msg("m3", 10*time.Minute, "live")
	require.True(t, s.AddMessage("t1", live))

	history := []domain.Message{msg("m1", time.Minute, "one"), msg("m2", 2*time.Minute, "two"), msg("m3", 10*time.Minute, "stale copy")}
	s.MergeMessages("t1", history)

	got := s.Messages("t1")
	require.Len(t, got, 3)
	assert.Equal(t, []string{"m1", "m2", "m3"}, []string{got[0].ID, got[1].ID, got[2].ID})
	assert.Equal(t, "live", got[2].Content)
	assert.Equal(t, "t1", s.Threads()[0].ID)
	assert.Equal(t, "live", s.Threads()[0].LastMessage)
}

func TestMergeMessagesOlderHistoryKeepsPreview(t *testing.T) {
	s := newSeeded()
	s.SetThreads([]domain.ThreadPreview{{ID: "t1", LastMessage: "newest", UpdatedAt: t0.Add(time.Hour)}})

	s.MergeMessages("t1", []domain.Message{msg("m1", time.Minute, "old")})

	assert.Len(t, s.Messages("t1"), 1)
	assert.Equal(t, "newest", s.Threads()[0].LastMessage)
}
