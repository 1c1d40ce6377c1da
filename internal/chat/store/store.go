// Package store holds one session's in-memory view of threads and messages.
//
// Every realtime source funnels through AddMessage, which is idempotent on
// message id, so redundant deliveries converge on the same state.
package store

import (
	"sort"
	"sync"
	"time"

	"collab_chat_service/internal/chat/domain"
)

// Store per-session thread / message cache
type Store struct {
	mu       sync.RWMutex
	threads  []domain.ThreadPreview
	messages map[string][]domain.Message
}

// New create an empty store
func New() *Store {
	return &Store{messages: make(map[string][]domain.Message)}
}

// SetThreads replace the thread list, caller passes it already ordered
func (s *Store) SetThreads(threads []domain.ThreadPreview) {
	cp := make([]domain.ThreadPreview, len(threads))
	copy(cp, threads)

	s.mu.Lock()
	s.threads = cp
	s.mu.Unlock()
}

// SetMessages replace one thread's messages, input ascending by CreatedAt
func (s *Store) SetMessages(threadID string, msgs []domain.Message) {
	cp := make([]domain.Message, len(msgs))
	copy(cp, msgs)

	s.mu.Lock()
	s.messages[threadID] = cp
	s.mu.Unlock()
}

// EnsureMessages mark threadID's messages loaded with an empty list,
// report whether the list was created
func (s *Store) EnsureMessages(threadID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.messages[threadID]; ok {
		return false
	}
	s.messages[threadID] = []domain.Message{}
	return true
}

// MergeMessages add every msg not stored yet, messages already stored win
func (s *Store) MergeMessages(threadID string, msgs []domain.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.messages[threadID]
	seen := make(map[string]struct{}, len(list)+len(msgs))
	for _, m := range list {
		seen[m.ID] = struct{}{}
	}
	for _, m := range msgs {
		if _, ok := seen[m.ID]; ok {
			continue
		}
		seen[m.ID] = struct{}{}
		list = append(list, m)
	}
	if list == nil {
		list = []domain.Message{}
	}
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].CreatedAt.Before(list[j].CreatedAt)
	})
	s.messages[threadID] = list

	if len(list) == 0 {
		return
	}
	latest := list[len(list)-1]
	if idx := s.indexOf(threadID); idx >= 0 && latest.CreatedAt.After(s.threads[idx].UpdatedAt) {
		s.threads[idx].LastMessage = latest.Content
		s.threads[idx].UpdatedAt = latest.CreatedAt
		s.sortThreads()
	}
}

// AddMessage insert msg once, report whether the store changed
func (s *Store) AddMessage(threadID string, msg domain.Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.messages[threadID]
	for _, m := range list {
		if m.ID == msg.ID {
			return false
		}
	}

	list = append(list, msg)
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].CreatedAt.Before(list[j].CreatedAt)
	})
	s.messages[threadID] = list

	latest := list[len(list)-1]
	if idx := s.indexOf(threadID); idx >= 0 {
		s.threads[idx].LastMessage = latest.Content
		s.threads[idx].UpdatedAt = latest.CreatedAt
		s.sortThreads()
	}
	return true
}

// UpdateThreadState preview-only update for a thread whose messages are not loaded,
// older or identical updates are ignored
func (s *Store) UpdateThreadState(threadID, preview string, at time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(threadID)
	if idx < 0 || at.Before(s.threads[idx].UpdatedAt) {
		return false
	}
	if at.Equal(s.threads[idx].UpdatedAt) && preview == s.threads[idx].LastMessage {
		return false
	}
	s.threads[idx].LastMessage = preview
	s.threads[idx].UpdatedAt = at
	s.sortThreads()
	return true
}

// UpsertThread add a thread preview or refresh its title, used after create
func (s *Store) UpsertThread(p domain.ThreadPreview) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if idx := s.indexOf(p.ID); idx >= 0 {
		s.threads[idx].Title = p.Title
		return
	}
	s.threads = append(s.threads, p)
	s.sortThreads()
}

// AttachTranslation set msg's translation for tr.TargetLanguage
func (s *Store) AttachTranslation(threadID, messageID string, tr domain.Translation) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.messages[threadID]
	for i := range list {
		if list[i].ID != messageID {
			continue
		}
		trs := make([]domain.Translation, 0, len(list[i].Translations)+1)
		for _, existing := range list[i].Translations {
			if existing.TargetLanguage != tr.TargetLanguage {
				trs = append(trs, existing)
			}
		}
		list[i].Translations = append(trs, tr)
		if list[i].SourceLanguage == "" {
			list[i].SourceLanguage = tr.SourceLanguage
		}
		return true
	}
	return false
}

// SetUnread write per-thread unread counts, threads missing from counts become 0
func (s *Store) SetUnread(counts map[string]int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.threads {
		s.threads[i].Unread = counts[s.threads[i].ID]
	}
}

// Threads copy of the thread list, most recent first
func (s *Store) Threads() []domain.ThreadPreview {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cp := make([]domain.ThreadPreview, len(s.threads))
	copy(cp, s.threads)
	return cp
}

// Messages copy of a thread's messages, oldest first
func (s *Store) Messages(threadID string) []domain.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := s.messages[threadID]
	cp := make([]domain.Message, len(list))
	copy(cp, list)
	return cp
}

// Message find one stored message
func (s *Store) Message(threadID, messageID string) (domain.Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, m := range s.messages[threadID] {
		if m.ID == messageID {
			return m, true
		}
	}
	return domain.Message{}, false
}

// HasThread whether threadID is in the thread list
func (s *Store) HasThread(threadID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.indexOf(threadID) >= 0
}

// HasMessages whether threadID's messages were loaded
func (s *Store) HasMessages(threadID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.messages[threadID]
	return ok
}

// DropMessages forget a thread's loaded messages
func (s *Store) DropMessages(threadID string) {
	s.mu.Lock()
	delete(s.messages, threadID)
	s.mu.Unlock()
}

// caller holds mu
func (s *Store) indexOf(threadID string) int {
	for i := range s.threads {
		if s.threads[i].ID == threadID {
			return i
		}
	}
	return -1
}

// caller holds mu
func (s *Store) sortThreads() {
	sort.SliceStable(s.threads, func(i, j int) bool {
		return s.threads[i].UpdatedAt.After(s.threads[j].UpdatedAt)
	})
}
