package repository

import (
	"context"
	"sync"

	"collab_chat_service/internal/chat/domain"
)

// memoryTranslationRepository process-local translation cache, used when mongo is not configured
type memoryTranslationRepository struct {
	mu      sync.RWMutex
	entries map[domain.TranslationKey]domain.Translation
}

// NewMemoryTranslationRepository create an in-memory TranslationRepository
func NewMemoryTranslationRepository() TranslationRepository {
	return &memoryTranslationRepository{entries: make(map[domain.TranslationKey]domain.Translation)}
}

func (r *memoryTranslationRepository) Find(_ context.Context, key domain.TranslationKey) (*domain.Translation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tr, ok := r.entries[key]
	if !ok {
		return nil, nil
	}
	return &tr, nil
}

func (r *memoryTranslationRepository) Save(_ context.Context, tr *domain.Translation) error {
	key := domain.TranslationKey{
		EntityType:     tr.EntityType,
		EntityID:       tr.EntityID,
		TargetLanguage: tr.TargetLanguage,
		Fingerprint:    tr.Fingerprint,
	}
	r.mu.Lock()
	r.entries[key] = *tr
	r.mu.Unlock()
	return nil
}

func (r *memoryTranslationRepository) ListByEntities(_ context.Context, entityType string, entityIDs []string) (map[string][]domain.Translation, error) {
	want := make(map[string]bool, len(entityIDs))
	for _, id := range entityIDs {
		want[id] = true
	}

	out := make(map[string][]domain.Translation)
	r.mu.RLock()
	defer r.mu.RUnlock()
	for key, tr := range r.entries {
		if key.EntityType == entityType && want[key.EntityID] {
			out[key.EntityID] = append(out[key.EntityID], tr)
		}
	}
	return out, nil
}
