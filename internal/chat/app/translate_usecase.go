package app

import (
	"context"
	"strings"

	"collab_chat_service/internal/chat/domain"
	"collab_chat_service/internal/chat/repository"
	errprocess "collab_chat_service/pkg/err"
	"collab_chat_service/pkg/logger"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// TranslateUseCase cache-first message translation
type TranslateUseCase struct {
	threadRepo repository.ThreadRepository
	msgRepo    repository.MessageRepository
	transRepo  repository.TranslationRepository
	translator Translator
	inflight   singleflight.Group
}

// NewTranslateUseCase init translate use case
func NewTranslateUseCase(
	threadRepo repository.ThreadRepository,
	msgRepo repository.MessageRepository,
	transRepo repository.TranslationRepository,
	translator Translator,
) *TranslateUseCase {
	return &TranslateUseCase{
		threadRepo: threadRepo,
		msgRepo:    msgRepo,
		transRepo:  transRepo,
		translator: translator,
	}
}

// NormalizeLanguage upper-case trimmed language code
func NormalizeLanguage(lang string) string {
	return strings.ToUpper(strings.TrimSpace(lang))
}

// Translate load messageID for userID then TranslateMessage
func (uc *TranslateUseCase) Translate(ctx context.Context, userID, messageID, lang string) (*domain.Translation, error) {
	msg, err := uc.msgRepo.FindByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if _, err := authorizeThread(ctx, uc.threadRepo, msg.ThreadID, userID); err != nil {
		return nil, err
	}
	return uc.TranslateMessage(ctx, msg, lang)
}

// TranslateMessage return the cached translation of msg or ask the translator once
func (uc *TranslateUseCase) TranslateMessage(ctx context.Context, msg *domain.Message, lang string) (*domain.Translation, error) {
	lang = NormalizeLanguage(lang)
	if lang == "" {
		return nil, errprocess.New(errprocess.ErrInvalidInput, "translate", "language required")
	}
	key := domain.KeyFor(msg, lang)

	// 1. 查快取
	cached, err := uc.transRepo.Find(ctx, key)
	if err != nil {
		logger.Log.Warn("translation cache read failed", zap.String("message_id", msg.ID), zap.Error(err))
	}
	if cached != nil {
		return cached, nil
	}

	// 2. 同 key 併發只打一次翻譯
	v, err, _ := uc.inflight.Do(key.EntityID+"|"+key.TargetLanguage+"|"+key.Fingerprint, func() (interface{}, error) {
		res, err := uc.translator.Translate(ctx, msg.Content, lang)
		if err != nil {
			return nil, errprocess.Wrap(errprocess.ErrExternal, "translate", err)
		}

		tr := &domain.Translation{
			EntityType:     key.EntityType,
			EntityID:       key.EntityID,
			TargetLanguage: key.TargetLanguage,
			Fingerprint:    key.Fingerprint,
			SourceLanguage: res.SourceLanguage,
			Text:           res.Text,
			CreatedAt:      timeNow(),
		}
		// 3. 寫入快取, 失敗仍回傳翻譯
		if err := uc.transRepo.Save(ctx, tr); err != nil {
			logger.Log.Warn("translation cache write failed", zap.String("message_id", msg.ID), zap.Error(err))
		}
		return tr, nil
	})
	if err != nil {
		return nil, err
	}
	tr := *v.(*domain.Translation)
	return &tr, nil
}
