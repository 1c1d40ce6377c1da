package app

import (
	"context"
	"sort"
	"strings"

	"collab_chat_service/internal/chat/domain"
	"collab_chat_service/internal/chat/repository"
	"collab_chat_service/pkg"
	errprocess "collab_chat_service/pkg/err"
	"collab_chat_service/pkg/logger"

	"go.uber.org/zap"
)

// ThreadUseCase 負責 thread 建立與讀取
type ThreadUseCase struct {
	threadRepo repository.ThreadRepository
	msgRepo    repository.MessageRepository
	userRepo   repository.UserRepository
	transRepo  repository.TranslationRepository
	unreadUC   *UnreadUseCase
}

// NewThreadUseCase init thread use case
func NewThreadUseCase(
	threadRepo repository.ThreadRepository,
	msgRepo repository.MessageRepository,
	userRepo repository.UserRepository,
	transRepo repository.TranslationRepository,
	unreadUC *UnreadUseCase,
) *ThreadUseCase {
	return &ThreadUseCase{
		threadRepo: threadRepo,
		msgRepo:    msgRepo,
		userRepo:   userRepo,
		transRepo:  transRepo,
		unreadUC:   unreadUC,
	}
}

// CreateDirect find or create the single direct thread between userID and otherID
func (uc *ThreadUseCase) CreateDirect(ctx context.Context, userID, otherID string) (*domain.Thread, error) {
	otherID = strings.TrimSpace(otherID)
	if otherID == "" || otherID == userID {
		return nil, errprocess.New(errprocess.ErrInvalidInput, "thread.create_direct", "other_user_id must be another user")
	}
	thread, _, err := uc.threadRepo.FindOrCreateDirect(ctx, userID, otherID)
	return thread, err
}

// CreateGroup create a group and its thread, owner is always a member
func (uc *ThreadUseCase) CreateGroup(ctx context.Context, ownerID, name string, memberIDs []string) (*domain.Thread, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errprocess.New(errprocess.ErrInvalidInput, "thread.create_group", "group_name required")
	}

	members := pkg.UniqueIDs(append([]string{ownerID}, memberIDs...)...)

	return uc.threadRepo.CreateGroupThread(ctx, &domain.Group{Name: name, OwnerID: ownerID}, members)
}

// ListThreads previews of userID's threads with unread counts, most recent first
func (uc *ThreadUseCase) ListThreads(ctx context.Context, userID string) ([]domain.ThreadPreview, error) {
	threads, err := uc.threadRepo.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(threads))
	for _, tc := range threads {
		ids = append(ids, tc.Thread.ID)
	}
	latest, err := uc.msgRepo.LatestByThreads(ctx, ids)
	if err != nil {
		return nil, err
	}

	previews := make([]domain.ThreadPreview, 0, len(threads))
	for _, tc := range threads {
		p := domain.ThreadPreview{
			ID:        tc.Thread.ID,
			Type:      tc.Thread.Type,
			Title:     uc.title(ctx, userID, tc),
			UpdatedAt: tc.Thread.LastActivityAt,
		}
		if m, ok := latest[tc.Thread.ID]; ok {
			p.LastMessage = m.Content
			p.UpdatedAt = m.CreatedAt
		}
		if p.Unread, err = uc.unreadUC.ThreadUnread(ctx, userID, tc); err != nil {
			return nil, err
		}
		previews = append(previews, p)
	}

	sort.SliceStable(previews, func(i, j int) bool {
		return previews[i].UpdatedAt.After(previews[j].UpdatedAt)
	})
	return previews, nil
}

// Preview build one thread preview for userID, used after create
func (uc *ThreadUseCase) Preview(ctx context.Context, userID string, thread *domain.Thread) domain.ThreadPreview {
	tc := domain.ThreadCursor{Thread: *thread}
	if thread.Type == domain.ThreadTypeGroup && thread.GroupID != nil {
		if g, err := uc.threadRepo.FindGroup(ctx, *thread.GroupID); err == nil {
			tc.Title = g.Name
		}
	}
	return domain.ThreadPreview{
		ID:        thread.ID,
		Type:      thread.Type,
		Title:     uc.title(ctx, userID, tc),
		UpdatedAt: thread.LastActivityAt,
	}
}

func (uc *ThreadUseCase) title(ctx context.Context, userID string, tc domain.ThreadCursor) string {
	if tc.Thread.Type == domain.ThreadTypeGroup {
		return tc.Title
	}
	other := tc.Thread.Counterpart(userID)
	u, err := uc.userRepo.FindByID(ctx, other)
	if err != nil || u.DisplayName == "" {
		return other
	}
	return u.DisplayName
}

// OpenThread authorize and load the latest limit messages of threadID
func (uc *ThreadUseCase) OpenThread(ctx context.Context, userID, threadID string, limit int) (*domain.Thread, []domain.Message, error) {
	thread, err := uc.Authorize(ctx, userID, threadID)
	if err != nil {
		return nil, nil, err
	}

	msgs, err := uc.History(ctx, thread.ID, limit)
	if err != nil {
		return nil, nil, err
	}
	return thread, msgs, nil
}

// Authorize load threadID, userID must participate
func (uc *ThreadUseCase) Authorize(ctx context.Context, userID, threadID string) (*domain.Thread, error) {
	return authorizeThread(ctx, uc.threadRepo, threadID, userID)
}

// History latest limit messages of threadID ascending, with cached translations
func (uc *ThreadUseCase) History(ctx context.Context, threadID string, limit int) ([]domain.Message, error) {
	msgs, err := uc.msgRepo.ListByThread(ctx, threadID, limit)
	if err != nil {
		return nil, err
	}
	uc.attachTranslations(ctx, msgs)
	return msgs, nil
}

// FetchMessage load one message with author and translations, userID must participate
func (uc *ThreadUseCase) FetchMessage(ctx context.Context, userID, messageID string) (*domain.Message, error) {
	msg, err := uc.msgRepo.FindByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if _, err := authorizeThread(ctx, uc.threadRepo, msg.ThreadID, userID); err != nil {
		return nil, err
	}

	one := []domain.Message{*msg}
	uc.attachTranslations(ctx, one)
	return &one[0], nil
}

// attachTranslations 只附上與目前內容 fingerprint 相符的快取翻譯
func (uc *ThreadUseCase) attachTranslations(ctx context.Context, msgs []domain.Message) {
	if uc.transRepo == nil || len(msgs) == 0 {
		return
	}
	ids := make([]string, 0, len(msgs))
	for _, m := range msgs {
		ids = append(ids, m.ID)
	}

	byID, err := uc.transRepo.ListByEntities(ctx, domain.EntityMessage, ids)
	if err != nil {
		logger.Log.Warn("load translations failed", zap.Error(err))
		return
	}
	for i := range msgs {
		fp := domain.Fingerprint(msgs[i].Content)
		for _, tr := range byID[msgs[i].ID] {
			if tr.Fingerprint == fp {
				msgs[i].Translations = append(msgs[i].Translations, tr)
			}
		}
	}
}
