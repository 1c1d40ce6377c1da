package app

import (
	"context"

	"collab_chat_service/internal/chat/domain"
	"collab_chat_service/internal/chat/repository"
	errprocess "collab_chat_service/pkg/err"
)

// UnreadUseCase read cursors and unread aggregation
type UnreadUseCase struct {
	threadRepo repository.ThreadRepository
	msgRepo    repository.MessageRepository
}

// NewUnreadUseCase init unread use case
func NewUnreadUseCase(threadRepo repository.ThreadRepository, msgRepo repository.MessageRepository) *UnreadUseCase {
	return &UnreadUseCase{threadRepo: threadRepo, msgRepo: msgRepo}
}

// ThreadUnread unread count of one thread for userID
func (uc *UnreadUseCase) ThreadUnread(ctx context.Context, userID string, tc domain.ThreadCursor) (int, error) {
	// 最後活動不晚於 cursor 就不必查 DB
	if !tc.Thread.LastActivityAt.After(tc.Cursor) {
		return 0, nil
	}
	return uc.msgRepo.CountUnread(ctx, tc.Thread.ID, userID, tc.Cursor)
}

// CountUnread unread totals across every thread userID participates in
func (uc *UnreadUseCase) CountUnread(ctx context.Context, userID string) (domain.UnreadSummary, error) {
	summary := domain.UnreadSummary{ByThread: map[string]int{}}

	threads, err := uc.threadRepo.ListForUser(ctx, userID)
	if err != nil {
		return summary, err
	}

	for _, tc := range threads {
		n, err := uc.ThreadUnread(ctx, userID, tc)
		if err != nil {
			return summary, err
		}
		if n > 0 {
			summary.ByThread[tc.Thread.ID] = n
		}
		summary.Total += n
	}
	return summary, nil
}

// MarkRead set userID's cursor on threadID to now
func (uc *UnreadUseCase) MarkRead(ctx context.Context, threadID, userID string) error {
	thread, err := uc.authorize(ctx, threadID, userID)
	if err != nil {
		return err
	}
	return uc.MarkThreadRead(ctx, thread, userID)
}

// MarkThreadRead MarkRead for an already authorized thread
func (uc *UnreadUseCase) MarkThreadRead(ctx context.Context, thread *domain.Thread, userID string) error {
	return uc.threadRepo.UpdateReadCursor(ctx, thread, userID, timeNow())
}

func (uc *UnreadUseCase) authorize(ctx context.Context, threadID, userID string) (*domain.Thread, error) {
	return authorizeThread(ctx, uc.threadRepo, threadID, userID)
}

// authorizeThread load thread and require userID to participate
func authorizeThread(ctx context.Context, repo repository.ThreadRepository, threadID, userID string) (*domain.Thread, error) {
	if threadID == "" {
		return nil, errprocess.New(errprocess.ErrInvalidInput, "thread.authorize", "thread_id required")
	}
	thread, err := repo.FindByID(ctx, threadID)
	if err != nil {
		return nil, err
	}
	ok, err := repo.IsParticipant(ctx, thread, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errprocess.Wrap(errprocess.ErrForbidden, "thread.authorize", nil)
	}
	return thread, nil
}
