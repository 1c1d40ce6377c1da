package repository

import (
	"context"
	"errors"
	"time"

	"collab_chat_service/internal/chat/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ThreadRepository definition chat threads and read cursors
type ThreadRepository interface {
	// FindOrCreateDirect 依 canonical pair 找或建 1對1 thread, created 表示新建
	FindOrCreateDirect(ctx context.Context, userX, userY string) (thread *domain.Thread, created bool, err error)
	CreateGroupThread(ctx context.Context, group *domain.Group, memberIDs []string) (*domain.Thread, error)
	FindByID(ctx context.Context, threadID string) (*domain.Thread, error)
	FindGroup(ctx context.Context, groupID string) (*domain.Group, error)
	// ListForUser 使用者參與的所有 thread 及其 read cursor
	ListForUser(ctx context.Context, userID string) ([]domain.ThreadCursor, error)
	IsParticipant(ctx context.Context, thread *domain.Thread, userID string) (bool, error)
	ParticipantIDs(ctx context.Context, thread *domain.Thread) ([]string, error)
	// UpdateReadCursor set userID's cursor on thread to at
	UpdateReadCursor(ctx context.Context, thread *domain.Thread, userID string, at time.Time) error
}

type threadRepository struct {
	db *gorm.DB
}

// NewThreadRepository create a gorm ThreadRepository
func NewThreadRepository(db *gorm.DB) ThreadRepository {
	return &threadRepository{db: db}
}

func (r *threadRepository) FindOrCreateDirect(ctx context.Context, userX, userY string) (*domain.Thread, bool, error) {
	a, b := domain.CanonicalPair(userX, userY)

	var existing domain.Thread
	err := r.db.WithContext(ctx).
		Where("type = ? AND participant_a = ? AND participant_b = ?", domain.ThreadTypeDirect, a, b).
		First(&existing).Error
	if err == nil {
		return &existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, wrapDBErr("thread.find_direct", err)
	}

	now := time.Now().UTC()
	t := domain.Thread{
		ID:             uuid.NewString(),
		Type:           domain.ThreadTypeDirect,
		ParticipantA:   &a,
		ParticipantB:   &b,
		LastActivityAt: now,
		CreatedAt:      now,
	}
	// 併發建立時 unique pair 擋下第二筆, 再讀一次
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&t)
	if res.Error != nil {
		return nil, false, wrapDBErr("thread.create_direct", res.Error)
	}
	if res.RowsAffected == 1 {
		return &t, true, nil
	}

	err = r.db.WithContext(ctx).
		Where("type = ? AND participant_a = ? AND participant_b = ?", domain.ThreadTypeDirect, a, b).
		First(&existing).Error
	if err != nil {
		return nil, false, wrapDBErr("thread.find_direct", err)
	}
	return &existing, false, nil
}

func (r *threadRepository) CreateGroupThread(ctx context.Context, group *domain.Group, memberIDs []string) (*domain.Thread, error) {
	now := time.Now().UTC()
	if group.ID == "" {
		group.ID = uuid.NewString()
	}
	group.CreatedAt = now

	t := &domain.Thread{
		ID:             uuid.NewString(),
		Type:           domain.ThreadTypeGroup,
		GroupID:        &group.ID,
		LastActivityAt: now,
		CreatedAt:      now,
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(group).Error; err != nil {
			return err
		}
		members := make([]domain.GroupMember, 0, len(memberIDs))
		for _, id := range memberIDs {
			members = append(members, domain.GroupMember{GroupID: group.ID, UserID: id, JoinedAt: now})
		}
		if len(members) > 0 {
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&members).Error; err != nil {
				return err
			}
		}
		return tx.Create(t).Error
	})
	if err != nil {
		return nil, wrapDBErr("thread.create_group", err)
	}
	return t, nil
}

func (r *threadRepository) FindByID(ctx context.Context, threadID string) (*domain.Thread, error) {
	var t domain.Thread
	if err := r.db.WithContext(ctx).First(&t, "id = ?", threadID).Error; err != nil {
		return nil, wrapDBErr("thread.find", err)
	}
	return &t, nil
}

func (r *threadRepository) FindGroup(ctx context.Context, groupID string) (*domain.Group, error) {
	var g domain.Group
	if err := r.db.WithContext(ctx).First(&g, "id = ?", groupID).Error; err != nil {
		return nil, wrapDBErr("group.find", err)
	}
	return &g, nil
}

func (r *threadRepository) ListForUser(ctx context.Context, userID string) ([]domain.ThreadCursor, error) {
	db := r.db.WithContext(ctx)

	var direct []domain.Thread
	if err := db.
		Where("type = ? AND (participant_a = ? OR participant_b = ?)", domain.ThreadTypeDirect, userID, userID).
		Find(&direct).Error; err != nil {
		return nil, wrapDBErr("thread.list_direct", err)
	}

	out := make([]domain.ThreadCursor, 0, len(direct))
	for _, t := range direct {
		out = append(out, domain.ThreadCursor{Thread: t, Cursor: t.DirectCursor(userID)})
	}

	var memberships []domain.GroupMember
	if err := db.Where("user_id = ?", userID).Find(&memberships).Error; err != nil {
		return nil, wrapDBErr("group_member.list", err)
	}
	if len(memberships) == 0 {
		return out, nil
	}

	groupIDs := make([]string, 0, len(memberships))
	cursors := make(map[string]time.Time, len(memberships))
	for _, m := range memberships {
		groupIDs = append(groupIDs, m.GroupID)
		cursors[m.GroupID] = m.Cursor()
	}

	var groups []domain.Group
	if err := db.Where("id IN ?", groupIDs).Find(&groups).Error; err != nil {
		return nil, wrapDBErr("group.list", err)
	}
	names := make(map[string]string, len(groups))
	for _, g := range groups {
		names[g.ID] = g.Name
	}

	var grouped []domain.Thread
	if err := db.Where("type = ? AND group_id IN ?", domain.ThreadTypeGroup, groupIDs).Find(&grouped).Error; err != nil {
		return nil, wrapDBErr("thread.list_group", err)
	}
	for _, t := range grouped {
		gid := *t.GroupID
		out = append(out, domain.ThreadCursor{Thread: t, Cursor: cursors[gid], Title: names[gid]})
	}
	return out, nil
}

func (r *threadRepository) IsParticipant(ctx context.Context, thread *domain.Thread, userID string) (bool, error) {
	switch thread.Type {
	case domain.ThreadTypeDirect:
		return thread.SlotOf(userID) != domain.SlotNone, nil
	case domain.ThreadTypeGroup:
		if thread.GroupID == nil {
			return false, nil
		}
		var n int64
		err := r.db.WithContext(ctx).Model(&domain.GroupMember{}).
			Where("group_id = ? AND user_id = ?", *thread.GroupID, userID).
			Count(&n).Error
		if err != nil {
			return false, wrapDBErr("group_member.count", err)
		}
		return n > 0, nil
	}
	return false, nil
}

func (r *threadRepository) ParticipantIDs(ctx context.Context, thread *domain.Thread) ([]string, error) {
	if thread.Type == domain.ThreadTypeDirect {
		ids := make([]string, 0, 2)
		for _, p := range []*string{thread.ParticipantA, thread.ParticipantB} {
			if p != nil {
				ids = append(ids, *p)
			}
		}
		return ids, nil
	}
	if thread.GroupID == nil {
		return nil, nil
	}
	var ids []string
	err := r.db.WithContext(ctx).Model(&domain.GroupMember{}).
		Where("group_id = ?", *thread.GroupID).
		Pluck("user_id", &ids).Error
	if err != nil {
		return nil, wrapDBErr("group_member.pluck", err)
	}
	return ids, nil
}

func (r *threadRepository) UpdateReadCursor(ctx context.Context, thread *domain.Thread, userID string, at time.Time) error {
	db := r.db.WithContext(ctx)
	var res *gorm.DB

	switch thread.SlotOf(userID) {
	case domain.SlotA:
		res = db.Model(&domain.Thread{}).Where("id = ?", thread.ID).Update("participant_a_last_read", at)
	case domain.SlotB:
		res = db.Model(&domain.Thread{}).Where("id = ?", thread.ID).Update("participant_b_last_read", at)
	default:
		if thread.GroupID == nil {
			return wrapDBErr("thread.update_cursor", gorm.ErrRecordNotFound)
		}
		res = db.Model(&domain.GroupMember{}).
			Where("group_id = ? AND user_id = ?", *thread.GroupID, userID).
			Update("last_read_at", at)
	}
	if res.Error != nil {
		return wrapDBErr("thread.update_cursor", res.Error)
	}
	if res.RowsAffected == 0 {
		return wrapDBErr("thread.update_cursor", gorm.ErrRecordNotFound)
	}
	return nil
}
