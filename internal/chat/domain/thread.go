package domain

import "time"

// ThreadType definition chat thread type
type ThreadType string

const (
	//ThreadTypeDirect 1對1, exactly two participants
	ThreadTypeDirect ThreadType = "DIRECT"
	//ThreadTypeGroup 群組, participants come from group membership
	ThreadTypeGroup ThreadType = "GROUP"
)

// EpochZero default read cursor for a user who never opened a thread
var EpochZero = time.Unix(0, 0).UTC()

// Thread definition chat thread
//
// DIRECT: ParticipantA < ParticipantB, (a, b) unique.
// GROUP: GroupID set, cursor lives on GroupMember.
type Thread struct {
	ID                   string     `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Type                 ThreadType `gorm:"type:varchar(10);not null;index" json:"type"`
	ParticipantA         *string    `gorm:"column:participant_a;type:varchar(64);uniqueIndex:ux_threads_direct_pair,priority:1" json:"participant_a,omitempty"`
	ParticipantB         *string    `gorm:"column:participant_b;type:varchar(64);uniqueIndex:ux_threads_direct_pair,priority:2;index" json:"participant_b,omitempty"`
	ParticipantALastRead *time.Time `gorm:"column:participant_a_last_read" json:"-"`
	ParticipantBLastRead *time.Time `gorm:"column:participant_b_last_read" json:"-"`
	GroupID              *string    `gorm:"type:varchar(36);index" json:"group_id,omitempty"`
	LastActivityAt       time.Time  `gorm:"not null;index" json:"last_activity_at"`
	CreatedAt            time.Time  `gorm:"not null" json:"created_at"`
}

// CanonicalPair order two user ids so (a, b) and (b, a) map to one thread
func CanonicalPair(x, y string) (string, string) {
	if y < x {
		return y, x
	}
	return x, y
}

// Slot direct thread slot a user occupies
type Slot int

const (
	// SlotNone user is not a direct participant
	SlotNone Slot = iota
	// SlotA participant_a
	SlotA
	// SlotB participant_b
	SlotB
)

// SlotOf return which canonical slot userID occupies
func (t *Thread) SlotOf(userID string) Slot {
	if t.Type != ThreadTypeDirect {
		return SlotNone
	}
	if t.ParticipantA != nil && *t.ParticipantA == userID {
		return SlotA
	}
	if t.ParticipantB != nil && *t.ParticipantB == userID {
		return SlotB
	}
	return SlotNone
}

// Counterpart the other user of a direct thread
func (t *Thread) Counterpart(userID string) string {
	switch t.SlotOf(userID) {
	case SlotA:
		return deref(t.ParticipantB)
	case SlotB:
		return deref(t.ParticipantA)
	}
	return ""
}

// DirectCursor read cursor of userID's slot, EpochZero when never read
func (t *Thread) DirectCursor(userID string) time.Time {
	var at *time.Time
	switch t.SlotOf(userID) {
	case SlotA:
		at = t.ParticipantALastRead
	case SlotB:
		at = t.ParticipantBLastRead
	}
	if at == nil {
		return EpochZero
	}
	return *at
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Group definition chat group backing a GROUP thread
type Group struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Name      string    `gorm:"type:varchar(128);not null" json:"name"`
	OwnerID   string    `gorm:"type:varchar(64);not null" json:"owner_id"`
	CreatedAt time.Time `json:"created_at"`
}

// GroupMember membership row, LastReadAt is the member's cursor on the group thread
type GroupMember struct {
	GroupID    string     `gorm:"primaryKey;type:varchar(36)" json:"group_id"`
	UserID     string     `gorm:"primaryKey;type:varchar(64);index" json:"user_id"`
	LastReadAt *time.Time `json:"last_read_at,omitempty"`
	JoinedAt   time.Time  `json:"joined_at"`
}

// Cursor return the member's read cursor
func (m GroupMember) Cursor() time.Time {
	if m.LastReadAt == nil {
		return EpochZero
	}
	return *m.LastReadAt
}

// ThreadCursor a thread with the caller's resolved read cursor
type ThreadCursor struct {
	Thread Thread
	Cursor time.Time
	// Title group name, empty for direct threads
	Title string
}

// ThreadPreview thread list entry kept by the session store
type ThreadPreview struct {
	ID          string     `json:"id"`
	Type        ThreadType `json:"type"`
	Title       string     `json:"title"`
	LastMessage string     `json:"last_message"`
	UpdatedAt   time.Time  `json:"updated_at"`
	Unread      int        `json:"unread"`
}

// UnreadSummary unread totals for one user
type UnreadSummary struct {
	Total    int            `json:"total"`
	ByThread map[string]int `json:"by_thread"`
}
