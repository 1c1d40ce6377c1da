package repository_test

import (
	"context"
	"testing"
	"time"

	"collab_chat_service/internal/chat/domain"
	"collab_chat_service/internal/chat/repository"
	"collab_chat_service/internal/chat/repository/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageCreateAdvancesLastActivity(t *testing.T) {
	db := testutil.NewDB(t)
	testutil.SeedUsers(t, db, "a", "b")
	threads := repository.NewThreadRepository(db)
	messages := repository.NewMessageRepository(db)
	ctx := context.Background()

	th, _, err := threads.FindOrCreateDirect(ctx, "a", "b")
	require.NoError(t, err)

	at := time.Now().UTC().Add(time.Second)
	m := &domain.Message{ID: uuid.NewString(), ThreadID: th.ID, AuthorID: "a", Content: "hello", CreatedAt: at}
	require.NoError(t, messages.Create(ctx, m))

	reloaded, err := threads.FindByID(ctx, th.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.LastActivityAt.Equal(at))

	found, err := messages.FindByID(ctx, m.ID)
	require.NoError(t, err)
	require.NotNil(t, found.Author)
	assert.Equal(t, "a", found.Author.DisplayName)
}

func TestListByThreadReturnsLatestAscending(t *testing.T) {
	db := testutil.NewDB(t)
	threads := repository.NewThreadRepository(db)
	messages := repository.NewMessageRepository(db)
	ctx := context.Background()

	th, _, err := threads.FindOrCreateDirect(ctx, "a", "b")
	require.NoError(t, err)

	base := time.Now().UTC()
	for i, c := range []string{"one", "two", "three"} {
		testutil.SeedMessage(t, db, th.ID, "a", c, base.Add(time.Duration(i+1)*time.Second))
	}

	got, err := messages.ListByThread(ctx, th.ID, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "two", got[0].Content)
	assert.Equal(t, "three", got[1].Content)

	latest, err := messages.LatestByThreads(ctx, []string{th.ID, "empty"})
	require.NoError(t, err)
	assert.Equal(t, "three", latest[th.ID].Content)
	_, ok := latest["empty"]
	assert.False(t, ok)
}

func TestCountUnreadExcludesOwnAndRead(t *testing.T) {
	db := testutil.NewDB(t)
	threads := repository.NewThreadRepository(db)
	messages := repository.NewMessageRepository(db)
	ctx := context.Background()

	th, _, err := threads.FindOrCreateDirect(ctx, "a", "b")
	require.NoError(t, err)

	base := time.Now().UTC()
	testutil.SeedMessage(t, db, th.ID, "a", "1", base.Add(1*time.Second))
	testutil.SeedMessage(t, db, th.ID, "b", "2", base.Add(2*time.Second))
	testutil.SeedMessage(t, db, th.ID, "a", "3", base.Add(3*time.Second))

	n, err := messages.CountUnread(ctx, th.ID, "b", domain.EpochZero)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = messages.CountUnread(ctx, th.ID, "b", base.Add(1*time.Second))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = messages.CountUnread(ctx, th.ID, "a", domain.EpochZero)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
