package app

import (
	"context"
	"fmt"
	"testing"
	"time"

	"collab_chat_service/internal/chat/domain"
	"collab_chat_service/pkg/config"
	errprocess "collab_chat_service/pkg/err"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 測試 Dispatch 各 action
func TestDispatch_Actions(t *testing.T) {
	clock := useClock(t)
	env := newTestEnv(t, "alice", "bob")
	ctx := context.Background()

	h := NewChatWebsocketHandler(env.svc, config.RealtimeConfig{UnreadRefreshInterval: time.Hour})
	s, _ := startSession(t, env, "alice", h.cfg)

	// 1. 建立 direct thread
	resp := h.Dispatch(ctx, s, []byte(`{"action":"create_direct","other_user_id":"bob"}`))
	require.True(t, resp.Success, resp.Error)
	thread := resp.Payload["thread"].(domain.ThreadPreview)

	// 2. 開啟並送出
	resp = h.Dispatch(ctx, s, []byte(fmt.Sprintf(`{"action":"open_thread","thread_id":%q}`, thread.ID)))
	require.True(t, resp.Success, resp.Error)
	assert.Empty(t, resp.Payload["messages"])

	clock.Advance(time.Second)
	resp = h.Dispatch(ctx, s, []byte(fmt.Sprintf(`{"action":"send_message","thread_id":%q,"content":"hello"}`, thread.ID)))
	require.True(t, resp.Success, resp.Error)
	assert.Equal(t, true, resp.Payload["sent"])
	msg := resp.Payload["message"].(*domain.Message)

	// 空白訊息不送出但不算錯誤
	resp = h.Dispatch(ctx, s, []byte(fmt.Sprintf(`{"action":"send_message","thread_id":%q,"content":"   "}`, thread.ID)))
	require.True(t, resp.Success)
	assert.Equal(t, false, resp.Payload["sent"])

	// 3. 翻譯
	resp = h.Dispatch(ctx, s, []byte(fmt.Sprintf(`{"action":"translate","thread_id":%q,"message_id":%q,"language":"de"}`, thread.ID, msg.ID)))
	require.True(t, resp.Success, resp.Error)
	assert.Equal(t, "[DE] hello", resp.Payload["translation"].(*domain.Translation).Text)

	// 4. 未讀與已讀
	resp = h.Dispatch(ctx, s, []byte(`{"action":"get_unread"}`))
	require.True(t, resp.Success)
	assert.Equal(t, 0, resp.Payload["total"])

	resp = h.Dispatch(ctx, s, []byte(fmt.Sprintf(`{"action":"mark_read","thread_id":%q}`, thread.ID)))
	assert.True(t, resp.Success)

	resp = h.Dispatch(ctx, s, []byte(`{"action":"list_threads"}`))
	require.True(t, resp.Success)
	assert.Len(t, resp.Payload["threads"], 1)

	resp = h.Dispatch(ctx, s, []byte(`{"action":"close_thread"}`))
	assert.True(t, resp.Success)
	assert.Nil(t, s.Active())
}

func TestDispatch_Errors(t *testing.T) {
	useClock(t)
	env := newTestEnv(t, "alice", "bob")
	ctx := context.Background()

	h := NewChatWebsocketHandler(env.svc, config.RealtimeConfig{})
	s, _ := startSession(t, env, "alice", h.cfg)

	resp := h.Dispatch(ctx, s, []byte(`{not json`))
	assert.False(t, resp.Success)
	assert.Equal(t, errprocess.CodeInvalidRequest, resp.Code)

	resp = h.Dispatch(ctx, s, []byte(`{"action":"dance"}`))
	assert.False(t, resp.Success)
	assert.Equal(t, errprocess.CodeInvalidRequest, resp.Code)

	resp = h.Dispatch(ctx, s, []byte(`{"action":"open_thread","thread_id":"missing"}`))
	assert.False(t, resp.Success)
	assert.Equal(t, errprocess.CodeNotFound, resp.Code)

	thread := env.direct(t, "bob", "carol")
	resp = h.Dispatch(ctx, s, []byte(fmt.Sprintf(`{"action":"mark_read","thread_id":%q}`, thread.ID)))
	assert.False(t, resp.Success)
	assert.Equal(t, errprocess.CodeForbidden, resp.Code)

	resp = h.Dispatch(ctx, s, []byte(`{"action":"typing","thread_id":"x","content":"hi"}`))
	assert.Equal(t, errprocess.CodeInvalidRequest, resp.Code)
}
