package app

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"collab_chat_service/internal/chat/domain"
	"collab_chat_service/pkg/config"
	errprocess "collab_chat_service/pkg/err"
	"collab_chat_service/pkg/logger"
	"collab_chat_service/pkg/middlewares"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"
)

const pingInterval = 30 * time.Second

// ChatWebsocketHandler 可包含所有需要的 UseCase
type ChatWebsocketHandler struct {
	svc Services
	cfg SessionConfig
}

// NewChatWebsocketHandler create ChatWebsocketHandler
func NewChatWebsocketHandler(svc Services, realtime config.RealtimeConfig) *ChatWebsocketHandler {
	return &ChatWebsocketHandler{svc: svc, cfg: SessionConfigFrom(realtime)}
}

// wsConn serialized writer over a websocket connection
type wsConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (w *wsConn) send(resp domain.WSResponse) {
	b, err := json.Marshal(resp)
	if err != nil {
		logger.Log.Error("websocket response encode failed", zap.String("action", resp.Action), zap.Error(err))
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.conn.WriteMessage(websocket.TextMessage, b); err != nil {
		logger.Log.Debug("websocket write failed", zap.Error(err))
	}
}

func (w *wsConn) ping() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(5*time.Second))
}

// HandleConnection 是 WebSocket 連線的進入點
func (h *ChatWebsocketHandler) HandleConnection(ctx context.Context, conn *websocket.Conn) {
	userID, _ := conn.Locals(middlewares.TokenUserID).(string)
	displayName, _ := conn.Locals(middlewares.TokenDisplayName).(string)
	logger.Log.Info("websocket connected", zap.String("user_id", userID))

	w := &wsConn{conn: conn}
	ctxClose, cancel := context.WithCancel(ctx)
	ticker := time.NewTicker(pingInterval)

	defer func() {
		ticker.Stop()
		cancel()
		conn.Close()
		logger.Log.Info("websocket close", zap.String("user_id", userID))
	}()

	if userID == "" {
		w.send(domain.WSResponse{Action: "error", Error: "missing identity", Code: errprocess.CodeUnauthorized})
		return
	}

	// identity provider 的顯示名稱同步到 profile
	if displayName != "" && h.svc.Profiles != nil {
		if err := h.svc.Profiles.Upsert(ctx, &domain.User{ID: userID, DisplayName: displayName}); err != nil {
			logger.Log.Warn("profile upsert failed", zap.String("user_id", userID), zap.Error(err))
		}
	}

	//server發出ping之後client連線正常會回pong
	conn.SetPongHandler(func(appData string) error {
		logger.Log.Debug("received pong", zap.String("user_id", userID))
		return nil
	})

	session := NewSession(userID, h.svc, h.cfg, w.send)
	if err := session.Start(ctxClose); err != nil {
		logger.Log.Error("session start failed", zap.String("user_id", userID), zap.Error(err))
		w.send(domain.WSResponse{Action: "error", Error: err.Error(), Code: errprocess.Code(err)})
		return
	}
	defer session.Close()

	w.send(domain.WSResponse{
		Action:  string(domain.ListThreads),
		Success: true,
		Payload: map[string]interface{}{"threads": session.Store().Threads()},
	})

	// 定期發送 Ping
	go func() {
		for {
			select {
			case <-ticker.C:
				if err := w.ping(); err != nil {
					logger.Log.Debug("ping failed", zap.String("user_id", userID), zap.Error(err))
					return
				}
			case <-ctxClose.Done():
				return
			}
		}
	}()

	for {
		mt, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				logger.Log.Debug("connection closed", zap.String("user_id", userID))
			} else {
				//直接斷線 1006
				logger.Log.Warn("websocket read error", zap.String("user_id", userID), zap.Error(err))
			}
			return
		}
		if mt != websocket.TextMessage {
			w.send(domain.WSResponse{Action: "error", Error: "unsupported message type", Code: errprocess.CodeInvalidRequest})
			continue
		}
		w.send(h.Dispatch(ctxClose, session, message))
	}
}

// Dispatch decode one request and run it against session
func (h *ChatWebsocketHandler) Dispatch(ctx context.Context, session *Session, raw []byte) domain.WSResponse {
	var req domain.WSRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return domain.WSResponse{Action: "error", Error: "invalid json", Code: errprocess.CodeInvalidRequest}
	}

	resp := domain.WSResponse{Action: req.Action, Payload: map[string]interface{}{}}
	var err error

	switch domain.Action(req.Action) {
	case domain.ListThreads:
		resp.Payload["threads"] = session.Store().Threads()

	case domain.CreateDirect:
		var p domain.ThreadPreview
		if p, err = session.CreateDirect(ctx, req.OtherUserID); err == nil {
			resp.Payload["thread"] = p
		}

	case domain.CreateGroup:
		var p domain.ThreadPreview
		if p, err = session.CreateGroup(ctx, req.GroupName, req.Members); err == nil {
			resp.Payload["thread"] = p
		}

	//進入聊天室
	case domain.OpenThread:
		var msgs []domain.Message
		if _, msgs, err = session.OpenThread(ctx, req.ThreadID, req.Limit); err == nil {
			resp.Payload["thread_id"] = req.ThreadID
			resp.Payload["messages"] = msgs
		}

	case domain.CloseThread:
		session.CloseThread()

	//message都會寫入db,並傳訊給聊天室內的人
	case domain.SendMessage:
		var msg *domain.Message
		if msg, err = session.Send(ctx, req.ThreadID, req.Content); err == nil {
			resp.Payload["sent"] = msg != nil
			if msg != nil {
				resp.Payload["message"] = msg
			}
		}

	case domain.Typing:
		err = session.Typing(ctx, req.ThreadID, req.Content)

	case domain.Translate:
		var tr *domain.Translation
		if tr, err = session.Translate(ctx, req.ThreadID, req.MessageID, req.Language); err == nil {
			resp.Payload["message_id"] = req.MessageID
			resp.Payload["translation"] = tr
		}

	case domain.MarkRead:
		err = session.MarkRead(ctx, req.ThreadID)

	//所有未讀訊息
	case domain.GetUnread:
		var summary domain.UnreadSummary
		if summary, err = session.Unread(ctx); err == nil {
			resp.Payload["total"] = summary.Total
			resp.Payload["by_thread"] = summary.ByThread
		}

	default:
		err = errprocess.New(errprocess.ErrInvalidInput, "dispatch", "unknown action "+req.Action)
	}

	if err != nil {
		resp.Error = err.Error()
		resp.Code = errprocess.Code(err)
		logger.Log.Warn("websocket action failed",
			zap.String("user_id", session.userID),
			zap.String("action", req.Action),
			zap.String("code", resp.Code),
			zap.Error(err),
		)
		return resp
	}
	resp.Success = true
	return resp
}
