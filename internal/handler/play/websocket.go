package play

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/zhouzirui/z-saga/backend/internal/model/story"
	"github.com/zhouzirui/z-saga/backend/pkg/utils"
)

const (
	readTimeout  = 60 * time.Second
	pingInterval = 54 * time.Second
	writeTimeout = 10 * time.Second
)

// Service 是游玩通道依赖的故事服务。
type Service interface {
	Start(ctx context.Context, storyName string, maxChoices int) (*story.Turn, error)
	Continue(ctx context.Context, storyName, sessionID, choiceText string) (*story.Turn, error)
	Get(ctx context.Context, sessionID string) (*story.Session, error)
}

// Handler 通过 WebSocket 提供逐步游玩。一个连接可以依次发送 start、continue 和 session 消息。
type Handler struct {
	svc      Service
	logger   *zap.Logger
	upgrader websocket.Upgrader

	readTimeout  time.Duration
	pingInterval time.Duration
}

// New 创建游玩处理器，allowedOrigins 为空或包含 "*" 时不校验来源。
func New(svc Service, logger *zap.Logger, allowedOrigins []string) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		svc:    svc,
		logger: logger,
		upgrader: websocket.Upgrader{
			CheckOrigin:     originChecker(allowedOrigins),
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
		readTimeout:  readTimeout,
		pingInterval: pingInterval,
	}
}

// RegisterRoutes 注册WebSocket路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ws", h.handleWebSocket)
}

// Inbound 是客户端发来的消息。
type Inbound struct {
	Type       string `json:"type"`
	StoryName  string `json:"story_name,omitempty"`
	MaxChoices *int   `json:"max_choices,omitempty"`
	SessionID  string `json:"session_id,omitempty"`
	ChoiceText string `json:"choice_text,omitempty"`
}

// Outbound 是服务端推送的消息。
type Outbound struct {
	Type      string          `json:"type"`
	SessionID string          `json:"session_id,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	conn.SetReadDeadline(time.Now().Add(h.readTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(h.readTimeout))
		return nil
	})

	go pingLoop(ctx, conn, h.pingInterval)

	h.logger.Info("play connection opened", zap.String("remote", r.RemoteAddr))
	h.send(conn, "connected", "", map[string]string{"message": "ready"})

	for {
		var msg Inbound
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("play connection read failed", zap.Error(err))
			}
			return
		}
		h.handleMessage(ctx, conn, &msg)
		// generation can outlast the read deadline; the idle clock starts after the reply
		conn.SetReadDeadline(time.Now().Add(h.readTimeout))
	}
}

func (h *Handler) handleMessage(ctx context.Context, conn *websocket.Conn, msg *Inbound) {
	switch msg.Type {
	case "start":
		maxChoices := story.DefaultChoices
		if msg.MaxChoices != nil {
			maxChoices = *msg.MaxChoices
		}
		turn, err := h.svc.Start(ctx, msg.StoryName, maxChoices)
		if err != nil {
			h.sendError(conn, err)
			return
		}
		h.send(conn, "turn", turn.SessionID, turn)
	case "continue":
		turn, err := h.svc.Continue(ctx, msg.StoryName, msg.SessionID, msg.ChoiceText)
		if err != nil {
			h.sendError(conn, err)
			return
		}
		h.send(conn, "turn", msg.SessionID, turn)
	case "session":
		sess, err := h.svc.Get(ctx, msg.SessionID)
		if err != nil {
			h.sendError(conn, err)
			return
		}
		h.send(conn, "session", msg.SessionID, sess)
	default:
		h.sendError(conn, fmt.Errorf("%w: unsupported message type %q", story.ErrValidation, msg.Type))
	}
}

func (h *Handler) send(conn *websocket.Conn, kind, sessionID string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("encode play message failed", zap.Error(err))
		return
	}

	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteJSON(Outbound{
		Type:      kind,
		SessionID: sessionID,
		Data:      data,
		Timestamp: time.Now().Unix(),
	}); err != nil {
		h.logger.Warn("play write failed", zap.String("type", kind), zap.Error(err))
	}
}

func (h *Handler) sendError(conn *websocket.Conn, err error) {
	if utils.StatusFor(err) >= http.StatusInternalServerError {
		h.logger.Error("play request failed", zap.Error(err))
	}
	h.send(conn, "error", "", utils.ErrorBody{Error: story.KindOf(err), Message: err.Error()})
}

// pingLoop 定期发送ping消息；WriteControl 可与其他写操作并发调用。
func pingLoop(ctx context.Context, conn *websocket.Conn, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return
			}
		}
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, origin := range allowed {
		if origin == "*" {
			return func(*http.Request) bool { return true }
		}
		set[origin] = struct{}{}
	}
	if len(set) == 0 {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}
