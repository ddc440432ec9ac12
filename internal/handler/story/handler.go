package story

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/zhouzirui/z-saga/backend/internal/model/story"
	"github.com/zhouzirui/z-saga/backend/pkg/utils"
)

// Service 是处理器依赖的故事服务。
type Service interface {
	Start(ctx context.Context, storyName string, maxChoices int) (*story.Turn, error)
	Continue(ctx context.Context, storyName, sessionID, choiceText string) (*story.Turn, error)
	Get(ctx context.Context, sessionID string) (*story.Session, error)
	Delete(ctx context.Context, sessionID string) error
	ListStories() []string
	StoryFiles() map[string]string
}

// Handler 故事接口的HTTP处理器
type Handler struct {
	svc    Service
	logger *zap.Logger
}

// New 创建故事处理器
func New(svc Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

// RegisterRoutes 注册故事相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/list", h.handleList)
	r.Post("/start", h.handleStart)
	r.Post("/continue", h.handleContinue)
	r.Get("/session/{sessionID}", h.handleGetSession)
	r.Delete("/session/{sessionID}", h.handleDeleteSession)
}

type startRequest struct {
	StoryName  string `json:"story_name"`
	MaxChoices *int   `json:"max_choices"`
}

type continueRequest struct {
	StoryName  string `json:"story_name"`
	SessionID  string `json:"session_id"`
	ChoiceText string `json:"choice_text"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"available_stories": h.svc.ListStories(),
		"story_files":       h.svc.StoryFiles(),
	})
}

// handleStart 开始新的故事
func (h *Handler) handleStart(w http.ResponseWriter, r *http.Request) {
	var payload startRequest
	if !decode(w, r, &payload) {
		return
	}

	maxChoices := story.DefaultChoices
	if payload.MaxChoices != nil {
		maxChoices = *payload.MaxChoices
	}

	turn, err := h.svc.Start(r.Context(), payload.StoryName, maxChoices)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, turn)
}

// handleContinue 根据玩家选择推进故事
func (h *Handler) handleContinue(w http.ResponseWriter, r *http.Request) {
	var payload continueRequest
	if !decode(w, r, &payload) {
		return
	}

	turn, err := h.svc.Continue(r.Context(), payload.StoryName, payload.SessionID, payload.ChoiceText)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, turn)
}

func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := h.svc.Get(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, sess)
}

func (h *Handler) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), chi.URLParam(r, "sessionID")); err != nil {
		h.fail(w, r, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]string{"message": "Session deleted successfully"})
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := utils.StatusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("story request failed", zap.String("path", r.URL.Path), zap.Error(err))
	}
	utils.RespondServiceError(w, err)
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		utils.RespondServiceError(w, fmt.Errorf("%w: invalid request body", story.ErrValidation))
		return false
	}
	return true
}
