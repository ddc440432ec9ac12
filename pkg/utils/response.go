package utils

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/zhouzirui/z-saga/backend/internal/model/story"
)

// ErrorBody 是所有错误响应的结构。
type ErrorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// RespondJSON 发送JSON响应
func RespondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(payload); err != nil {
		zap.L().Warn("failed to encode response", zap.Error(err))
	}
}

// RespondError 发送错误响应
func RespondError(w http.ResponseWriter, status int, kind, message string) {
	RespondJSON(w, status, ErrorBody{Error: kind, Message: message})
}

// StatusFor 将服务层错误映射为 HTTP 状态码。
func StatusFor(err error) int {
	switch {
	case errors.Is(err, story.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, story.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, story.ErrConflict), errors.Is(err, story.ErrTerminalState):
		return http.StatusConflict
	case errors.Is(err, story.ErrGeneration):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// RespondServiceError 按错误类型发送错误响应。
func RespondServiceError(w http.ResponseWriter, err error) {
	RespondError(w, StatusFor(err), story.KindOf(err), err.Error())
}
