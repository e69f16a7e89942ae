package ask

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/concierge/internal/model/contract"
	"github.com/zhouzirui/concierge/internal/service/ai"
	"github.com/zhouzirui/concierge/pkg/utils"
)

// Answerer produces the reply for one ask request.
type Answerer interface {
	Answer(ctx context.Context, req contract.AskRequest, sessionKey string) (contract.AskResponse, error)
}

// Handler 问答接口的HTTP处理器
type Handler struct {
	answerer Answerer
}

// New 创建问答处理器
func New(answerer Answerer) *Handler {
	return &Handler{answerer: answerer}
}

// RegisterRoutes 注册问答相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post(contract.AskPath, h.handleAsk)
	r.Get(contract.WSPath, h.handleWebSocket)
}

func (h *Handler) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req contract.AskRequest
	if err := utils.DecodeJSON(w, r, &req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		utils.RespondError(w, http.StatusBadRequest, "query is required")
		return
	}

	resp, err := h.answerer.Answer(r.Context(), req, r.RemoteAddr)
	if err != nil {
		status, msg := errorStatus(err)
		log.Printf("[ask] answer failed session=%s: %v", req.SessionID, err)
		utils.RespondError(w, status, msg)
		return
	}

	utils.RespondJSON(w, http.StatusOK, resp)
}

func errorStatus(err error) (int, string) {
	if errors.Is(err, ai.ErrEmptyQuery) {
		return http.StatusBadRequest, "query is required"
	}
	return http.StatusInternalServerError, "failed to answer"
}
