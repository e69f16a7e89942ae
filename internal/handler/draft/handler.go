package draft

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/concierge/internal/model/contract"
	"github.com/zhouzirui/concierge/internal/service/mail"
	"github.com/zhouzirui/concierge/pkg/utils"
)

// Composer turns a conversation into the raw email draft text.
type Composer interface {
	Compose(ctx context.Context, req contract.DraftRequest) (string, error)
}

// Handler 草稿接口的HTTP处理器
type Handler struct {
	composer Composer
}

// New 创建草稿处理器
func New(composer Composer) *Handler {
	return &Handler{composer: composer}
}

// RegisterRoutes 注册草稿路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post(contract.DraftPath, h.handleDraft)
}

func (h *Handler) handleDraft(w http.ResponseWriter, r *http.Request) {
	var req contract.DraftRequest
	if err := utils.DecodeJSON(w, r, &req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	email, err := h.composer.Compose(r.Context(), req)
	if err != nil {
		if errors.Is(err, mail.ErrNoMessages) {
			utils.RespondError(w, http.StatusBadRequest, "messages are required")
			return
		}
		log.Printf("[draft] compose failed: %v", err)
		utils.RespondError(w, http.StatusInternalServerError, "failed to compose draft")
		return
	}

	utils.RespondJSON(w, http.StatusOK, contract.DraftResponse{Email: email})
}
