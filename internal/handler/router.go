package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/zhouzirui/concierge/internal/handler/ask"
	"github.com/zhouzirui/concierge/internal/handler/draft"
	"github.com/zhouzirui/concierge/internal/handler/persona"
	middlewarePkg "github.com/zhouzirui/concierge/internal/middleware"
	personaModel "github.com/zhouzirui/concierge/internal/model/persona"
	"github.com/zhouzirui/concierge/pkg/utils"
)

// NewRouter wires HTTP routes to core services.
func NewRouter(personas personaModel.Store, answerer ask.Answerer, composer draft.Composer) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	ask.New(answerer).RegisterRoutes(r)
	draft.New(composer).RegisterRoutes(r)

	r.Route("/api", func(api chi.Router) {
		persona.New(personas).RegisterRoutes(api)
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return r
}
