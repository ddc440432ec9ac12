package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/zhouzirui/z-saga/backend/internal/handler/play"
	"github.com/zhouzirui/z-saga/backend/internal/handler/story"
	"github.com/zhouzirui/z-saga/backend/internal/metrics"
	middlewarePkg "github.com/zhouzirui/z-saga/backend/internal/middleware"
	"github.com/zhouzirui/z-saga/backend/pkg/utils"
)

// Version is reported by the root endpoint.
const Version = "1.0.0"

// Dependencies carries what the router needs from main.
type Dependencies struct {
	Stories             story.Service
	GeneratorConfigured bool
	AllowedOrigins      []string
	Logger              *zap.Logger
	Now                 func() time.Time
}

// NewRouter wires HTTP routes to core services.
func NewRouter(deps Dependencies) http.Handler {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middlewarePkg.RequestLogger(deps.Logger))
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS(deps.AllowedOrigins))

	storyHandler := story.New(deps.Stories, deps.Logger.Named("story"))
	playHandler := play.New(deps.Stories, deps.Logger.Named("play"), deps.AllowedOrigins)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]any{
			"message":           "Interactive Storytelling API",
			"version":           Version,
			"available_stories": deps.Stories.ListStories(),
			"endpoints": map[string]string{
				"start_story":       "/stories/start",
				"continue_story":    "/stories/continue",
				"available_stories": "/stories/list",
				"session":           "/stories/session/{sessionID}",
				"play":              "/stories/ws",
			},
		})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]any{
			"status":               "healthy",
			"timestamp":            deps.Now().Format(time.RFC3339),
			"generator_configured": deps.GeneratorConfigured,
		})
	})

	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/stories", func(sr chi.Router) {
		storyHandler.RegisterRoutes(sr)
		playHandler.RegisterRoutes(sr)
	})

	return r
}
