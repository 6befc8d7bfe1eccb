package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Strongman1380/myassistant/internal/calendar"
	"github.com/Strongman1380/myassistant/internal/config"
	"github.com/Strongman1380/myassistant/internal/http/handler"
	mw "github.com/Strongman1380/myassistant/internal/http/middleware"
	"github.com/Strongman1380/myassistant/internal/ingest"
	"github.com/Strongman1380/myassistant/internal/llm"
	"github.com/Strongman1380/myassistant/internal/memory"
)

func NewRouter(cfg config.Config, db *gorm.DB, gw *llm.Client, connectors map[string]calendar.Connector, states *calendar.StateSigner, tz *time.Location, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(mw.CORS(cfg.CORSAllowedOrigins, cfg.CORSAllowCredentials))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	memSvc := &memory.Service{DB: db, LLM: gw, Logger: logger}
	docSvc := &ingest.Service{Memories: memSvc, LLM: gw, Logger: logger}

	ai := handler.NewAIHandler(gw, tz, logger)
	r.Route("/ai", func(r chi.Router) {
		r.Post("/text", ai.Text)
		r.Post("/email", ai.Email)
		r.Post("/calendar", ai.Calendar)
	})

	cal := &handler.CalendarHandler{Connectors: connectors, States: states, Timezone: tz, Logger: logger}
	r.Route("/calendar", func(r chi.Router) {
		r.Post("/create", cal.Create)
		r.Get("/auth-status", cal.AuthStatus)
		r.Get("/reauthorize", cal.Reauthorize)
		r.Get("/oauth-callback", cal.GoogleCallback)
		r.Get("/outlook-callback", cal.OutlookCallback)
	})

	mem := &handler.MemoryHandler{Svc: memSvc, Logger: logger}
	ing := &handler.IngestHandler{Docs: docSvc, Transcriber: gw, Logger: logger}
	r.Route("/memory", func(r chi.Router) {
		r.Post("/add", mem.Add)
		r.Get("/list", mem.List)
		r.Get("/categories", mem.Categories)
		r.Get("/tags", mem.Tags)
		r.Post("/search", mem.Search)
		r.Delete("/{id}", mem.Delete)
		r.Delete("/", mem.Clear)

		r.Post("/parse-document", ing.ParseDocument)
	})

	r.Post("/whisper/transcribe", ing.Transcribe)
	r.Post("/upload", ing.Upload)

	return r
}
