package api

import (
	"net/http"
	"time"

	"github.com/soaringjerry/kavili/internal/middleware"
	"github.com/soaringjerry/kavili/internal/quiz"
	"github.com/soaringjerry/kavili/internal/services"
	"go.uber.org/zap"
)

type Config struct {
	Authenticator   *middleware.Authenticator
	TokenTTL        time.Duration
	TieBreaker      quiz.TieBreaker
	TransitionDelay time.Duration
	QuizType        string
	SessionTTL      time.Duration
	// Results replaces the synchronous entry saver, e.g. with a queued one.
	Results      quiz.ResultSaver
	ShareBaseURL string
	Version      string
	Logger       *zap.Logger
	Now          func() time.Time
}

type Router struct {
	store         Store
	auth          *middleware.Authenticator
	registry      *Registry
	authSvc       *services.AuthService
	questions     *services.QuestionService
	personalities *services.PersonalityService
	settings      *services.SettingsService
	entries       *services.EntryService
	analytics     *services.AnalyticsService
	export        *services.ExportService
	share         *services.ShareService
	version       string
	logger        *zap.Logger
	now           func() time.Time
}

func NewRouter(store Store, cfg Config) *Router {
	if cfg.Authenticator == nil {
		cfg.Authenticator = middleware.NewAuthenticator("")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	settings := services.NewSettingsService(store)
	personalities := services.NewPersonalityService(store)
	entries := services.NewEntryService(store)
	results := cfg.Results
	if results == nil {
		results = entries
	}
	rt := &Router{
		store:         store,
		auth:          cfg.Authenticator,
		authSvc:       services.NewAuthService(store, cfg.Authenticator.SignToken, cfg.TokenTTL),
		questions:     services.NewQuestionService(store),
		personalities: personalities,
		settings:      settings,
		entries:       entries,
		analytics:     services.NewAnalyticsService(store),
		export:        services.NewExportService(entries),
		share:         services.NewShareService(personalities, cfg.ShareBaseURL),
		version:       cfg.Version,
		logger:        cfg.Logger,
		now:           cfg.Now,
	}
	if rt.now == nil {
		rt.now = time.Now
	}
	rt.registry = NewRegistry(SessionFactory{
		Bank:            services.NewBankService(store, settings),
		Users:           entries,
		Results:         results,
		TieBreaker:      cfg.TieBreaker,
		TransitionDelay: cfg.TransitionDelay,
		QuizType:        cfg.QuizType,
		Logger:          cfg.Logger,
		Now:             cfg.Now,
	}, cfg.SessionTTL)
	return rt
}

// Registry exposes the live sessions so the caller can run the idle sweep.
func (rt *Router) Registry() *Registry { return rt.registry }

func (rt *Router) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", rt.handleHealth)
	mux.HandleFunc("GET /api/settings", rt.handlePublicSettings)

	mux.HandleFunc("POST /api/sessions", rt.handleCreateSession)
	mux.HandleFunc("GET /api/sessions/{id}", rt.handleGetSession)
	mux.HandleFunc("POST /api/sessions/{id}/start", rt.handleStart)
	mux.HandleFunc("POST /api/sessions/{id}/user-info", rt.handleUserInfo)
	mux.HandleFunc("POST /api/sessions/{id}/answers", rt.handleAnswer)
	mux.HandleFunc("POST /api/sessions/{id}/restart", rt.handleRestart)
	mux.HandleFunc("GET /api/sessions/{id}/result", rt.handleResult)

	mux.HandleFunc("POST /api/auth/login", rt.handleLogin)
	mux.Handle("GET /api/auth/session", rt.admin(rt.handleAuthSession))

	mux.Handle("GET /api/admin/questions", rt.admin(rt.handleListQuestions))
	mux.Handle("POST /api/admin/questions", rt.admin(rt.handleCreateQuestion))
	mux.Handle("POST /api/admin/questions/reorder", rt.admin(rt.handleReorderQuestions))
	mux.Handle("GET /api/admin/questions/{id}", rt.admin(rt.handleGetQuestion))
	mux.Handle("PUT /api/admin/questions/{id}", rt.admin(rt.handleUpdateQuestion))
	mux.Handle("DELETE /api/admin/questions/{id}", rt.admin(rt.handleDeleteQuestion))
	mux.Handle("POST /api/admin/questions/{id}/options", rt.admin(rt.handleCreateOption))
	mux.Handle("PUT /api/admin/options/{id}", rt.admin(rt.handleUpdateOption))
	mux.Handle("DELETE /api/admin/options/{id}", rt.admin(rt.handleDeleteOption))

	mux.Handle("GET /api/admin/personalities", rt.admin(rt.handleListPersonalities))
	mux.Handle("PUT /api/admin/personalities/{name}", rt.admin(rt.handleUpdatePersonality))
	mux.Handle("PUT /api/admin/settings", rt.admin(rt.handleUpdateSettings))

	mux.Handle("GET /api/admin/dashboard", rt.admin(rt.handleDashboard))
	mux.Handle("GET /api/admin/analytics", rt.admin(rt.handleAnalytics))
	mux.Handle("GET /api/admin/entries", rt.admin(rt.handleListEntries))
	mux.Handle("DELETE /api/admin/entries/{id}", rt.admin(rt.handleDeleteEntry))
	mux.Handle("GET /api/admin/export.csv", rt.admin(rt.handleExport))
	mux.Handle("GET /api/admin/audit", rt.admin(rt.handleAudit))
}

func (rt *Router) admin(h http.HandlerFunc) http.Handler {
	return rt.auth.WithAuth(middleware.RequireAuth(h))
}

func (rt *Router) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"ok":       true,
		"name":     "Kavili API",
		"version":  rt.version,
		"sessions": rt.registry.Len(),
	})
}

func (rt *Router) handlePublicSettings(w http.ResponseWriter, r *http.Request) {
	s, err := rt.settings.AppSettings(r.Context())
	if err != nil {
		rt.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, s)
}
