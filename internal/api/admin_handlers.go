package api

import (
	"net/http"
	"strconv"

	"github.com/soaringjerry/kavili/internal/middleware"
	"github.com/soaringjerry/kavili/internal/models"
	"github.com/soaringjerry/kavili/internal/services"
)

const defaultAuditLimit = 100

// POST /api/auth/login {email, password}
func (rt *Router) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		rt.respondError(w, r, err)
		return
	}
	res, err := rt.authSvc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		rt.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

func (rt *Router) handleAuthSession(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.ClaimsFromContext(r.Context())
	respondJSON(w, http.StatusOK, map[string]any{"uid": claims.UID, "email": claims.Email})
}

func (rt *Router) handleListQuestions(w http.ResponseWriter, r *http.Request) {
	qs, err := rt.questions.ListQuestions(r.Context())
	if err != nil {
		rt.respondError(w, r, err)
		return
	}
	if qs == nil {
		qs = []*models.Question{}
	}
	respondJSON(w, http.StatusOK, qs)
}

func (rt *Router) handleCreateQuestion(w http.ResponseWriter, r *http.Request) {
	var in services.QuestionInput
	if err := decodeJSON(w, r, &in); err != nil {
		rt.respondError(w, r, err)
		return
	}
	q, err := rt.questions.CreateQuestion(r.Context(), middleware.ActorFromContext(r.Context()), in)
	if err != nil {
		rt.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, q)
}

// POST /api/admin/questions/reorder {order: [id...]}
func (rt *Router) handleReorderQuestions(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Order []string `json:"order"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		rt.respondError(w, r, err)
		return
	}
	n, err := rt.questions.ReorderQuestions(r.Context(), middleware.ActorFromContext(r.Context()), req.Order)
	if err != nil {
		rt.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"reordered": n})
}

func (rt *Router) handleGetQuestion(w http.ResponseWriter, r *http.Request) {
	q, err := rt.questions.GetQuestion(r.Context(), r.PathValue("id"))
	if err != nil {
		rt.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, q)
}

func (rt *Router) handleUpdateQuestion(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"question_text"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		rt.respondError(w, r, err)
		return
	}
	q, err := rt.questions.UpdateQuestion(r.Context(), middleware.ActorFromContext(r.Context()), r.PathValue("id"), req.Text)
	if err != nil {
		rt.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, q)
}

func (rt *Router) handleDeleteQuestion(w http.ResponseWriter, r *http.Request) {
	if err := rt.questions.DeleteQuestion(r.Context(), middleware.ActorFromContext(r.Context()), r.PathValue("id")); err != nil {
		rt.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (rt *Router) handleCreateOption(w http.ResponseWriter, r *http.Request) {
	var in services.OptionInput
	if err := decodeJSON(w, r, &in); err != nil {
		rt.respondError(w, r, err)
		return
	}
	o, err := rt.questions.CreateOption(r.Context(), middleware.ActorFromContext(r.Context()), r.PathValue("id"), in)
	if err != nil {
		rt.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, o)
}

func (rt *Router) handleUpdateOption(w http.ResponseWriter, r *http.Request) {
	var in services.OptionInput
	if err := decodeJSON(w, r, &in); err != nil {
		rt.respondError(w, r, err)
		return
	}
	o, err := rt.questions.UpdateOption(r.Context(), middleware.ActorFromContext(r.Context()), r.PathValue("id"), in)
	if err != nil {
		rt.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, o)
}

func (rt *Router) handleDeleteOption(w http.ResponseWriter, r *http.Request) {
	if err := rt.questions.DeleteOption(r.Context(), middleware.ActorFromContext(r.Context()), r.PathValue("id")); err != nil {
		rt.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (rt *Router) handleListPersonalities(w http.ResponseWriter, r *http.Request) {
	ps, err := rt.personalities.List(r.Context())
	if err != nil {
		rt.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, ps)
}

func (rt *Router) handleUpdatePersonality(w http.ResponseWriter, r *http.Request) {
	var meta models.Personality
	if err := decodeJSON(w, r, &meta); err != nil {
		rt.respondError(w, r, err)
		return
	}
	p, err := rt.personalities.Update(r.Context(), middleware.ActorFromContext(r.Context()), r.PathValue("name"), meta)
	if err != nil {
		rt.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (rt *Router) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var in models.AppSettings
	if err := decodeJSON(w, r, &in); err != nil {
		rt.respondError(w, r, err)
		return
	}
	s, err := rt.settings.UpdateAppSettings(r.Context(), middleware.ActorFromContext(r.Context()), in)
	if err != nil {
		rt.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, s)
}

func (rt *Router) handleDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := rt.analytics.Dashboard(r.Context())
	if err != nil {
		rt.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, d)
}

// GET /api/admin/analytics?range=week|month|all
func (rt *Router) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	b, err := rt.analytics.Breakdown(r.Context(), r.URL.Query().Get("range"))
	if err != nil {
		rt.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, b)
}

func (rt *Router) handleListEntries(w http.ResponseWriter, r *http.Request) {
	since, _, err := services.RangeSince(rangeParam(r), rt.now().UTC())
	if err != nil {
		rt.respondError(w, r, err)
		return
	}
	entries, err := rt.entries.List(r.Context(), since)
	if err != nil {
		rt.respondError(w, r, err)
		return
	}
	if entries == nil {
		entries = []*models.Entry{}
	}
	respondJSON(w, http.StatusOK, entries)
}

func (rt *Router) handleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	if err := rt.entries.Delete(r.Context(), middleware.ActorFromContext(r.Context()), r.PathValue("id")); err != nil {
		rt.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GET /api/admin/export.csv?range=week|month|all
func (rt *Router) handleExport(w http.ResponseWriter, r *http.Request) {
	since, _, err := services.RangeSince(rangeParam(r), rt.now().UTC())
	if err != nil {
		rt.respondError(w, r, err)
		return
	}
	res, err := rt.export.ExportCSV(r.Context(), since)
	if err != nil {
		rt.respondError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", res.ContentType)
	w.Header().Set("Content-Disposition", "attachment; filename=\""+res.Filename+"\"")
	_, _ = w.Write(res.Data)
}

// GET /api/admin/audit?limit=N
func (rt *Router) handleAudit(w http.ResponseWriter, r *http.Request) {
	limit := defaultAuditLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			rt.respondError(w, r, services.NewInvalidError("limit must be a positive integer"))
			return
		}
		limit = n
	}
	entries, err := rt.store.ListAudit(r.Context(), limit)
	if err != nil {
		rt.respondError(w, r, err)
		return
	}
	if entries == nil {
		entries = []models.AuditEntry{}
	}
	respondJSON(w, http.StatusOK, entries)
}

// rangeParam defaults entry listings to everything on record.
func rangeParam(r *http.Request) string {
	if v := r.URL.Query().Get("range"); v != "" {
		return v
	}
	return "all"
}
