package api

import (
	"errors"
	"net/http"

	"github.com/soaringjerry/kavili/internal/quiz"
	"github.com/soaringjerry/kavili/internal/services"
)

type optionView struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

type questionView struct {
	ID      string       `json:"id"`
	Prompt  string       `json:"prompt"`
	Options []optionView `json:"options"`
}

type sessionView struct {
	ID             string            `json:"id"`
	Step           quiz.Step         `json:"step"`
	QuestionIndex  int               `json:"question_index"`
	TotalQuestions int               `json:"total_questions"`
	Question       *questionView     `json:"question,omitempty"`
	Answers        quiz.AnswerLedger `json:"answers"`
	UserInfo       *quiz.UserInfo    `json:"user_info,omitempty"`
	Result         *quiz.Category    `json:"result,omitempty"`
	Transitioning  bool              `json:"transitioning"`
	Ignored        bool              `json:"ignored,omitempty"`
	Seed           uint64            `json:"seed"`
}

func newSessionView(id string, c *quiz.Controller, s quiz.Session) sessionView {
	bank := c.Bank()
	v := sessionView{
		ID:             id,
		Step:           s.Step,
		QuestionIndex:  s.Index,
		TotalQuestions: bank.Len(),
		Answers:        s.Answers,
		UserInfo:       s.UserInfo,
		Result:         s.Result,
		Transitioning:  s.Transitioning(c.Now()),
		Seed:           s.Seed,
	}
	if s.Step == quiz.StepActive {
		if q, ok := bank.At(s.Index); ok {
			qv := &questionView{ID: q.ID, Prompt: q.Prompt, Options: make([]optionView, 0, len(q.Options))}
			for _, o := range q.Options {
				qv.Options = append(qv.Options, optionView{ID: o.ID, Text: o.Text})
			}
			v.Question = qv
		}
	}
	return v
}

func (rt *Router) controller(w http.ResponseWriter, r *http.Request) (string, *quiz.Controller, bool) {
	id := r.PathValue("id")
	c, err := rt.registry.Get(id)
	if err != nil {
		rt.respondError(w, r, err)
		return "", nil, false
	}
	return id, c, true
}

// POST /api/sessions
func (rt *Router) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	id, c, err := rt.registry.Create(r.Context())
	if err != nil {
		rt.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, newSessionView(id, c, c.Snapshot()))
}

// GET /api/sessions/{id}
func (rt *Router) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id, c, ok := rt.controller(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, newSessionView(id, c, c.Snapshot()))
}

// POST /api/sessions/{id}/start
func (rt *Router) handleStart(w http.ResponseWriter, r *http.Request) {
	id, c, ok := rt.controller(w, r)
	if !ok {
		return
	}
	s, err := c.Start()
	if err != nil {
		rt.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, newSessionView(id, c, s))
}

// POST /api/sessions/{id}/user-info {name, phone, consent}
func (rt *Router) handleUserInfo(w http.ResponseWriter, r *http.Request) {
	id, c, ok := rt.controller(w, r)
	if !ok {
		return
	}
	var info quiz.UserInfo
	if err := decodeJSON(w, r, &info); err != nil {
		rt.respondError(w, r, err)
		return
	}
	s, err := c.SubmitUserInfo(r.Context(), info)
	if err != nil {
		rt.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, newSessionView(id, c, s))
}

// POST /api/sessions/{id}/answers {question_id, option_id}
func (rt *Router) handleAnswer(w http.ResponseWriter, r *http.Request) {
	id, c, ok := rt.controller(w, r)
	if !ok {
		return
	}
	var req struct {
		QuestionID string `json:"question_id"`
		OptionID   string `json:"option_id"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		rt.respondError(w, r, err)
		return
	}
	if req.QuestionID == "" || req.OptionID == "" {
		rt.respondError(w, r, services.NewInvalidError("question_id and option_id required"))
		return
	}
	s, err := c.Answer(r.Context(), req.QuestionID, req.OptionID)
	if errors.Is(err, quiz.ErrAnswerIgnored) {
		v := newSessionView(id, c, s)
		v.Ignored = true
		respondJSON(w, http.StatusOK, v)
		return
	}
	if err != nil {
		rt.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, newSessionView(id, c, s))
}

// POST /api/sessions/{id}/restart
func (rt *Router) handleRestart(w http.ResponseWriter, r *http.Request) {
	id, c, ok := rt.controller(w, r)
	if !ok {
		return
	}
	s, err := c.Restart()
	if err != nil {
		rt.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, newSessionView(id, c, s))
}

// GET /api/sessions/{id}/result
func (rt *Router) handleResult(w http.ResponseWriter, r *http.Request) {
	_, c, ok := rt.controller(w, r)
	if !ok {
		return
	}
	s := c.Snapshot()
	if s.Step != quiz.StepResult {
		rt.respondError(w, r, quiz.ErrInvalidTransition)
		return
	}
	category := s.ResultOrDefault()
	details, err := rt.personalities.Details(r.Context(), category)
	if err != nil {
		rt.respondError(w, r, err)
		return
	}
	name := ""
	if s.UserInfo != nil {
		name = s.UserInfo.Name
	}
	share, err := rt.share.Payload(r.Context(), category, name)
	if err != nil {
		rt.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"name":        name,
		"personality": details,
		"share":       share,
	})
}
