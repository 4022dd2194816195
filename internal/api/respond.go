package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/soaringjerry/kavili/internal/quiz"
	"github.com/soaringjerry/kavili/internal/services"
	"go.uber.org/zap"
)

type errorBody struct {
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := dec.Decode(v); err != nil {
		return services.NewInvalidError("invalid json: " + err.Error())
	}
	return nil
}

var serviceStatus = map[services.ErrorCode]int{
	services.ErrorInvalid:         http.StatusBadRequest,
	services.ErrorForbidden:       http.StatusForbidden,
	services.ErrorNotFound:        http.StatusNotFound,
	services.ErrorConflict:        http.StatusConflict,
	services.ErrorUnauthorized:    http.StatusUnauthorized,
	services.ErrorUnavailable:     http.StatusServiceUnavailable,
	services.ErrorTooManyRequests: http.StatusTooManyRequests,
}

// respondError maps service and quiz errors onto status codes. Anything
// unrecognised is logged and reported as a 500.
func (rt *Router) respondError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *quiz.ValidationError
	switch {
	case errors.As(err, &verr):
		respondJSON(w, http.StatusBadRequest, errorBody{Error: string(services.ErrorInvalid), Message: "invalid user info", Fields: verr.Fields})
		return
	case errors.Is(err, ErrSessionNotFound):
		respondJSON(w, http.StatusNotFound, errorBody{Error: string(services.ErrorNotFound), Message: err.Error()})
		return
	case errors.Is(err, quiz.ErrUserInfoNotSaved):
		respondJSON(w, http.StatusServiceUnavailable, errorBody{Error: string(services.ErrorUnavailable), Message: quiz.ErrUserInfoNotSaved.Error()})
		return
	case errors.Is(err, quiz.ErrEmptyBank):
		respondJSON(w, http.StatusServiceUnavailable, errorBody{Error: string(services.ErrorUnavailable), Message: err.Error()})
		return
	case errors.Is(err, quiz.ErrBusy):
		respondJSON(w, http.StatusConflict, errorBody{Error: "busy", Message: err.Error()})
		return
	case errors.Is(err, quiz.ErrInvalidTransition):
		respondJSON(w, http.StatusConflict, errorBody{Error: "invalid_transition", Message: err.Error()})
		return
	case errors.Is(err, quiz.ErrUnknownOption):
		respondJSON(w, http.StatusBadRequest, errorBody{Error: string(services.ErrorInvalid), Message: err.Error()})
		return
	}
	if se, ok := services.AsServiceError(err); ok {
		status, known := serviceStatus[se.Code]
		if !known {
			status = http.StatusBadRequest
		}
		respondJSON(w, status, errorBody{Error: string(se.Code), Message: se.Message})
		return
	}
	rt.logger.Error("request failed", zap.String("method", r.Method), zap.String("path", r.URL.Path), zap.Error(err))
	respondJSON(w, http.StatusInternalServerError, errorBody{Error: "internal", Message: "internal error"})
}
