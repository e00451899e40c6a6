package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"restaurant-foh/internal/domain"
	"restaurant-foh/internal/server/repository"
	"restaurant-foh/internal/server/service"
)

type Handler struct {
	service service.OrderServiceInterface
}

func New(svc service.OrderServiceInterface) *Handler {
	return &Handler{service: svc}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeProblem emits the RFC 7807 shape every error response uses.
func writeProblem(w http.ResponseWriter, code int, typ, detail string) {
	w.Header().Set("Content-Type", "application/problem+json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"type":   typ,
		"title":  http.StatusText(code),
		"status": code,
		"detail": detail,
	})
}

// fail maps service and domain errors onto the error taxonomy.
func fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		writeProblem(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrOrderNotClosable):
		writeProblem(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, service.ErrValidation),
		errors.Is(err, domain.ErrReasonRequired):
		writeProblem(w, http.StatusUnprocessableEntity, "validation_failed", err.Error())
	default:
		writeProblem(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func pathID(r *http.Request, key string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, key), 10, 64)
	return id, err == nil && id > 0
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeProblem(w, http.StatusBadRequest, "bad_request", "malformed JSON body")
		return false
	}
	return true
}
