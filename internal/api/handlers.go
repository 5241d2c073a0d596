// Package api exposes HTTP handlers for the training service.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"example.com/training/internal/auth"
	"example.com/training/internal/domain"
	"example.com/training/internal/persistence"
)

// Handler coordinates HTTP requests with the domain service.
type Handler struct {
	service *domain.Service
}

// NewHandler builds a Handler.
func NewHandler(service *domain.Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/sessions", h.sessions)
	mux.HandleFunc("/v1/sessions/", h.sessionByID)
	mux.HandleFunc("/v1/exercises", h.exercises)
	mux.HandleFunc("/v1/exercises/", h.exerciseByID)
	mux.HandleFunc("/v1/workouts", h.workouts)
	mux.HandleFunc("/v1/workouts/", h.workoutByID)
	mux.HandleFunc("/v1/goals", h.goals)
	mux.HandleFunc("/v1/goals/", h.goalByID)
	mux.HandleFunc("/v1/phases", h.phases)
	mux.HandleFunc("/v1/phases/", h.phaseByID)
	mux.HandleFunc("/healthz", healthz)
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) sessions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.createSession(w, r)
	case http.MethodGet:
		h.listSessions(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
	}
}

func (h *Handler) sessionByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/v1/sessions/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusBadRequest, "invalid_request", "missing session id")
		return
	}

	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	claims, ok := requireScope(w, r, auth.ScopeTrainingRead, auth.ScopeTrainingWrite)
	if !ok {
		return
	}

	session, err := h.service.GetSession(r.Context(), id, claims.Subject)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, toSessionView(*session))
}

func (h *Handler) createSession(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireScope(w, r, auth.ScopeTrainingWrite)
	if !ok {
		return
	}

	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	var groupExternalID *string
	if claims.GroupExternalID != "" {
		groupExternalID = &claims.GroupExternalID
	}

	sets := make([]domain.CreateSetInput, 0, len(req.Sets))
	for _, set := range req.Sets {
		sets = append(sets, domain.CreateSetInput{
			ExerciseID: set.ExerciseID,
			SetNumber:  set.SetNumber,
			Reps:       set.Reps,
			Load:       set.Load,
			RestSec:    set.RestSec,
			RPE:        set.RPE,
			Notes:      set.Notes,
		})
	}

	session, err := h.service.CreateSession(r.Context(), domain.CreateSessionInput{
		ExternalUserID:  claims.Subject,
		WorkoutID:       req.WorkoutID,
		GroupExternalID: groupExternalID,
		Date:            req.Date,
		DurationSec:     req.DurationSec,
		Notes:           req.Notes,
		Sets:            sets,
	})
	if err != nil {
		if errors.Is(err, domain.ErrNoSets) {
			writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, toSessionView(*session))
}

func (h *Handler) listSessions(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireScope(w, r, auth.ScopeTrainingRead, auth.ScopeTrainingWrite)
	if !ok {
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	cursor, err := persistence.DecodeCursor(r.URL.Query().Get("cursor"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", "invalid cursor")
		return
	}

	sessions, next, err := h.service.ListSessionsByUser(r.Context(), claims.Subject, cursor, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	items := make([]SessionView, 0, len(sessions))
	for _, session := range sessions {
		items = append(items, toSessionView(session))
	}

	writeJSON(w, http.StatusOK, ListSessionsResponse{
		Items:      items,
		NextCursor: persistence.EncodeCursor(next),
	})
}

func (h *Handler) exercises(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.createExercise(w, r)
	case http.MethodGet:
		h.listExercises(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
	}
}

func (h *Handler) exerciseByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/exercises/")
	if rest == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "missing exercise id")
		return
	}

	if id, found := strings.CutSuffix(rest, "/progress"); found {
		h.exerciseProgress(w, r, id)
		return
	}
	if strings.Contains(rest, "/") {
		writeError(w, http.StatusNotFound, "not_found", "unknown resource")
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.getExercise(w, r, rest)
	case http.MethodPut:
		h.updateExercise(w, r, rest)
	case http.MethodDelete:
		h.deleteExercise(w, r, rest)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
	}
}

func (h *Handler) exerciseProgress(w http.ResponseWriter, r *http.Request, exerciseID string) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	claims, ok := requireScope(w, r, auth.ScopeTrainingRead, auth.ScopeTrainingWrite)
	if !ok {
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "validation_failed", "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	progress, err := h.service.GetExerciseProgress(r.Context(), claims.Subject, exerciseID, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, toProgressResponse(progress))
}

func (h *Handler) createExercise(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireScope(w, r, auth.ScopeTrainingWrite); !ok {
		return
	}

	var req ExerciseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	exercise, err := h.service.CreateExercise(r.Context(), req.toInput())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, toExerciseView(*exercise))
}

func (h *Handler) listExercises(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireScope(w, r, auth.ScopeTrainingRead, auth.ScopeTrainingWrite); !ok {
		return
	}

	exercises, err := h.service.ListExercises(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	items := make([]ExerciseView, 0, len(exercises))
	for _, exercise := range exercises {
		items = append(items, toExerciseView(exercise))
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *Handler) getExercise(w http.ResponseWriter, r *http.Request, id string) {
	if _, ok := requireScope(w, r, auth.ScopeTrainingRead, auth.ScopeTrainingWrite); !ok {
		return
	}

	exercise, err := h.service.GetExercise(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrExerciseNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "exercise not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, toExerciseView(*exercise))
}

func (h *Handler) updateExercise(w http.ResponseWriter, r *http.Request, id string) {
	if _, ok := requireScope(w, r, auth.ScopeTrainingWrite); !ok {
		return
	}

	var req ExerciseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	exercise, err := h.service.UpdateExercise(r.Context(), id, req.toInput())
	if err != nil {
		if errors.Is(err, domain.ErrExerciseNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "exercise not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, toExerciseView(*exercise))
}

func (h *Handler) deleteExercise(w http.ResponseWriter, r *http.Request, id string) {
	if _, ok := requireScope(w, r, auth.ScopeTrainingWrite); !ok {
		return
	}

	if err := h.service.DeleteExercise(r.Context(), id); err != nil {
		if errors.Is(err, domain.ErrExerciseNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "exercise not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) workouts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.createWorkout(w, r)
	case http.MethodGet:
		h.listWorkouts(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
	}
}

func (h *Handler) workoutByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/v1/workouts/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusBadRequest, "invalid_request", "missing workout id")
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.getWorkout(w, r, id)
	case http.MethodPut:
		h.updateWorkout(w, r, id)
	case http.MethodDelete:
		h.deleteWorkout(w, r, id)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
	}
}

func (h *Handler) createWorkout(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireScope(w, r, auth.ScopeTrainingWrite); !ok {
		return
	}

	var req WorkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	workout, err := h.service.CreateWorkout(r.Context(), domain.CreateWorkoutInput{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, toWorkoutView(*workout))
}

func (h *Handler) listWorkouts(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireScope(w, r, auth.ScopeTrainingRead, auth.ScopeTrainingWrite); !ok {
		return
	}

	workouts, err := h.service.ListWorkouts(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	items := make([]WorkoutView, 0, len(workouts))
	for _, workout := range workouts {
		items = append(items, toWorkoutView(workout))
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *Handler) getWorkout(w http.ResponseWriter, r *http.Request, id string) {
	if _, ok := requireScope(w, r, auth.ScopeTrainingRead, auth.ScopeTrainingWrite); !ok {
		return
	}

	workout, err := h.service.GetWorkout(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrWorkoutNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "workout not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, toWorkoutView(*workout))
}

func (h *Handler) updateWorkout(w http.ResponseWriter, r *http.Request, id string) {
	if _, ok := requireScope(w, r, auth.ScopeTrainingWrite); !ok {
		return
	}

	var req WorkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	workout, err := h.service.UpdateWorkout(r.Context(), id, domain.CreateWorkoutInput{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		if errors.Is(err, domain.ErrWorkoutNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "workout not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, toWorkoutView(*workout))
}

func (h *Handler) deleteWorkout(w http.ResponseWriter, r *http.Request, id string) {
	if _, ok := requireScope(w, r, auth.ScopeTrainingWrite); !ok {
		return
	}

	if err := h.service.DeleteWorkout(r.Context(), id); err != nil {
		if errors.Is(err, domain.ErrWorkoutNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "workout not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func requireScope(w http.ResponseWriter, r *http.Request, scopes ...string) (*auth.Claims, bool) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return nil, false
	}
	for _, scope := range scopes {
		if claims.HasScope(scope) {
			return claims, true
		}
	}
	writeError(w, http.StatusForbidden, "forbidden", "insufficient scope")
	return nil, false
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	payload := map[string]string{
		"type":   code,
		"detail": detail,
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
