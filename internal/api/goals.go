package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"example.com/training/internal/auth"
	"example.com/training/internal/domain"
)

// GoalRequest is the POST /v1/goals payload.
type GoalRequest struct {
	Name         string   `json:"name"`
	Type         string   `json:"type"`
	TargetValue  float64  `json:"target_value"`
	CurrentValue *float64 `json:"current_value,omitempty"`
}

var goalTypes = map[string]struct{}{
	domain.GoalTypeReps:  {},
	domain.GoalTypeLoad:  {},
	domain.GoalTypeTime:  {},
	domain.GoalTypeSkill: {},
}

var goalStatuses = map[string]struct{}{
	domain.GoalStatusActive:    {},
	domain.GoalStatusCompleted: {},
	domain.GoalStatusPaused:    {},
	domain.GoalStatusAbandoned: {},
}

// Validate enforces payload constraints for goal creation.
func (r GoalRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if _, ok := goalTypes[r.Type]; !ok {
		return fmt.Errorf("type must be one of reps, load, time, skill")
	}
	if r.TargetValue < 0 {
		return fmt.Errorf("target_value cannot be negative")
	}
	if r.CurrentValue != nil && *r.CurrentValue < 0 {
		return fmt.Errorf("current_value cannot be negative")
	}
	return nil
}

// UpdateGoalRequest is the PUT /v1/goals/{id} payload; absent fields keep
// their stored values.
type UpdateGoalRequest struct {
	Name         *string  `json:"name,omitempty"`
	TargetValue  *float64 `json:"target_value,omitempty"`
	CurrentValue *float64 `json:"current_value,omitempty"`
	Status       *string  `json:"status,omitempty"`
}

// Validate enforces payload constraints for goal updates.
func (r UpdateGoalRequest) Validate() error {
	if r.Name != nil && strings.TrimSpace(*r.Name) == "" {
		return fmt.Errorf("name cannot be empty")
	}
	if r.TargetValue != nil && *r.TargetValue < 0 {
		return fmt.Errorf("target_value cannot be negative")
	}
	if r.CurrentValue != nil && *r.CurrentValue < 0 {
		return fmt.Errorf("current_value cannot be negative")
	}
	if r.Status != nil {
		if _, ok := goalStatuses[*r.Status]; !ok {
			return fmt.Errorf("status must be one of active, completed, paused, abandoned")
		}
	}
	return nil
}

// GoalProgressRequest is the PUT /v1/goals/{id}/progress payload.
type GoalProgressRequest struct {
	CurrentValue float64 `json:"current_value"`
}

// Validate enforces payload constraints for progress updates.
func (r GoalProgressRequest) Validate() error {
	if r.CurrentValue < 0 {
		return fmt.Errorf("current_value cannot be negative")
	}
	return nil
}

// GoalView renders a goal.
type GoalView struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Type         string    `json:"type"`
	TargetValue  float64   `json:"target_value"`
	CurrentValue float64   `json:"current_value"`
	Progress     float64   `json:"progress"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func toGoalView(goal domain.Goal) GoalView {
	return GoalView{
		ID:           goal.ID,
		Name:         goal.Name,
		Type:         goal.Type,
		TargetValue:  goal.TargetValue,
		CurrentValue: goal.CurrentValue,
		Progress:     goal.Progress,
		Status:       goal.Status,
		CreatedAt:    goal.CreatedAt,
		UpdatedAt:    goal.UpdatedAt,
	}
}

func (h *Handler) goals(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.createGoal(w, r)
	case http.MethodGet:
		h.listGoals(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
	}
}

func (h *Handler) goalByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/goals/")
	if rest == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "missing goal id")
		return
	}

	if id, found := strings.CutSuffix(rest, "/progress"); found {
		h.updateGoalProgress(w, r, id)
		return
	}
	if strings.Contains(rest, "/") {
		writeError(w, http.StatusNotFound, "not_found", "unknown resource")
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.getGoal(w, r, rest)
	case http.MethodPut:
		h.updateGoal(w, r, rest)
	case http.MethodDelete:
		h.deleteGoal(w, r, rest)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
	}
}

func (h *Handler) createGoal(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireScope(w, r, auth.ScopeTrainingWrite)
	if !ok {
		return
	}

	var req GoalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	currentValue := 0.0
	if req.CurrentValue != nil {
		currentValue = *req.CurrentValue
	}

	goal, err := h.service.CreateGoal(r.Context(), domain.CreateGoalInput{
		ExternalUserID: claims.Subject,
		Name:           req.Name,
		Type:           req.Type,
		TargetValue:    req.TargetValue,
		CurrentValue:   currentValue,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, toGoalView(*goal))
}

func (h *Handler) listGoals(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireScope(w, r, auth.ScopeTrainingRead, auth.ScopeTrainingWrite)
	if !ok {
		return
	}

	goals, err := h.service.ListGoalsByUser(r.Context(), claims.Subject)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	items := make([]GoalView, 0, len(goals))
	for _, goal := range goals {
		items = append(items, toGoalView(goal))
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *Handler) getGoal(w http.ResponseWriter, r *http.Request, id string) {
	claims, ok := requireScope(w, r, auth.ScopeTrainingRead, auth.ScopeTrainingWrite)
	if !ok {
		return
	}

	goal, err := h.service.GetGoal(r.Context(), id, claims.Subject)
	if err != nil {
		if errors.Is(err, domain.ErrGoalNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "goal not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, toGoalView(*goal))
}

func (h *Handler) updateGoal(w http.ResponseWriter, r *http.Request, id string) {
	claims, ok := requireScope(w, r, auth.ScopeTrainingWrite)
	if !ok {
		return
	}

	var req UpdateGoalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	goal, err := h.service.UpdateGoal(r.Context(), id, claims.Subject, domain.UpdateGoalInput{
		Name:         req.Name,
		TargetValue:  req.TargetValue,
		CurrentValue: req.CurrentValue,
		Status:       req.Status,
	})
	if err != nil {
		if errors.Is(err, domain.ErrGoalNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "goal not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, toGoalView(*goal))
}

func (h *Handler) updateGoalProgress(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPut {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	claims, ok := requireScope(w, r, auth.ScopeTrainingWrite)
	if !ok {
		return
	}

	var req GoalProgressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	goal, err := h.service.UpdateGoalProgress(r.Context(), id, claims.Subject, req.CurrentValue)
	if err != nil {
		if errors.Is(err, domain.ErrGoalNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "goal not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, toGoalView(*goal))
}

func (h *Handler) deleteGoal(w http.ResponseWriter, r *http.Request, id string) {
	claims, ok := requireScope(w, r, auth.ScopeTrainingWrite)
	if !ok {
		return
	}

	if err := h.service.DeleteGoal(r.Context(), id, claims.Subject); err != nil {
		if errors.Is(err, domain.ErrGoalNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "goal not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
