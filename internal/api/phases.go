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

// PhaseRequest is the POST /v1/phases payload.
type PhaseRequest struct {
	Name       string     `json:"name"`
	GoalID     *string    `json:"goal_id,omitempty"`
	StartDate  time.Time  `json:"start_date"`
	EndDate    *time.Time `json:"end_date,omitempty"`
	WorkoutIDs []string   `json:"workout_ids,omitempty"`
}

// Validate enforces payload constraints for phase creation.
func (r PhaseRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if r.StartDate.IsZero() {
		return fmt.Errorf("start_date is required")
	}
	if r.EndDate != nil && r.EndDate.Before(r.StartDate) {
		return fmt.Errorf("end_date cannot precede start_date")
	}
	return nil
}

// UpdatePhaseRequest is the PUT /v1/phases/{id} payload; absent fields keep
// their stored values, an empty workout_ids clears the association.
type UpdatePhaseRequest struct {
	Name       *string    `json:"name,omitempty"`
	GoalID     *string    `json:"goal_id,omitempty"`
	StartDate  *time.Time `json:"start_date,omitempty"`
	EndDate    *time.Time `json:"end_date,omitempty"`
	WorkoutIDs []string   `json:"workout_ids,omitempty"`
}

// Validate enforces payload constraints for phase updates.
func (r UpdatePhaseRequest) Validate() error {
	if r.Name != nil && strings.TrimSpace(*r.Name) == "" {
		return fmt.Errorf("name cannot be empty")
	}
	if r.StartDate != nil && r.EndDate != nil && r.EndDate.Before(*r.StartDate) {
		return fmt.Errorf("end_date cannot precede start_date")
	}
	return nil
}

// PhaseView renders a training phase.
type PhaseView struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	GoalID     *string    `json:"goal_id,omitempty"`
	StartDate  time.Time  `json:"start_date"`
	EndDate    *time.Time `json:"end_date,omitempty"`
	WorkoutIDs []string   `json:"workout_ids"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

func toPhaseView(phase domain.TrainingPhase) PhaseView {
	workoutIDs := phase.WorkoutIDs
	if workoutIDs == nil {
		workoutIDs = []string{}
	}
	return PhaseView{
		ID:         phase.ID,
		Name:       phase.Name,
		GoalID:     phase.GoalID,
		StartDate:  phase.StartDate,
		EndDate:    phase.EndDate,
		WorkoutIDs: workoutIDs,
		CreatedAt:  phase.CreatedAt,
		UpdatedAt:  phase.UpdatedAt,
	}
}

func (h *Handler) phases(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.createPhase(w, r)
	case http.MethodGet:
		h.listPhases(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
	}
}

func (h *Handler) phaseByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/phases/")
	if rest == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "missing phase id")
		return
	}
	if rest == "current" {
		h.listCurrentPhases(w, r)
		return
	}
	if strings.Contains(rest, "/") {
		writeError(w, http.StatusNotFound, "not_found", "unknown resource")
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.getPhase(w, r, rest)
	case http.MethodPut:
		h.updatePhase(w, r, rest)
	case http.MethodDelete:
		h.deletePhase(w, r, rest)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
	}
}

func (h *Handler) createPhase(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireScope(w, r, auth.ScopeTrainingWrite)
	if !ok {
		return
	}

	var req PhaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	phase, err := h.service.CreatePhase(r.Context(), domain.CreatePhaseInput{
		ExternalUserID: claims.Subject,
		Name:           req.Name,
		GoalID:         req.GoalID,
		StartDate:      req.StartDate,
		EndDate:        req.EndDate,
		WorkoutIDs:     req.WorkoutIDs,
	})
	if err != nil {
		if isPhaseRefError(err) {
			writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, toPhaseView(*phase))
}

func (h *Handler) listPhases(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireScope(w, r, auth.ScopeTrainingRead, auth.ScopeTrainingWrite)
	if !ok {
		return
	}

	phases, err := h.service.ListPhasesByUser(r.Context(), claims.Subject)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	writePhaseList(w, phases)
}

func (h *Handler) listCurrentPhases(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	claims, ok := requireScope(w, r, auth.ScopeTrainingRead, auth.ScopeTrainingWrite)
	if !ok {
		return
	}

	phases, err := h.service.ListCurrentPhases(r.Context(), claims.Subject)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	writePhaseList(w, phases)
}

func (h *Handler) getPhase(w http.ResponseWriter, r *http.Request, id string) {
	claims, ok := requireScope(w, r, auth.ScopeTrainingRead, auth.ScopeTrainingWrite)
	if !ok {
		return
	}

	phase, err := h.service.GetPhase(r.Context(), id, claims.Subject)
	if err != nil {
		if errors.Is(err, domain.ErrPhaseNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "training phase not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, toPhaseView(*phase))
}

func (h *Handler) updatePhase(w http.ResponseWriter, r *http.Request, id string) {
	claims, ok := requireScope(w, r, auth.ScopeTrainingWrite)
	if !ok {
		return
	}

	var req UpdatePhaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	phase, err := h.service.UpdatePhase(r.Context(), id, claims.Subject, domain.UpdatePhaseInput{
		Name:       req.Name,
		GoalID:     req.GoalID,
		StartDate:  req.StartDate,
		EndDate:    req.EndDate,
		WorkoutIDs: req.WorkoutIDs,
	})
	if err != nil {
		if errors.Is(err, domain.ErrPhaseNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "training phase not found")
			return
		}
		if isPhaseRefError(err) {
			writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, toPhaseView(*phase))
}

func (h *Handler) deletePhase(w http.ResponseWriter, r *http.Request, id string) {
	claims, ok := requireScope(w, r, auth.ScopeTrainingWrite)
	if !ok {
		return
	}

	if err := h.service.DeletePhase(r.Context(), id, claims.Subject); err != nil {
		if errors.Is(err, domain.ErrPhaseNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "training phase not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writePhaseList(w http.ResponseWriter, phases []domain.TrainingPhase) {
	items := make([]PhaseView, 0, len(phases))
	for _, phase := range phases {
		items = append(items, toPhaseView(phase))
	}
	writeJSON(w, http.StatusOK, items)
}

func isPhaseRefError(err error) bool {
	return errors.Is(err, domain.ErrPhaseGoalNotOwned) || errors.Is(err, domain.ErrPhaseWorkoutMissing)
}
