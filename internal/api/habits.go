package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"example.com/habitboard/internal/auth"
	"example.com/habitboard/internal/habits"
	"example.com/habitboard/internal/persistence"
)

// CreateHabitRequest is the payload for POST /api/habits.
type CreateHabitRequest struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Frequency   string  `json:"frequency"`
	Goal        float64 `json:"goal"`
	Unit        string  `json:"unit"`
}

// UpdateHabitRequest is the payload for PATCH /api/habits/{habitID}. Omitted fields are unchanged.
type UpdateHabitRequest struct {
	Name        *string  `json:"name"`
	Description *string  `json:"description"`
	Frequency   *string  `json:"frequency"`
	Goal        *float64 `json:"goal"`
	Unit        *string  `json:"unit"`
	Archived    *bool    `json:"archived"`
}

// LogEntryRequest is the payload for POST /api/habits/{habitID}/entries.
type LogEntryRequest struct {
	Value    *float64   `json:"value"`
	Note     string     `json:"note"`
	LoggedAt *time.Time `json:"loggedAt"`
}

// ListHabitsResponse packages list results.
type ListHabitsResponse struct {
	Items []habits.Habit `json:"items"`
}

// ListEntriesResponse packages a page of entries.
type ListEntriesResponse struct {
	Items      []habits.Entry `json:"items"`
	NextCursor string         `json:"nextCursor,omitempty"`
}

func userID(w http.ResponseWriter, r *http.Request) (string, bool) {
	claims, ok := auth.FromContext(r.Context())
	if !ok || claims.Subject == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return "", false
	}
	return claims.Subject, true
}

func (h *Handler) listHabits(w http.ResponseWriter, r *http.Request) {
	user, ok := userID(w, r)
	if !ok {
		return
	}
	includeArchived, _ := strconv.ParseBool(r.URL.Query().Get("includeArchived"))

	items, err := h.habits.ListHabits(r.Context(), user, includeArchived)
	if err != nil {
		h.habitError(w, r, err)
		return
	}
	if items == nil {
		items = []habits.Habit{}
	}
	writeJSON(w, http.StatusOK, ListHabitsResponse{Items: items})
}

func (h *Handler) createHabit(w http.ResponseWriter, r *http.Request) {
	user, ok := userID(w, r)
	if !ok {
		return
	}
	var req CreateHabitRequest
	if !decodeBody(w, r, &req) {
		return
	}

	habit, err := h.habits.CreateHabit(r.Context(), habits.CreateHabitInput{
		UserID:      user,
		Name:        req.Name,
		Description: req.Description,
		Frequency:   req.Frequency,
		Goal:        req.Goal,
		Unit:        req.Unit,
	})
	if err != nil {
		h.habitError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, habit)
}

func (h *Handler) getHabit(w http.ResponseWriter, r *http.Request) {
	user, ok := userID(w, r)
	if !ok {
		return
	}
	habit, err := h.habits.GetHabit(r.Context(), user, r.PathValue("habitID"))
	if err != nil {
		h.habitError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, habit)
}

func (h *Handler) updateHabit(w http.ResponseWriter, r *http.Request) {
	user, ok := userID(w, r)
	if !ok {
		return
	}
	var req UpdateHabitRequest
	if !decodeBody(w, r, &req) {
		return
	}

	habit, err := h.habits.UpdateHabit(r.Context(), user, r.PathValue("habitID"), habits.UpdateHabitInput{
		Name:        req.Name,
		Description: req.Description,
		Frequency:   req.Frequency,
		Goal:        req.Goal,
		Unit:        req.Unit,
		Archived:    req.Archived,
	})
	if err != nil {
		h.habitError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, habit)
}

func (h *Handler) deleteHabit(w http.ResponseWriter, r *http.Request) {
	user, ok := userID(w, r)
	if !ok {
		return
	}
	if err := h.habits.DeleteHabit(r.Context(), user, r.PathValue("habitID")); err != nil {
		h.habitError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) logEntry(w http.ResponseWriter, r *http.Request) {
	user, ok := userID(w, r)
	if !ok {
		return
	}
	var req LogEntryRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Value == nil {
		writeError(w, http.StatusBadRequest, "validation_failed", "value is required")
		return
	}

	in := habits.LogEntryInput{
		UserID:  user,
		HabitID: r.PathValue("habitID"),
		Value:   *req.Value,
		Note:    req.Note,
	}
	if req.LoggedAt != nil {
		in.LoggedAt = *req.LoggedAt
	}
	entry, err := h.habits.LogEntry(r.Context(), in)
	if err != nil {
		h.habitError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func (h *Handler) listEntries(w http.ResponseWriter, r *http.Request) {
	user, ok := userID(w, r)
	if !ok {
		return
	}

	limit := habits.DefaultPageSize
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

	items, next, err := h.habits.ListEntries(r.Context(), user, r.PathValue("habitID"), cursor, limit)
	if err != nil {
		h.habitError(w, r, err)
		return
	}
	if items == nil {
		items = []habits.Entry{}
	}
	writeJSON(w, http.StatusOK, ListEntriesResponse{
		Items:      items,
		NextCursor: persistence.EncodeCursor(next),
	})
}

func (h *Handler) deleteEntry(w http.ResponseWriter, r *http.Request) {
	user, ok := userID(w, r)
	if !ok {
		return
	}
	err := h.habits.DeleteEntry(r.Context(), user, r.PathValue("habitID"), r.PathValue("entryID"))
	if err != nil {
		h.habitError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) progress(w http.ResponseWriter, r *http.Request) {
	user, ok := userID(w, r)
	if !ok {
		return
	}

	var at time.Time
	if raw := r.URL.Query().Get("at"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "validation_failed", "at must be an RFC 3339 timestamp")
			return
		}
		at = parsed
	}

	progress, err := h.habits.Progress(r.Context(), user, r.PathValue("habitID"), at)
	if err != nil {
		h.habitError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, progress)
}

func (h *Handler) habitError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, habits.ErrValidation):
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
	case errors.Is(err, habits.ErrHabitNotFound), errors.Is(err, habits.ErrEntryNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, habits.ErrDuplicateHabit), errors.Is(err, habits.ErrHabitArchived):
		writeError(w, http.StatusConflict, "conflict", err.Error())
	default:
		h.internalError(w, r, err)
	}
}
