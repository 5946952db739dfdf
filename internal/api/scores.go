package api

import (
	"errors"
	"net/http"

	"example.com/habitboard/internal/scoreboard"
)

// UpdateScoreRequest is the payload for POST /api/scores/update.
type UpdateScoreRequest struct {
	Sheet     string   `json:"sheet"`
	Date      string   `json:"date"`
	UserName  string   `json:"userName"`
	Score     *float64 `json:"score"`
	Operation string   `json:"operation"`
}

// DeleteScoreRequest is the payload for DELETE /api/scores/delete.
// UserData is the amount to subtract; when absent the cell is cleared.
type DeleteScoreRequest struct {
	Sheet    string   `json:"sheet"`
	Date     string   `json:"date"`
	UserName string   `json:"userName"`
	UserData *float64 `json:"userData"`
}

// SheetResponse wraps the raw values of a worksheet.
type SheetResponse struct {
	Sheet  string     `json:"sheet"`
	Values [][]string `json:"values"`
}

// UsersResponse lists the users of a worksheet.
type UsersResponse struct {
	Sheet string                   `json:"sheet"`
	Users []scoreboard.UserSummary `json:"users"`
}

func (h *Handler) sheetValues(w http.ResponseWriter, r *http.Request) {
	sheet := r.PathValue("sheetName")
	values, err := h.scores.SheetValues(r.Context(), sheet)
	if err != nil {
		h.scoreError(w, r, err)
		return
	}
	if values == nil {
		values = [][]string{}
	}
	writeJSON(w, http.StatusOK, SheetResponse{Sheet: sheet, Values: values})
}

func (h *Handler) updateScore(w http.ResponseWriter, r *http.Request) {
	var req UpdateScoreRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Score == nil {
		writeError(w, http.StatusBadRequest, "validation_failed", "score is required")
		return
	}

	result, err := h.scores.UpdateScore(r.Context(), scoreboard.UpdateInput{
		Sheet:     req.Sheet,
		Date:      req.Date,
		UserName:  req.UserName,
		Score:     *req.Score,
		Operation: scoreboard.Operation(req.Operation),
	})
	if err != nil {
		h.scoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) deleteScore(w http.ResponseWriter, r *http.Request) {
	var req DeleteScoreRequest
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := h.scores.DeleteScore(r.Context(), scoreboard.DeleteInput{
		Sheet:    req.Sheet,
		Date:     req.Date,
		UserName: req.UserName,
		Amount:   req.UserData,
	})
	if err != nil {
		h.scoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	sheet := r.PathValue("sheetName")
	users, err := h.scores.Users(r.Context(), sheet)
	if err != nil {
		h.scoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, UsersResponse{Sheet: sheet, Users: users})
}

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	detail, err := h.scores.User(r.Context(), r.URL.Query().Get("sheet"), r.PathValue("userName"))
	if err != nil {
		h.scoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (h *Handler) scoreError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, scoreboard.ErrValidation):
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
	case scoreboard.IsNotFound(err):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	default:
		h.internalError(w, r, err)
	}
}
