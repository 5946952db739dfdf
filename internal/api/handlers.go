// Package api exposes the habitboard HTTP endpoints.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"example.com/habitboard/internal/habits"
	"example.com/habitboard/internal/scoreboard"
)

const maxBodyBytes = 1 << 20

// Pinger reports database reachability for the health endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Option configures optional behaviour for the Handler.
type Option func(*Handler)

// WithLogger overrides the logger used for unexpected errors.
func WithLogger(logger *zap.Logger) Option {
	return func(h *Handler) {
		h.logger = logger
	}
}

// WithDatabase reports the database in /api/health.
func WithDatabase(db Pinger) Option {
	return func(h *Handler) {
		h.db = db
	}
}

// WithSheetsStatus records which Google settings are present.
func WithSheetsStatus(credentials, spreadsheet bool) Option {
	return func(h *Handler) {
		h.sheetsConfigured = credentials
		h.spreadsheetConfigured = spreadsheet
	}
}

// Handler coordinates HTTP requests with the scoreboard and habit services.
type Handler struct {
	scores *scoreboard.Service
	habits *habits.Service
	db     Pinger
	logger *zap.Logger
	now    func() time.Time

	sheetsConfigured      bool
	spreadsheetConfigured bool
}

// NewHandler builds a Handler.
func NewHandler(scores *scoreboard.Service, habitService *habits.Service, opts ...Option) *Handler {
	h := &Handler{
		scores: scores,
		habits: habitService,
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/health", h.health)
	mux.HandleFunc("GET /healthz", healthz)

	mux.HandleFunc("GET /api/sheets/{sheetName}", h.sheetValues)
	mux.HandleFunc("POST /api/scores/update", h.updateScore)
	mux.HandleFunc("DELETE /api/scores/delete", h.deleteScore)
	mux.HandleFunc("GET /api/users/all/sheets/{sheetName}", h.listUsers)
	mux.HandleFunc("GET /api/users/{userName}", h.getUser)

	mux.HandleFunc("GET /api/habits", h.listHabits)
	mux.HandleFunc("POST /api/habits", h.createHabit)
	mux.HandleFunc("GET /api/habits/{habitID}", h.getHabit)
	mux.HandleFunc("PATCH /api/habits/{habitID}", h.updateHabit)
	mux.HandleFunc("DELETE /api/habits/{habitID}", h.deleteHabit)
	mux.HandleFunc("GET /api/habits/{habitID}/entries", h.listEntries)
	mux.HandleFunc("POST /api/habits/{habitID}/entries", h.logEntry)
	mux.HandleFunc("DELETE /api/habits/{habitID}/entries/{entryID}", h.deleteEntry)
	mux.HandleFunc("GET /api/habits/{habitID}/progress", h.progress)
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// HealthResponse is the body of GET /api/health.
type HealthResponse struct {
	Status                string    `json:"status"`
	SheetsConfigured      bool      `json:"sheetsConfigured"`
	SpreadsheetConfigured bool      `json:"spreadsheetConfigured"`
	Database              string    `json:"database"`
	Time                  time.Time `json:"time"`
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	database := "disabled"
	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		database = "ok"
		if err := h.db.Ping(ctx); err != nil {
			h.logger.Warn("database ping failed", zap.Error(err))
			database = "unavailable"
		}
	}
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:                "ok",
		SheetsConfigured:      h.sheetsConfigured,
		SpreadsheetConfigured: h.spreadsheetConfigured,
		Database:              database,
		Time:                  h.now().UTC(),
	})
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return false
	}
	return true
}

func (h *Handler) internalError(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.Error("request failed",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Error(err),
	)
	writeError(w, http.StatusInternalServerError, "server_error", "internal server error")
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
