package logging

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New("chatty")
	require.Error(t, err)

	logger, err := New("debug")
	require.NoError(t, err)
	require.NotNil(t, logger)
}

func TestMiddlewareLogsAndObservesStatus(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	logger := zap.New(core)

	var observedStatus int
	var observedRoute string
	observe := func(method, path string, status int, elapsed time.Duration) {
		observedStatus = status
		observedRoute = path
	}

	handler := Middleware(logger, observe)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/users/alice?sheet=Pushups", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusTeapot, observedStatus)
	require.Equal(t, "/api/users", observedRoute)
	require.Equal(t, 1, logs.Len())

	entry := logs.All()[0]
	require.Equal(t, "http request", entry.Message)
	require.Equal(t, int64(http.StatusTeapot), entry.ContextMap()["status"])
	require.Equal(t, "/api/users/alice", entry.ContextMap()["path"])
}

func TestMiddlewareDefaultsToOK(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)

	handler := Middleware(zap.New(core), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, int64(http.StatusOK), logs.All()[0].ContextMap()["status"])
	require.Equal(t, int64(2), logs.All()[0].ContextMap()["bytes"])
}

func TestMiddlewareRouteLabelBehindInnerMiddleware(t *testing.T) {
	var routes []string
	observe := func(method, path string, status int, elapsed time.Duration) {
		routes = append(routes, path)
	}

	type ctxKey struct{}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/habits/{habitID}/entries", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mux.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, "claims")))
	})
	handler := Middleware(zap.NewNop(), observe)(inner)

	for _, path := range []string{"/api/habits/1/entries", "/api/habits/2/entries", "/"} {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	require.Equal(t, []string{"/api/habits", "/api/habits", "/"}, routes)
}
