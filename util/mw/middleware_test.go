package mw_test

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"github.com/wkalt/ckpt/util/log"
	"github.com/wkalt/ckpt/util/mw"
)

func TestWithRequestID(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)
	buf := &bytes.Buffer{}
	log.Configure(buf, slog.LevelInfo)

	ctx := context.Background()
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Infof(r.Context(), "test")
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "/", nil)
	require.NoError(t, err)
	recorder := httptest.NewRecorder()
	middleware := mw.WithRequestID(handler)
	middleware.ServeHTTP(recorder, req)
	require.Contains(t, buf.String(), "request_id")
}

func TestWithCORSAllowedOrigins(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	cases := []struct {
		assertion string
		method    string
		origin    string
		code      int
		allowed   string
	}{
		{"allowed origin", http.MethodGet, "http://localhost:5173", http.StatusTeapot, "http://localhost:5173"},
		{"disallowed origin", http.MethodGet, "http://evil.example", http.StatusTeapot, ""},
		{"preflight", http.MethodOptions, "http://localhost:5173", http.StatusOK, "http://localhost:5173"},
	}
	for _, c := range cases {
		t.Run(c.assertion, func(t *testing.T) {
			req := httptest.NewRequest(c.method, "/", nil)
			req.Header.Set("Origin", c.origin)
			recorder := httptest.NewRecorder()
			mw.WithCORSAllowedOrigins([]string{"http://localhost:5173"})(handler).ServeHTTP(recorder, req)
			require.Equal(t, c.code, recorder.Code)
			require.Equal(t, c.allowed, recorder.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}

func TestWithRequestDuration(t *testing.T) {
	hist := prometheus.NewHistogramVec(prometheus.HistogramOpts{Name: "test_duration_seconds"}, []string{"route"})
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	h := mw.WithRequestDuration(hist, "seek")(handler)
	for i := 0; i < 3; i++ {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	}
	require.Equal(t, 1, testutil.CollectAndCount(hist))
}
