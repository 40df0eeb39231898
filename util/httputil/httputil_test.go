package httputil_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wkalt/ckpt/util/httputil"
)

type detailedError struct{}

func (detailedError) Error() string  { return "bad seek" }
func (detailedError) Detail() string { return "expected time, rank or ratio" }

func TestErrorResponses(t *testing.T) {
	cases := []struct {
		assertion string
		respond   func(ctx context.Context, w http.ResponseWriter)
		code      int
		body      string
	}{
		{
			"bad request",
			func(ctx context.Context, w http.ResponseWriter) { httputil.BadRequest(ctx, w, "bad request") },
			http.StatusBadRequest,
			`{"error":"bad request"}`,
		},
		{
			"bad request with detail",
			func(ctx context.Context, w http.ResponseWriter) {
				httputil.BadRequest(ctx, w, "invalid: %w", fmt.Errorf("parse: %w", detailedError{}))
			},
			http.StatusBadRequest,
			`{"error":"invalid: parse: bad seek","detail":"expected time, rank or ratio"}`,
		},
		{
			"not found",
			func(ctx context.Context, w http.ResponseWriter) { httputil.NotFound(ctx, w, "no index %s", "x") },
			http.StatusNotFound,
			`{"error":"no index x"}`,
		},
		{
			"internal server error hides the cause",
			func(ctx context.Context, w http.ResponseWriter) {
				httputil.InternalServerError(ctx, w, "disk: %s", errors.New("on fire"))
			},
			http.StatusInternalServerError,
			`{"error":"internal server error"}`,
		},
	}
	for _, c := range cases {
		t.Run(c.assertion, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "http://example.com/foo", nil)
			recorder := httptest.NewRecorder()
			c.respond(req.Context(), recorder)
			require.Equal(t, c.code, recorder.Code)
			require.Equal(t, "application/json", recorder.Header().Get("Content-Type"))
			require.JSONEq(t, c.body, recorder.Body.String())
		})
	}
}

func TestJSON(t *testing.T) {
	recorder := httptest.NewRecorder()
	httputil.JSON(context.Background(), recorder, map[string]int{"rank": 5})
	require.Equal(t, http.StatusOK, recorder.Code)
	require.JSONEq(t, `{"rank":5}`, recorder.Body.String())
}
