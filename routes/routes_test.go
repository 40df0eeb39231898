package routes_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wkalt/ckpt/catalog"
	"github.com/wkalt/ckpt/checkpoint"
	"github.com/wkalt/ckpt/index"
	"github.com/wkalt/ckpt/routes"
	"github.com/wkalt/ckpt/service"
)

func makeTestRoutes(t *testing.T) string {
	t.Helper()
	ctx := context.Background()
	dir := t.TempDir()
	tt := checkpoint.MustTraceType("long", checkpoint.LongCodec{})
	idx, err := index.NewBTreeIndex(ctx, filepath.Join(dir, "traces", "kernel"), tt)
	require.NoError(t, err)
	for _, cp := range checkpoint.LongSequence(1000, 10) {
		require.NoError(t, idx.Insert(ctx, cp))
	}
	idx.SetNbEvents(ctx, 100000)
	idx.SetTimeRange(ctx, checkpoint.NewTimeRange(checkpoint.Timestamp{}, checkpoint.Timestamp{Value: 9990}))
	require.NoError(t, idx.Dispose(ctx))

	cat := catalog.NewMemCatalog()
	require.NoError(t, cat.Put(ctx, catalog.Entry{
		Name: "traces/kernel", ID: "a", Prefix: "traces/kernel/a", PushedAt: time.Unix(0, 0).UTC(),
	}))

	registry := service.NewRegistry(dir, tt)
	t.Cleanup(func() { require.NoError(t, registry.Close(ctx)) })
	srv := httptest.NewServer(routes.MakeRoutes(routes.Config{
		Indexes:  registry,
		Catalog:  cat,
		Interval: 100,
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

func get(t *testing.T, u string) (int, []byte) {
	t.Helper()
	resp, err := http.Get(u) // nolint:noctx
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, body
}

func TestSeekHandler(t *testing.T) {
	base := makeTestRoutes(t)
	cases := []struct {
		assertion string
		index     string
		query     string
		interval  string
		code      int
		location  string
		rank      int64
	}{
		{"time", "traces/kernel", "time 505", "", http.StatusOK, "50000", 5000},
		{"rank", "traces/kernel", "rank 1234", "", http.StatusOK, "12000", 1200},
		{"custom interval", "traces/kernel", "rank 1234", "10", http.StatusOK, "123000", 1230},
		{"ratio", "traces/kernel", "ratio 0.5", "", http.StatusOK, "500000", 50000},
		{"before the first checkpoint", "traces/kernel", "time -5", "", http.StatusOK, "0", 0},
		{"missing request", "traces/kernel", "", "", http.StatusBadRequest, "", 0},
		{"malformed request", "traces/kernel", "walk 5", "", http.StatusBadRequest, "", 0},
		{"invalid interval", "traces/kernel", "rank 5", "zero", http.StatusBadRequest, "", 0},
		{"missing index", "traces/ust", "rank 5", "", http.StatusNotFound, "", 0},
	}
	for _, c := range cases {
		t.Run(c.assertion, func(t *testing.T) {
			params := url.Values{}
			if c.query != "" {
				params.Set("q", c.query)
			}
			if c.interval != "" {
				params.Set("interval", c.interval)
			}
			code, body := get(t, base+"/indexes/"+c.index+"/seek?"+params.Encode())
			require.Equal(t, c.code, code, string(body))
			if c.code != http.StatusOK {
				return
			}
			resp := routes.SeekResponse{}
			require.NoError(t, json.Unmarshal(body, &resp))
			assert.Equal(t, c.index, resp.Index)
			assert.Equal(t, c.location, resp.Location)
			assert.Equal(t, c.rank, resp.Rank)
		})
	}
}

func TestIndexesHandler(t *testing.T) {
	base := makeTestRoutes(t)
	code, body := get(t, base+"/indexes")
	require.Equal(t, http.StatusOK, code)
	summaries := []routes.IndexSummary{}
	require.NoError(t, json.Unmarshal(body, &summaries))
	require.Len(t, summaries, 1)
	assert.Equal(t, "traces/kernel", summaries[0].Name)
	assert.Equal(t, int64(1000), summaries[0].Checkpoints)
	assert.Equal(t, int64(100000), summaries[0].NbEvents)
	assert.Equal(t, int64(9990), summaries[0].TimeRange.End.Value)
}

func TestPushesHandler(t *testing.T) {
	base := makeTestRoutes(t)
	cases := []struct {
		assertion string
		pattern   string
		code      int
		count     int
	}{
		{"all", "", http.StatusOK, 1},
		{"matching", "traces/**", http.StatusOK, 1},
		{"not matching", "other/*", http.StatusOK, 0},
		{"invalid pattern", "[", http.StatusBadRequest, 0},
	}
	for _, c := range cases {
		t.Run(c.assertion, func(t *testing.T) {
			code, body := get(t, base+"/pushes?"+url.Values{"pattern": {c.pattern}}.Encode())
			require.Equal(t, c.code, code)
			if code != http.StatusOK {
				return
			}
			entries := []catalog.Entry{}
			require.NoError(t, json.Unmarshal(body, &entries))
			assert.Len(t, entries, c.count)
		})
	}
}

func TestMetricsHandler(t *testing.T) {
	base := makeTestRoutes(t)
	code, _ := get(t, base+"/indexes/traces/kernel/seek?"+url.Values{"q": {"time 5"}}.Encode())
	require.Equal(t, http.StatusOK, code)
	code, body := get(t, base+"/metrics")
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(body), "ckpt_http_request_duration_seconds")
	assert.Contains(t, string(body), "ckpt_btree_node_cache_hits_total")
}
