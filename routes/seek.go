package routes

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/wkalt/ckpt/seek"
	"github.com/wkalt/ckpt/util/httputil"
	"github.com/wkalt/ckpt/util/log"
)

// SeekResponse is the position a reader should resume from. An empty
// location is the start of the trace.
type SeekResponse struct {
	Index    string `json:"index"`
	Request  string `json:"request"`
	Location string `json:"location,omitempty"`
	Rank     int64  `json:"rank"`
}

func newSeekHandler(indexes Indexes, defaultInterval int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		name := mux.Vars(r)["name"]
		query := r.URL.Query()
		q := query.Get("q")
		if q == "" {
			httputil.BadRequest(ctx, w, "missing seek request")
			return
		}
		interval := defaultInterval
		if s := query.Get("interval"); s != "" {
			parsed, err := strconv.ParseInt(s, 10, 64)
			if err != nil || parsed < 1 {
				httputil.BadRequest(ctx, w, "invalid interval: %s", s)
				return
			}
			interval = parsed
		}
		req, err := seek.Parse(q)
		if err != nil {
			httputil.BadRequest(ctx, w, "failed to parse seek request: %w", err)
			return
		}
		idx, err := indexes.Get(ctx, name)
		if err != nil {
			if errors.Is(err, ErrIndexNotFound) {
				httputil.NotFound(ctx, w, "index %s not found", name)
				return
			}
			httputil.InternalServerError(ctx, w, "failed to open index %s: %s", name, err)
			return
		}
		pos, err := seek.NewSeeker(idx, interval).Seek(ctx, req)
		if err != nil {
			httputil.BadRequest(ctx, w, "invalid seek request: %w", err)
			return
		}
		log.Infow(ctx, "seek request", "index", name, "request", req.String(), "position", pos)
		resp := SeekResponse{Index: name, Request: req.String(), Rank: pos.Rank}
		if pos.Location != nil {
			resp.Location = pos.Location.String()
		}
		httputil.JSON(ctx, w, resp)
	}
}
