package routes

import (
	"net/http"

	"github.com/wkalt/ckpt/checkpoint"
	"github.com/wkalt/ckpt/util/httputil"
	"github.com/wkalt/ckpt/util/log"
)

// IndexSummary describes one served index.
type IndexSummary struct {
	Name        string               `json:"name"`
	Checkpoints int64                `json:"checkpoints"`
	NbEvents    int64                `json:"nbEvents"`
	TimeRange   checkpoint.TimeRange `json:"timeRange"`
}

func newIndexesHandler(indexes Indexes) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		names, err := indexes.Names(ctx)
		if err != nil {
			httputil.InternalServerError(ctx, w, "failed to list indexes: %s", err)
			return
		}
		log.Debugw(ctx, "indexes request", "count", len(names))
		summaries := make([]IndexSummary, 0, len(names))
		for _, name := range names {
			idx, err := indexes.Get(ctx, name)
			if err != nil {
				httputil.InternalServerError(ctx, w, "failed to open index %s: %s", name, err)
				return
			}
			summaries = append(summaries, IndexSummary{
				Name:        name,
				Checkpoints: idx.Size(),
				NbEvents:    idx.NbEvents(),
				TimeRange:   idx.TimeRange(),
			})
		}
		httputil.JSON(ctx, w, summaries)
	}
}
