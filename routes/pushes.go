package routes

import (
	"net/http"

	"github.com/wkalt/ckpt/catalog"
	"github.com/wkalt/ckpt/util/httputil"
)

func newPushesHandler(cat catalog.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		pattern := r.URL.Query().Get("pattern")
		entries, err := cat.List(ctx, pattern)
		if err != nil {
			httputil.BadRequest(ctx, w, "failed to list pushes: %w", err)
			return
		}
		httputil.JSON(ctx, w, entries)
	}
}
