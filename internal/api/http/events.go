package http

import (
	"net/http"
	"strconv"

	syncx "github.com/mind-engage/examportal/internal/sync"
)

// EventsHandler pages through the event log: ?after=<seq>&limit=<n>.
func EventsHandler(events *syncx.EventRepo) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		after, err := strconv.ParseInt(q.Get("after"), 10, 64)
		if err != nil && q.Get("after") != "" {
			writeError(w, http.StatusBadRequest, "validation", "after must be an integer")
			return
		}
		limit, _ := strconv.Atoi(q.Get("limit"))
		if limit > 1000 {
			limit = 1000
		}
		out, err := events.Since(r.Context(), after, limit)
		if err != nil {
			fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}
