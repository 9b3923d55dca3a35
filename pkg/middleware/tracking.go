package middleware

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/homegrid/viewtrack/pkg/views"
)

// PassiveTracking emits a view event as a side effect of successful listing
// detail reads. The response is written first; tracking runs afterwards and
// can never delay or fail the request it piggybacks on.
//
// Attach it only to the single-listing GET route. It no-ops for anything
// but a 200 GET with a route {id}.
func PassiveTracking(recorder *views.Recorder) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				next.ServeHTTP(w, r)
				return
			}

			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			if rec.status != http.StatusOK {
				return
			}
			propertyID, ok := mux.Vars(r)["id"]
			if !ok {
				return
			}
			recorder.TrackPassively(r, propertyID)
		})
	}
}
