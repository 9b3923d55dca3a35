package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/homegrid/viewtrack/pkg/httputil"
	"github.com/homegrid/viewtrack/pkg/identity"
	"github.com/homegrid/viewtrack/pkg/observability"
	"github.com/homegrid/viewtrack/pkg/views"
)

// recordViewRequest is the optional POST body. A web client without the
// session header can supply the session here instead.
type recordViewRequest struct {
	SessionID string `json:"sessionId"`
	Referrer  string `json:"referrer"`
}

type recordViewResponse struct {
	Outcome  string     `json:"outcome"`
	ViewID   string     `json:"viewId,omitempty"`
	ViewedAt *time.Time `json:"viewedAt,omitempty"`
}

func (s *Server) recordView(w http.ResponseWriter, r *http.Request) {
	propertyID := mux.Vars(r)["id"]

	var body recordViewRequest
	if r.Body != nil && r.ContentLength != 0 {
		if !httputil.ParseJSONOrError(w, r, &body) {
			return
		}
	}

	viewer := identity.Resolve(r)
	if viewer == nil && body.SessionID != "" {
		viewer = &identity.Identity{SessionID: body.SessionID}
	}
	if viewer == nil {
		httputil.WriteValidationError(w, "identity", "an authenticated user or session ID is required")
		return
	}

	meta := views.MetadataFromRequest(r)
	if body.Referrer != "" {
		meta.Referrer = body.Referrer
	}

	result, err := s.recorder.RecordView(r.Context(), propertyID, viewer, meta)
	if err != nil {
		if vErr, ok := err.(*views.ValidationError); ok {
			httputil.WriteValidationError(w, vErr.Field, vErr.Message)
			return
		}
		observability.GetLogger(r.Context()).WithError(err).
			WithField("property_id", propertyID).Error("record view failed")
		httputil.WriteInternalError(w)
		return
	}

	switch result.Outcome {
	case views.OutcomeRecorded:
		httputil.WriteCreated(w, recordViewResponse{
			Outcome:  string(result.Outcome),
			ViewID:   result.ViewID,
			ViewedAt: &result.ViewedAt,
		})
	case views.OutcomeDuplicate:
		httputil.WriteSuccess(w, recordViewResponse{Outcome: string(result.Outcome)})
	default:
		httputil.WriteNotFound(w, "property not found")
	}
}

func (s *Server) getProperty(w http.ResponseWriter, r *http.Request) {
	propertyID := mux.Vars(r)["id"]

	prop, err := s.properties.GetSummary(r.Context(), propertyID)
	if err != nil {
		observability.GetLogger(r.Context()).WithError(err).
			WithField("property_id", propertyID).Error("property lookup failed")
		httputil.WriteInternalError(w)
		return
	}
	if prop == nil {
		httputil.WriteNotFound(w, "property not found")
		return
	}
	// Hidden listings are visible to their owner only; everyone else gets
	// the same 404 as a missing listing.
	if prop.Status.Hidden() {
		viewer := identity.Resolve(r)
		if viewer == nil || viewer.ActorID != prop.OwnerID {
			httputil.WriteNotFound(w, "property not found")
			return
		}
	}

	httputil.WriteSuccess(w, prop)
}
