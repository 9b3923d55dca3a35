package api

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/homegrid/viewtrack/pkg/analytics"
	"github.com/homegrid/viewtrack/pkg/contextkeys"
	"github.com/homegrid/viewtrack/pkg/httputil"
	"github.com/homegrid/viewtrack/pkg/observability"
	"github.com/homegrid/viewtrack/pkg/property"
)

func (s *Server) propertyAnalytics(w http.ResponseWriter, r *http.Request) {
	propertyID := mux.Vars(r)["id"]
	if _, err := uuid.Parse(propertyID); err != nil {
		httputil.WriteValidationError(w, "propertyId", "must be a valid UUID")
		return
	}

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

	actorID := contextkeys.GetActorID(r.Context())
	actorRole := contextkeys.GetActorRole(r.Context())
	if !property.CanViewAnalytics(prop, actorID, actorRole) {
		httputil.WriteForbidden(w, "analytics are restricted to the property owner")
		return
	}

	query, ok := parseAnalyticsQuery(w, r)
	if !ok {
		return
	}
	if _, err := analytics.ResolveWindow(query, time.Now()); err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	report, err := s.analytics.Analyze(r.Context(), propertyID, query)
	if err != nil {
		observability.GetLogger(r.Context()).WithError(err).
			WithField("property_id", propertyID).Error("analytics query failed")
		httputil.WriteInternalError(w)
		return
	}

	httputil.WriteSuccess(w, report)
}

// parseAnalyticsQuery reads period/start/end query parameters. Timestamps
// are RFC 3339; an explicit range needs both bounds.
func parseAnalyticsQuery(w http.ResponseWriter, r *http.Request) (analytics.Query, bool) {
	q := analytics.Query{
		Period: httputil.ParseQueryString(r, "period", analytics.PeriodMonth),
	}

	startStr := r.URL.Query().Get("start")
	endStr := r.URL.Query().Get("end")
	if startStr == "" && endStr == "" {
		return q, true
	}
	if startStr == "" || endStr == "" {
		httputil.WriteValidationError(w, "range", "start and end must be supplied together")
		return q, false
	}

	start, err := time.Parse(time.RFC3339, startStr)
	if err != nil {
		httputil.WriteValidationError(w, "start", "must be an RFC 3339 timestamp")
		return q, false
	}
	end, err := time.Parse(time.RFC3339, endStr)
	if err != nil {
		httputil.WriteValidationError(w, "end", "must be an RFC 3339 timestamp")
		return q, false
	}
	q.Start, q.End = &start, &end
	return q, true
}

func (s *Server) analyticsOverview(w http.ResponseWriter, r *http.Request) {
	ownerID := contextkeys.GetActorID(r.Context())

	overview, err := s.aggregator.Overview(r.Context(), ownerID)
	if err != nil {
		observability.GetLogger(r.Context()).WithError(err).
			WithField("owner_id", ownerID).Error("overview query failed")
		httputil.WriteInternalError(w)
		return
	}

	httputil.WriteSuccess(w, overview)
}

func (s *Server) trending(w http.ResponseWriter, r *http.Request) {
	query := analytics.RankQuery{
		Period:       httputil.ParseQueryString(r, "period", analytics.PeriodWeek),
		Country:      httputil.ParseQueryString(r, "country", ""),
		PropertyType: httputil.ParseQueryString(r, "propertyType", ""),
		ListingType:  httputil.ParseQueryString(r, "listingType", ""),
		Page:         httputil.ParseQueryInt(r, "page", 1),
		PageSize:     httputil.ParseQueryInt(r, "pageSize", 20),
	}

	if _, err := analytics.NamedRange(query.Period, time.Now()); err != nil {
		httputil.WriteValidationError(w, "period", "must be one of day, week, month, year")
		return
	}

	page, err := s.ranker.Rank(r.Context(), query)
	if err != nil {
		observability.GetLogger(r.Context()).WithError(err).Error("trending query failed")
		httputil.WriteInternalError(w)
		return
	}

	httputil.WriteSuccess(w, page)
}
