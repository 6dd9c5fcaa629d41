package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/couchcryptid/crisis-dashboard/internal/auth"
	"github.com/couchcryptid/crisis-dashboard/internal/domain"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 64 << 10

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	q, err := parseDashboardQuery(r)
	if err != nil {
		s.writeError(w, r, err, http.StatusBadGateway)
		return
	}
	summary, err := s.views.Summary(r.Context(), q, s.help)
	if err != nil {
		s.writeError(w, r, err, http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// dashboard parses the query and builds the views, writing the error response
// itself on failure.
func (s *Server) dashboard(w http.ResponseWriter, r *http.Request) (domain.Dashboard, bool) {
	q, err := parseDashboardQuery(r)
	if err == nil {
		var d domain.Dashboard
		d, err = s.views.Dashboard(r.Context(), q)
		if err == nil {
			return d, true
		}
	}
	s.writeError(w, r, err, http.StatusBadGateway)
	return domain.Dashboard{}, false
}

func (s *Server) handleMap(w http.ResponseWriter, r *http.Request) {
	d, ok := s.dashboard(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"clusters":      d.Clusters,
		"heat":          d.Heat,
		"top_locations": d.TopLocations,
	})
}

func (s *Server) handleTop(w http.ResponseWriter, r *http.Request) {
	if d, ok := s.dashboard(w, r); ok {
		writeJSON(w, http.StatusOK, d.Ranked)
	}
}

func (s *Server) handleTrends(w http.ResponseWriter, r *http.Request) {
	if d, ok := s.dashboard(w, r); ok {
		writeJSON(w, http.StatusOK, d.Trends)
	}
}

func (s *Server) handleBreakdown(w http.ResponseWriter, r *http.Request) {
	if d, ok := s.dashboard(w, r); ok {
		writeJSON(w, http.StatusOK, d.Breakdown)
	}
}

func (s *Server) handleSeverity(w http.ResponseWriter, r *http.Request) {
	if d, ok := s.dashboard(w, r); ok {
		writeJSON(w, http.StatusOK, d.Severity)
	}
}

func (s *Server) handleKPIs(w http.ResponseWriter, r *http.Request) {
	if d, ok := s.dashboard(w, r); ok {
		writeJSON(w, http.StatusOK, d.KPIs)
	}
}

func (s *Server) handleSubmitHelp(w http.ResponseWriter, r *http.Request) {
	var sub domain.HelpSubmission
	if err := decodeJSON(w, r, &sub); err != nil {
		s.writeError(w, r, err, http.StatusBadRequest)
		return
	}
	req, err := s.help.Submit(r.Context(), sub)
	if err != nil {
		s.writeError(w, r, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, req)
}

func (s *Server) handleListHelp(w http.ResponseWriter, r *http.Request) {
	f, err := parseHelpFilter(r)
	if err != nil {
		s.writeError(w, r, err, http.StatusBadRequest)
		return
	}
	reqs, err := s.help.List(r.Context(), f)
	if err != nil {
		s.writeError(w, r, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, reqs)
}

func (s *Server) handleHelpStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.help.Stats(r.Context())
	if err != nil {
		s.writeError(w, r, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleUpdateHelp(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Status string `json:"status"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		s.writeError(w, r, err, http.StatusBadRequest)
		return
	}
	req, err := s.help.UpdateStatus(r.Context(), chi.URLParam(r, "id"), body.Status)
	if err != nil {
		s.writeError(w, r, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

type loginResponse struct {
	Username  string     `json:"username"`
	LastLogin *time.Time `json:"last_login,omitempty"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		s.writeError(w, r, err, http.StatusBadRequest)
		return
	}
	cred, err := s.auth.Login(r.Context(), body.Username, body.Password)
	if err != nil {
		s.writeError(w, r, err, http.StatusInternalServerError)
		return
	}
	resp := loginResponse{Username: cred.Username}
	if !cred.LastLogin.IsZero() {
		resp.LastLogin = &cred.LastLogin
	}
	writeJSON(w, http.StatusOK, resp)
}

// writeError maps domain errors to status codes. Errors the domain does not
// classify get fallback.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error, fallback int) {
	status := fallback
	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, auth.ErrInvalidCredentials):
		status = http.StatusUnauthorized
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return &domain.ValidationError{Field: "body", Message: "malformed JSON: " + err.Error()}
	}
	return nil
}

// parseDashboardQuery reads the chart filters:
//
//	page          0-based trend page
//	types         comma-separated disaster types
//	from, to      inclusive calendar dates, YYYY-MM-DD
//	min_severity  minimum severity score
func parseDashboardQuery(r *http.Request) (domain.DashboardQuery, error) {
	v := r.URL.Query()
	var q domain.DashboardQuery

	if s := v.Get("page"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return q, &domain.ValidationError{Field: "page", Message: "must be a non-negative integer"}
		}
		q.Page = n
	}

	for _, name := range strings.Split(v.Get("types"), ",") {
		if strings.TrimSpace(name) == "" {
			continue
		}
		t, ok := domain.ParseDisasterType(name)
		if !ok {
			return q, &domain.ValidationError{Field: "types", Message: "unknown disaster type " + strconv.Quote(name)}
		}
		q.Types = append(q.Types, t)
	}

	var err error
	if q.From, err = parseDate(v.Get("from"), "from"); err != nil {
		return q, err
	}
	if q.To, err = parseDate(v.Get("to"), "to"); err != nil {
		return q, err
	}
	if !q.From.IsZero() && !q.To.IsZero() && q.To.Before(q.From) {
		return q, &domain.ValidationError{Field: "to", Message: "must not be before from"}
	}

	if s := v.Get("min_severity"); s != "" {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || f < 0 || f > 10 {
			return q, &domain.ValidationError{Field: "min_severity", Message: "must be a number between 0 and 10"}
		}
		q.MinSeverity = f
	}
	return q, nil
}

func parseDate(s, field string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, &domain.ValidationError{Field: field, Message: "must be a YYYY-MM-DD date"}
	}
	return t, nil
}

func parseHelpFilter(r *http.Request) (domain.HelpFilter, error) {
	v := r.URL.Query()
	var f domain.HelpFilter

	if s := v.Get("status"); s != "" && s != "all" {
		status, ok := domain.ParseHelpStatus(s)
		if !ok {
			return f, &domain.ValidationError{Field: "status", Message: "unknown status " + strconv.Quote(s)}
		}
		f.Status = status
	}
	if s := v.Get("type"); s != "" && s != "all" {
		t, ok := domain.ParseEmergencyType(s)
		if !ok {
			return f, &domain.ValidationError{Field: "type", Message: "unknown emergency type " + strconv.Quote(s)}
		}
		f.EmergencyType = t
	}
	tf, ok := domain.ParseTimeFrame(v.Get("timeframe"))
	if !ok {
		return f, &domain.ValidationError{Field: "timeframe", Message: "unknown time frame " + strconv.Quote(v.Get("timeframe"))}
	}
	f.TimeFrame = tf
	return f, nil
}
