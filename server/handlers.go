package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"ytinsight"
	"ytinsight/insight"
	ythttp "ytinsight/http"
	"ytinsight/storage"
)

type criterionJSON struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

type searchResponse struct {
	Keyword        string            `json:"keyword"`
	Criterion      string            `json:"criterion"`
	CriterionLabel string            `json:"criterion_label"`
	Count          int               `json:"count"`
	Results        []ytinsight.Entry `json:"results"`
}

type keyStatus struct {
	Configured bool   `json:"configured"`
	Source     string `json:"source,omitempty"`
}

type keyRequest struct {
	APIKey string `json:"api_key"`
}

func (s *Server) handleCriteria(w http.ResponseWriter, r *http.Request) {
	out := make([]criterionJSON, 0, len(insight.Criteria()))
	for _, c := range insight.Criteria() {
		out = append(out, criterionJSON{Value: string(c), Label: c.Label()})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	keyword := strings.TrimSpace(q.Get("q"))
	if keyword == "" {
		writeError(w, http.StatusBadRequest, "query parameter q is required")
		return
	}

	criterion := s.cfg.DefaultCriterion
	if v := q.Get("sort"); v != "" {
		c, ok := insight.ParseCriterion(v)
		if !ok {
			writeError(w, http.StatusBadRequest, "unknown sort criterion: "+v)
			return
		}
		criterion = c
	}

	maxResults := s.cfg.DefaultMaxResults
	if v := q.Get("max"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 50 {
			writeError(w, http.StatusBadRequest, "max must be between 1 and 50")
			return
		}
		maxResults = n
	}

	withChannels := true
	if v := q.Get("channels"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "channels must be a boolean")
			return
		}
		withChannels = b
	}

	a, err := s.analyzer(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	entries, err := a.Search(r.Context(), keyword, ytinsight.SearchOptions{
		Criterion:    criterion,
		MaxResults:   maxResults,
		WithChannels: withChannels,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, searchResponse{
		Keyword:        keyword,
		Criterion:      string(criterion),
		CriterionLabel: criterion.Label(),
		Count:          len(entries),
		Results:        entries,
	})
}

func (s *Server) handleVideoInsights(w http.ResponseWriter, r *http.Request) {
	a, err := s.analyzer(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	entry, err := a.Inspect(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (s *Server) handleChannel(w http.ResponseWriter, r *http.Request) {
	src, err := s.sourceFor(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	cs, err := src.ChannelStats(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cs)
}

func (s *Server) handleListHistory(w http.ResponseWriter, r *http.Request) {
	if s.cfg.History == nil {
		writeJSON(w, http.StatusOK, []*storage.SearchRecord{})
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	records, err := s.cfg.History.ListSearches(r.Context(), limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	if s.cfg.History == nil {
		s.fail(w, r, storage.ErrNotFound)
		return
	}
	rec, err := s.cfg.History.GetSearch(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleDeleteHistory(w http.ResponseWriter, r *http.Request) {
	if s.cfg.History == nil {
		s.fail(w, r, storage.ErrNotFound)
		return
	}
	if err := s.cfg.History.DeleteSearch(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	if s.cfg.History != nil {
		if err := s.cfg.History.ClearSearches(r.Context()); err != nil {
			s.fail(w, r, err)
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleKeyStatus(w http.ResponseWriter, r *http.Request) {
	_, origin, err := s.resolveKey(r.Context())
	if err != nil && !errors.Is(err, ytinsight.ErrMissingAPIKey) {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, keyStatus{Configured: origin != "", Source: origin})
}

func (s *Server) handleSaveKey(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Keys == nil {
		writeError(w, http.StatusNotImplemented, "key store not configured")
		return
	}
	var req keyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := s.cfg.Keys.SaveAPIKey(r.Context(), req.APIKey); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteKey(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Keys == nil {
		writeError(w, http.StatusNotImplemented, "key store not configured")
		return
	}
	if err := s.cfg.Keys.DeleteAPIKey(r.Context()); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// fail maps err to a status code and writes it.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= 500 {
		s.cfg.Logger.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	}
	writeError(w, status, err.Error())
}

func statusFor(err error) int {
	var apiErr *ytinsight.APIError
	switch {
	case errors.Is(err, ytinsight.ErrEmptyKeyword), errors.Is(err, ytinsight.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ytinsight.ErrMissingAPIKey), errors.Is(err, ytinsight.ErrInvalidAPIKey):
		return http.StatusUnauthorized
	case errors.Is(err, ytinsight.ErrNotFound), errors.Is(err, ytinsight.ErrChannelNotFound), errors.Is(err, ytinsight.ErrVideoNotFound):
		return http.StatusNotFound
	case errors.Is(err, ytinsight.ErrQuotaExceeded):
		return http.StatusTooManyRequests
	case errors.Is(err, ythttp.ErrCircuitOpen):
		return http.StatusServiceUnavailable
	case errors.As(err, &apiErr):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
