package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/VIDA-NYU/openclean-geo/pkg/address"
	"github.com/VIDA-NYU/openclean-geo/pkg/zipcode"
)

const (
	defaultQueryLimit = 100
	maxQueryLimit     = 1000
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	zip, err := zipcode.Normalize(chi.URLParam(r, "zip"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	rec, err := s.search.ByZip(r.Context(), zip)
	switch {
	case eris.Is(err, zipcode.ErrNotFound):
		respondError(w, http.StatusNotFound, "zip code not found")
	case err != nil:
		zap.L().Error("server: get zipcode", zap.String("zip", zip), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "lookup failed")
	default:
		respondJSON(w, http.StatusOK, rec)
	}
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := zipcode.Filter{
		City:   q.Get("city"),
		Prefix: q.Get("prefix"),
	}
	if state := q.Get("state"); state != "" {
		st, err := zipcode.NormalizeState(state)
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		filter.State = st
	}

	limit, err := queryInt(q.Get("limit"), defaultQueryLimit)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid limit")
		return
	}
	if limit > maxQueryLimit {
		limit = maxQueryLimit
	}
	filter.Limit = limit

	offset, err := queryInt(q.Get("offset"), 0)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid offset")
		return
	}
	filter.Offset = offset

	records, err := s.search.Query(r.Context(), filter)
	if err != nil {
		zap.L().Error("server: query zipcodes", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "query failed")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"count":   len(records),
		"records": records,
	})
}

func (s *Server) handleNear(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	lat, err := strconv.ParseFloat(q.Get("lat"), 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid lat")
		return
	}
	lng, err := strconv.ParseFloat(q.Get("lng"), 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid lng")
		return
	}
	radius, err := strconv.ParseFloat(q.Get("radius"), 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid radius")
		return
	}
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		respondError(w, http.StatusBadRequest, "coordinates out of range")
		return
	}
	if radius <= 0 {
		respondError(w, http.StatusBadRequest, "radius must be positive")
		return
	}

	limit, err := queryInt(q.Get("limit"), 0)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid limit")
		return
	}

	matches, err := s.search.Near(r.Context(), lat, lng, radius, limit)
	if err != nil {
		zap.L().Error("server: near query", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "query failed")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"count":   len(matches),
		"matches": matches,
	})
}

func (s *Server) handleBoundary(w http.ResponseWriter, r *http.Request) {
	zip, err := zipcode.Normalize(chi.URLParam(r, "zip"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	geojson, err := s.search.BoundaryGeoJSON(r.Context(), zip)
	switch {
	case eris.Is(err, zipcode.ErrNotFound):
		respondError(w, http.StatusNotFound, "no boundary for zip code")
	case err != nil:
		zap.L().Error("server: boundary", zap.String("zip", zip), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "lookup failed")
	default:
		w.Header().Set("Content-Type", "application/geo+json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(geojson)
	}
}

type standardizeRequest struct {
	Values []string `json:"values"`
	Case   string   `json:"case,omitempty"`
	Keys   bool     `json:"keys,omitempty"`
}

type standardizeResponse struct {
	Values []string `json:"values"`
}

func (s *Server) handleStandardize(w http.ResponseWriter, r *http.Request) {
	var req standardizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Values) == 0 {
		respondError(w, http.StatusBadRequest, "values is required")
		return
	}

	var fn func(string) string
	if req.Keys {
		keyer := address.NewStreetNameKeyer()
		fn = keyer.Key
	} else {
		var opts []address.Option
		if req.Case != "" {
			opts = append(opts, address.WithCase(req.Case))
		}
		std, err := address.NewStandardizer(opts...)
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		fn = std.Key
	}

	out := make([]string, len(req.Values))
	for i, v := range req.Values {
		out[i] = fn(v)
	}

	respondJSON(w, http.StatusOK, standardizeResponse{Values: out})
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("server: encode response", zap.Error(err))
	}
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}

func queryInt(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, eris.Errorf("server: invalid integer %q", raw)
	}
	return n, nil
}
