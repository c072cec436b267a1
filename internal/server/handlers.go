package server

import (
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"

	"go.uber.org/zap"

	"github.com/sells-group/coordclean/internal/checks"
	"github.com/sells-group/coordclean/internal/cleaner"
	"github.com/sells-group/coordclean/internal/occurrence"
	"github.com/sells-group/coordclean/internal/outlier"
)

type recordIn struct {
	Lon     *float64          `json:"lon"`
	Lat     *float64          `json:"lat"`
	Species string            `json:"species"`
	Country string            `json:"country"`
	Extra   map[string]string `json:"extra"`
}

type cleanRequest struct {
	Records   []recordIn `json:"records"`
	Tests     []string   `json:"tests"`
	Value     string     `json:"value"`
	Additions []string   `json:"additions"`
}

type cleanResponse struct {
	RunID    string              `json:"run_id"`
	Order    []cleaner.Kind      `json:"order"`
	Columns  map[string][]bool   `json:"columns"`
	Summary  []bool              `json:"summary"`
	Flagged  int                 `json:"flagged"`
	Skipped  []cleaner.Kind      `json:"skipped"`
	Warnings []string            `json:"warnings"`
	Clean    []occurrence.Record `json:"clean,omitempty"`
}

type testInfo struct {
	Name      string   `json:"name"`
	Requires  []string `json:"requires"`
	Available bool     `json:"available"`
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) listTests(w http.ResponseWriter, _ *http.Request) {
	avail := (&cleaner.Input{Refs: s.refs, Countries: []string{}}).Available()
	out := make([]testInfo, 0, len(cleaner.Kinds()))
	for _, k := range cleaner.Kinds() {
		req := cleaner.DefaultTest(k).Requires()
		out = append(out, testInfo{
			Name:      k.String(),
			Requires:  nonNil(req.Names()),
			Available: avail.Has(req),
		})
	}
	respondWithJSON(w, http.StatusOK, out)
}

func (s *Server) clean(w http.ResponseWriter, r *http.Request) {
	var req cleanRequest
	body := http.MaxBytesReader(w, r.Body, s.opts.MaxBodyBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respondWithError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if len(req.Records) == 0 {
		respondWithError(w, http.StatusBadRequest, "records are required", nil)
		return
	}

	tests := req.Tests
	if len(tests) == 0 {
		tests = s.opts.DefaultTests
	}
	plan, err := s.planner.PlanFor(tests, req.Value)
	if err != nil {
		if isConfigError(err) {
			respondWithError(w, http.StatusBadRequest, err.Error(), nil)
			return
		}
		respondWithError(w, http.StatusInternalServerError, "Failed to build plan", err)
		return
	}

	ds := toDataset(req)
	res, err := cleaner.Apply(r.Context(), plan, ds, s.refs)
	if err != nil {
		var invalid *cleaner.InvalidCoordinatesError
		if errors.As(err, &invalid) {
			respondWithJSON(w, http.StatusUnprocessableEntity, map[string]any{
				"error":   invalid.Error(),
				"indices": invalid.Indices,
			})
			return
		}
		respondWithError(w, http.StatusInternalServerError, "Failed to clean records", err)
		return
	}

	resp := cleanResponse{
		RunID:    res.RunID,
		Order:    make([]cleaner.Kind, len(res.Columns)),
		Columns:  make(map[string][]bool, len(res.Columns)),
		Summary:  res.Summary,
		Flagged:  res.Flagged(),
		Skipped:  nonNil(res.Skipped),
		Warnings: nonNil(res.Warnings),
	}
	for i, c := range res.Columns {
		resp.Order[i] = c.Kind
		resp.Columns[c.Kind.String()] = c.Pass
	}
	if res.Clean != nil {
		resp.Clean = nonNil(res.Clean.Records)
	}
	respondWithJSON(w, http.StatusOK, resp)
}

func toDataset(req cleanRequest) *occurrence.Dataset {
	records := make([]occurrence.Record, len(req.Records))
	hasCountry := false
	for i, in := range req.Records {
		rec := occurrence.Record{
			Lon:     math.NaN(),
			Lat:     math.NaN(),
			Species: in.Species,
			Country: in.Country,
			Extra:   in.Extra,
		}
		if in.Lon != nil {
			rec.Lon = *in.Lon
		}
		if in.Lat != nil {
			rec.Lat = *in.Lat
		}
		if in.Country != "" {
			hasCountry = true
		}
		records[i] = rec
	}
	return occurrence.FromRecords(records, hasCountry, req.Additions)
}

func isConfigError(err error) bool {
	for _, target := range []error{
		cleaner.ErrUnknownTest,
		cleaner.ErrUnknownValueMode,
		outlier.ErrUnknownMethod,
		checks.ErrUnknownEqualMode,
		checks.ErrUnknownCentroidDetail,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	response, err := json.Marshal(payload)
	if err != nil {
		zap.L().Error("marshal response", zap.Error(err))
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"failed to marshal response"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func respondWithError(w http.ResponseWriter, code int, message string, err error) {
	if err != nil && code >= 500 {
		zap.L().Error("http error", zap.Int("code", code), zap.String("message", message), zap.Error(err))
	}
	respondWithJSON(w, code, map[string]string{"error": message})
}
