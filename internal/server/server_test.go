package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/coordclean/internal/cleaner"
	"github.com/sells-group/coordclean/internal/reference"
)

type defaultPlanner struct{}

func (defaultPlanner) PlanFor(tests []string, value string) (cleaner.Plan, error) {
	kinds, err := cleaner.ParseKinds(tests)
	if err != nil {
		return cleaner.Plan{}, err
	}
	mode, err := cleaner.ParseValueMode(value)
	if err != nil {
		return cleaner.Plan{}, err
	}
	plan := cleaner.DefaultPlan(kinds...)
	plan.Value = mode
	return plan, nil
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	refs := &reference.Set{
		Capitals: reference.Points{{Lon: 13.405, Lat: 52.52, Label: "DEU"}},
	}
	s := New(Options{DefaultTests: []string{"zeros", "capitals"}}, defaultPlanner{}, refs)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func post(t *testing.T, ts *httptest.Server, body string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Post(ts.URL+"/api/v1/clean", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	var out map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "ok", out["status"])
}

func TestListTests(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/v1/tests")
	require.NoError(t, err)
	defer resp.Body.Close()

	var out []testInfo
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Len(t, out, len(cleaner.Kinds()))

	byName := make(map[string]testInfo)
	for _, ti := range out {
		byName[ti.Name] = ti
	}
	assert.True(t, byName["capitals"].Available)
	assert.Equal(t, []string{"capitals"}, byName["capitals"].Requires)
	assert.False(t, byName["seas"].Available)
	assert.True(t, byName["zeros"].Available)
	assert.Empty(t, byName["zeros"].Requires)
}

func TestClean_Flagged(t *testing.T) {
	ts := newTestServer(t)

	resp, out := post(t, ts, `{
		"records": [
			{"lon": 13.405, "lat": 52.52, "species": "a"},
			{"lon": 0, "lat": 12, "species": "a"},
			{"lon": 20.5, "lat": 41.3, "species": "b"}
		]
	}`)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, out["run_id"])
	assert.Equal(t, []any{"zeros", "capitals"}, out["order"])
	cols := out["columns"].(map[string]any)
	assert.Equal(t, []any{true, false, true}, cols["zeros"])
	assert.Equal(t, []any{false, true, true}, cols["capitals"])
	assert.Equal(t, []any{false, false, true}, out["summary"])
	assert.EqualValues(t, 2, out["flagged"])
	assert.Empty(t, out["skipped"])
	assert.Nil(t, out["clean"])
}

func TestClean_CleanModeAndSkipped(t *testing.T) {
	ts := newTestServer(t)

	resp, out := post(t, ts, `{
		"tests": ["zeros", "seas"],
		"value": "clean",
		"records": [
			{"lon": 0, "lat": 12, "species": "a"},
			{"lon": 20.5, "lat": 41.3, "species": "b"}
		]
	}`)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []any{"seas"}, out["skipped"])
	clean := out["clean"].([]any)
	require.Len(t, clean, 1)
	assert.Equal(t, "b", clean[0].(map[string]any)["species"])
}

func TestClean_InvalidCoordinates(t *testing.T) {
	ts := newTestServer(t)

	resp, out := post(t, ts, `{
		"records": [
			{"lon": 10, "lat": 10, "species": "a"},
			{"lat": 10, "species": "a"},
			{"lon": 10, "lat": 91, "species": "a"}
		]
	}`)

	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, []any{1.0, 2.0}, out["indices"])
	assert.Contains(t, out["error"], "invalid coordinates")
}

func TestClean_BadRequests(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name string
		body string
		want string
	}{
		{"malformed json", `{"records": [`, "Invalid request body"},
		{"no records", `{"records": []}`, "records are required"},
		{"empty body", ``, "records are required"},
		{"unknown test", `{"tests": ["volcanoes"], "records": [{"lon": 1, "lat": 2}]}`, "unknown test"},
		{"unknown value", `{"value": "filtered", "records": [{"lon": 1, "lat": 2}]}`, "unknown value mode"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, out := post(t, ts, tt.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Contains(t, out["error"], tt.want)
		})
	}
}

func TestCORSPreflight(t *testing.T) {
	ts := newTestServer(t)

	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/api/v1/clean", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://example.org")
	req.Header.Set("Access-Control-Request-Method", "POST")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}
