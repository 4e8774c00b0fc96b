package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-graphpart/pkg/batch"
	"github.com/dd0wney/cluso-graphpart/pkg/dispatch"
	"github.com/dd0wney/cluso-graphpart/pkg/engine/gpmetis"
	"github.com/dd0wney/cluso-graphpart/pkg/engine/native"
	"github.com/dd0wney/cluso-graphpart/pkg/metrics"
	"github.com/dd0wney/cluso-graphpart/pkg/validation"
)

// cycle builds the column-compressed payload of an n-cycle.
func cycle(n int) *validation.MatrixPayload {
	m := &validation.MatrixPayload{Rows: n, Cols: n, ColPtr: []int{0}}
	for j := 0; j < n; j++ {
		prev, next := (j+n-1)%n, (j+1)%n
		if prev > next {
			prev, next = next, prev
		}
		m.RowIdx = append(m.RowIdx, prev, next)
		m.Values = append(m.Values, 1, 1)
		m.ColPtr = append(m.ColPtr, len(m.RowIdx))
	}
	return m
}

func newTestServer(t *testing.T) (*Server, *metrics.Registry) {
	t.Helper()
	reg := metrics.NewRegistry()
	d := dispatch.New(native.New(), dispatch.Config{Metrics: reg})
	runner, err := batch.NewRunner(d, batch.Config{Workers: 2, Metrics: reg})
	require.NoError(t, err)
	t.Cleanup(runner.Close)
	return New(d, runner, Config{Metrics: reg}), reg
}

func post(t *testing.T, h http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v), "body: %s", rec.Body.String())
	return v
}

func TestDispatch_PartGraphKway(t *testing.T) {
	s, _ := newTestServer(t)
	rec := post(t, s, "/v1/dispatch?quality=true", validation.DispatchRequest{
		Operation: "partgraphkway",
		Matrix:    cycle(8),
		NParts:    2,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decodeBody[DispatchResponse](t, rec)
	assert.Equal(t, "PartGraphKway", resp.Operation)
	assert.Equal(t, native.Name, resp.Engine)
	assert.Len(t, resp.Part, 8)
	require.NotNil(t, resp.EdgeCut)
	assert.Equal(t, 2, *resp.EdgeCut)
	assert.Equal(t, 8, resp.Vertices)
	assert.Equal(t, 16, resp.Arcs)
	assert.NotEmpty(t, resp.RequestID)
	require.NotNil(t, resp.Quality)
	assert.Equal(t, []int{4, 4}, resp.Quality.Sizes)
	assert.Zero(t, resp.Quality.EmptyParts)
}

func TestDispatch_NodeNDIsOneBased(t *testing.T) {
	s, _ := newTestServer(t)
	seed := 3
	rec := post(t, s, "/v1/dispatch", validation.DispatchRequest{
		Operation: "NodeND",
		Matrix:    cycle(6),
		Options:   &validation.OptionsPayload{Seed: &seed, Vector: []int{1, 1, 1, 0, 10}},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decodeBody[DispatchResponse](t, rec)
	require.Len(t, resp.Perm, 6)
	for i, p := range resp.Perm {
		require.True(t, p >= 1 && p <= 6, "perm %v", resp.Perm)
		assert.Equal(t, i+1, resp.IPerm[p-1])
	}
	assert.Nil(t, resp.Part)
}

func TestDispatch_NodeBisect(t *testing.T) {
	s, _ := newTestServer(t)
	rec := post(t, s, "/v1/dispatch", validation.DispatchRequest{Operation: "NodeBisect", Matrix: cycle(10)})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decodeBody[DispatchResponse](t, rec)
	require.NotEmpty(t, resp.Separator)
	for _, v := range resp.Separator {
		assert.True(t, v >= 1 && v <= 10)
	}
}

func TestDispatch_Errors(t *testing.T) {
	s, _ := newTestServer(t)
	rect := &validation.MatrixPayload{Rows: 2, Cols: 3, ColPtr: []int{0, 0, 0, 0}}

	tests := []struct {
		name string
		body any
		code int
		msg  string
	}{
		{"unknown operation", validation.DispatchRequest{Operation: "Frobnicate", Matrix: cycle(3)}, http.StatusBadRequest, "unknown operation"},
		{"missing matrix", validation.DispatchRequest{Operation: "NodeND"}, http.StatusBadRequest, "Matrix: field is required"},
		{"bad colptr", validation.DispatchRequest{Operation: "NodeND", Matrix: &validation.MatrixPayload{Rows: 3, Cols: 3, ColPtr: []int{0}}}, http.StatusBadRequest, "ColPtr"},
		{"not square", validation.DispatchRequest{Operation: "NodeND", Matrix: rect}, http.StatusBadRequest, "square"},
		{"nparts too small", validation.DispatchRequest{Operation: "PartGraphRecursive", Matrix: cycle(4), NParts: 1}, http.StatusBadRequest, "nparts"},
		{"unknown field", map[string]any{"operation": "NodeND", "matrix": cycle(3), "bogus": 1}, http.StatusBadRequest, "invalid JSON"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := post(t, s, "/v1/dispatch", tt.body)
			assert.Equal(t, tt.code, rec.Code)
			resp := decodeBody[ErrorResponse](t, rec)
			assert.Equal(t, tt.code, resp.Code)
			assert.Contains(t, resp.Message, tt.msg)
		})
	}
}

func TestDispatch_UnsupportedSeparator(t *testing.T) {
	reg := metrics.NewRegistry()
	d := dispatch.New(gpmetis.New(gpmetis.Config{}), dispatch.Config{Metrics: reg})
	s := New(d, nil, Config{Metrics: reg})

	rec := post(t, s, "/v1/dispatch", validation.DispatchRequest{Operation: "NodeBisect", Matrix: cycle(4)})
	assert.Equal(t, http.StatusNotImplemented, rec.Code)

	rec = post(t, s, "/v1/batch", validation.BatchRequest{Requests: []*validation.DispatchRequest{{Operation: "NodeND", Matrix: cycle(3)}}})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestBatch(t *testing.T) {
	s, _ := newTestServer(t)
	rec := post(t, s, "/v1/batch", validation.BatchRequest{Requests: []*validation.DispatchRequest{
		{Operation: "PartGraphRecursive", Matrix: cycle(6), NParts: 3},
		{Operation: "PartGraphKway", Matrix: cycle(6), NParts: 1},
		{Operation: "EdgeND", Matrix: cycle(5)},
	}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decodeBody[BatchResponse](t, rec)
	require.Len(t, resp.Results, 3)
	assert.Equal(t, 1, resp.Failed)

	assert.NotNil(t, resp.Results[0].Result)
	assert.Len(t, resp.Results[0].Result.Part, 6)

	require.NotNil(t, resp.Results[1].Error)
	assert.Equal(t, http.StatusBadRequest, resp.Results[1].Error.Code)

	assert.Len(t, resp.Results[2].Result.Perm, 5)
	for i, item := range resp.Results {
		assert.Equal(t, i, item.Index)
		assert.NotEmpty(t, item.JobID)
	}
}

func TestBatch_Validation(t *testing.T) {
	s, _ := newTestServer(t)
	rec := post(t, s, "/v1/batch", validation.BatchRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = post(t, s, "/v1/batch", validation.BatchRequest{Requests: []*validation.DispatchRequest{
		{Operation: "NodeND", Matrix: cycle(3)},
		{Operation: "NodeND", Matrix: &validation.MatrixPayload{Rows: 3, Cols: 3, ColPtr: []int{0, 1}}},
	}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeBody[ErrorResponse](t, rec).Message, "Requests[1]")
}

func TestOperations(t *testing.T) {
	s, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/operations", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeBody[OperationsResponse](t, rec)
	assert.Equal(t, []string{"PartGraphRecursive", "PartGraphKway", "EdgeND", "NodeND", "NodeBisect"}, resp.Operations)
	assert.True(t, resp.Separator)
}

func TestMetricsAndHealthEndpoints(t *testing.T) {
	s, _ := newTestServer(t)
	post(t, s, "/v1/dispatch", validation.DispatchRequest{Operation: "NodeND", Matrix: cycle(4)})

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "graphpart_dispatch_total")
	assert.Contains(t, body, `graphpart_http_requests_total{method="POST",path="POST /v1/dispatch",status="200"} 1`)
	assert.Contains(t, body, "graphpart_uptime_seconds")

	for _, path := range []string{"/health", "/ready"} {
		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, "%s: %s", path, rec.Body.String())
	}
}

func TestMethodNotAllowed(t *testing.T) {
	s, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/dispatch", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestBodyLimit(t *testing.T) {
	reg := metrics.NewRegistry()
	s := New(dispatch.New(native.New(), dispatch.Config{}), nil, Config{Metrics: reg, MaxBodyBytes: 32})

	body := `{"operation":"NodeND","matrix":{"rows":1,"cols":1,"colptr":[0,0]}}`
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/dispatch", strings.NewReader(body)))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestHandle_LargeNPartsWithQuality(t *testing.T) {
	s, _ := newTestServer(t)
	ctx := context.Background()

	_, fail := s.Handle(ctx, &validation.DispatchRequest{
		Operation: "PartGraphKway",
		Matrix:    cycle(4),
		NParts:    1 << 62,
	}, true)
	require.NotNil(t, fail)
	assert.Equal(t, http.StatusBadRequest, fail.Code)

	out, fail := s.Handle(ctx, &validation.DispatchRequest{
		Operation: "PartGraphKway",
		Matrix:    cycle(4),
		NParts:    validation.MaxDimension,
	}, true)
	require.Nil(t, fail)
	require.NotNil(t, out.Quality)
	used := map[int]bool{}
	for _, p := range out.Part {
		used[p] = true
	}
	assert.LessOrEqual(t, len(out.Quality.Sizes), 4)
	assert.Equal(t, validation.MaxDimension-len(used), out.Quality.EmptyParts)
}
