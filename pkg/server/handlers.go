package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/dd0wney/cluso-graphpart/pkg/batch"
	"github.com/dd0wney/cluso-graphpart/pkg/csr"
	"github.com/dd0wney/cluso-graphpart/pkg/dispatch"
	"github.com/dd0wney/cluso-graphpart/pkg/engine"
	"github.com/dd0wney/cluso-graphpart/pkg/logging"
	"github.com/dd0wney/cluso-graphpart/pkg/partition"
	"github.com/dd0wney/cluso-graphpart/pkg/validation"
)

func (s *Server) handleDispatch(w http.ResponseWriter, r *http.Request) {
	var payload validation.DispatchRequest
	if !s.decode(w, r, &payload) {
		return
	}
	out, fail := s.Handle(r.Context(), &payload, wantQuality(r))
	if fail != nil {
		s.respondJSON(w, fail.Code, fail)
		return
	}
	out.RequestID = RequestIDFrom(r.Context())
	s.respondJSON(w, http.StatusOK, out)
}

// Handle validates and runs one decoded dispatch request. It is shared by
// the HTTP API and the socket transport; exactly one return value is
// non-nil.
func (s *Server) Handle(ctx context.Context, payload *validation.DispatchRequest, withQuality bool) (*DispatchResponse, *ErrorResponse) {
	if err := validation.ValidateDispatchRequest(payload); err != nil {
		return nil, errorResponse(http.StatusBadRequest, err.Error())
	}
	req, err := toRequest(payload)
	if err != nil {
		return nil, errorResponse(statusFor(err), err.Error())
	}

	res, err := s.dispatcher.Dispatch(ctx, req)
	if err != nil {
		return nil, errorResponse(statusFor(err), err.Error())
	}
	out := toResponse(res)

	if withQuality && res.Operation.IsPartition() {
		report, err := quality(req, res)
		if err != nil {
			s.logger.Warn("quality report failed", logging.RequestID(RequestIDFrom(ctx)), logging.Error(err))
		} else {
			out.Quality = report
		}
	}
	return out, nil
}

func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	if s.runner == nil {
		s.respondError(w, http.StatusServiceUnavailable, "batch execution is not configured")
		return
	}
	var payload validation.BatchRequest
	if !s.decode(w, r, &payload) {
		return
	}
	if err := validation.ValidateBatchRequest(&payload); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	reqs := make([]*dispatch.Request, len(payload.Requests))
	for i, p := range payload.Requests {
		req, err := toRequest(p)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "Requests["+strconv.Itoa(i)+"]: "+err.Error())
			return
		}
		reqs[i] = req
	}

	outcomes := s.runner.Run(r.Context(), reqs)
	resp := BatchResponse{
		RequestID: RequestIDFrom(r.Context()),
		Results:   make([]BatchItem, len(outcomes)),
		Failed:    batch.Failed(outcomes),
	}
	for i, o := range outcomes {
		item := BatchItem{JobID: o.JobID, Index: o.Index}
		if o.Err != nil {
			item.Error = errorResponse(statusFor(o.Err), o.Err.Error())
		} else {
			item.Result = toResponse(o.Result)
		}
		resp.Results[i] = item
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleOperations(w http.ResponseWriter, r *http.Request) {
	e := s.dispatcher.Engine()
	_, separator := e.(engine.Separator)

	resp := OperationsResponse{Engine: e.Name(), Separator: separator}
	for _, op := range dispatch.Operations() {
		resp.Operations = append(resp.Operations, op.String())
	}
	s.respondJSON(w, http.StatusOK, resp)
}

// decode reads a JSON body, answering 400 or 413 itself on failure.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.respondError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		s.respondError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

func wantQuality(r *http.Request) bool {
	ok, _ := strconv.ParseBool(r.URL.Query().Get("quality"))
	return ok
}

// quality rebuilds the graph the partition was computed on and measures it.
func quality(req *dispatch.Request, res *dispatch.Result) (*QualityReport, error) {
	g := csr.Convert(req.Matrix)
	if req.Operation == dispatch.PartGraphRecursive && req.WgtFlag == 0 {
		g = g.WithUnitVertexWeights()
	}
	m, err := partition.ComputeMetrics(g, res.Part, req.NParts)
	if err != nil {
		return nil, err
	}
	return toQuality(m), nil
}

// statusFor maps dispatch failures onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case dispatch.IsUsage(err):
		return http.StatusBadRequest
	case errors.Is(err, engine.ErrUnsupported):
		return http.StatusNotImplemented
	case errors.Is(err, engine.ErrInput):
		return http.StatusUnprocessableEntity
	case errors.Is(err, engine.ErrMemory):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded), errors.Is(err, batch.ErrClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Warn("encode response", logging.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, errorResponse(status, message))
}

func errorResponse(status int, message string) *ErrorResponse {
	return &ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
		Code:    status,
	}
}
