// Package dispatch turns an operation request on a sparse matrix into an
// engine call.
//
// A request carries a column-compressed matrix, an Operation and named
// Options. The dispatcher converts the matrix to a CSR graph once, applies
// the operation's weight policy, builds a fresh engine option vector with
// the request seed and returns the engine's 0-based results. Nothing is
// shared between calls, so one Dispatcher serves any number of goroutines.
package dispatch

import (
	"context"
	"errors"
	"time"

	"github.com/dd0wney/cluso-graphpart/pkg/csr"
	"github.com/dd0wney/cluso-graphpart/pkg/engine"
	"github.com/dd0wney/cluso-graphpart/pkg/logging"
	"github.com/dd0wney/cluso-graphpart/pkg/metrics"
	"github.com/dd0wney/cluso-graphpart/pkg/sparse"
)

// Request is one operation on one matrix.
type Request struct {
	Operation Operation
	Matrix    *sparse.Matrix

	// NParts is the number of parts for the partition operations.
	NParts int
	// WgtFlag selects the weight policy. For PartGraphRecursive and
	// NodeBisect, 0 replaces the diagonal vertex weights with 1s.
	// PartGraphKway always uses the diagonal.
	WgtFlag int

	// Options left as the zero value run with DefaultOptions.
	Options Options
}

// Result holds the 0-based output of a successful request. Only the
// fields of the requested operation are set.
type Result struct {
	Operation Operation
	Engine    string

	Part    []int
	EdgeCut int

	Perm  []int
	IPerm []int

	Separator []int

	Vertices int
	Arcs     int
	Duration time.Duration
}

// Config wires the ambient collaborators of a Dispatcher. Nil fields
// disable the concern.
type Config struct {
	Logger  logging.Logger
	Metrics *metrics.Registry
}

// Dispatcher runs requests against one engine.
type Dispatcher struct {
	engine  engine.Engine
	logger  logging.Logger
	metrics *metrics.Registry
}

// New creates a dispatcher over e.
func New(e engine.Engine, cfg Config) *Dispatcher {
	d := &Dispatcher{engine: e, logger: cfg.Logger, metrics: cfg.Metrics}
	if d.logger == nil {
		d.logger = logging.NewNopLogger()
	}
	return d
}

// Engine returns the engine requests are sent to.
func (d *Dispatcher) Engine() engine.Engine {
	return d.engine
}

// Dispatch validates req, converts the matrix and runs the operation.
// Usage problems return a *UsageError before the engine is called; engine
// failures return an *EngineError. Either way no Result is returned.
func (d *Dispatcher) Dispatch(ctx context.Context, req *Request) (*Result, error) {
	start := time.Now()
	if d.metrics != nil {
		d.metrics.DispatchesInFlight.Inc()
		defer d.metrics.DispatchesInFlight.Dec()
	}

	log := d.logger.With(logging.Operation(req.Operation.String()), logging.Engine(d.engine.Name()))

	if err := checkRequest(req); err != nil {
		log.Warn("request rejected", logging.Error(err))
		d.record(req.Operation, metrics.StatusUsage, time.Since(start), 0, 0)
		return nil, err
	}

	g := csr.Convert(req.Matrix)
	log.Debug("converted matrix",
		logging.Vertices(g.N),
		logging.Arcs(g.NumArcs()),
		logging.Parts(req.NParts),
		logging.Seed(req.Options.effective().Seed))

	timer := logging.StartTimer(log, "dispatch complete", logging.Vertices(g.N), logging.Arcs(g.NumArcs()))
	res, err := d.run(ctx, req, g)
	if err != nil {
		ee := &EngineError{Op: req.Operation, Engine: d.engine.Name(), Err: err}
		timer.EndWarn(err)
		if d.metrics != nil {
			d.metrics.RecordEngineError(d.engine.Name(), ee.Status().String())
		}
		d.record(req.Operation, metrics.StatusEngine, time.Since(start), g.N, g.NumArcs())
		return nil, ee
	}

	res.Operation = req.Operation
	res.Engine = d.engine.Name()
	res.Vertices = g.N
	res.Arcs = g.NumArcs()
	res.Duration = time.Since(start)

	if req.Operation.IsPartition() {
		timer.End(logging.EdgeCut(res.EdgeCut))
		if d.metrics != nil {
			d.metrics.RecordEdgeCut(req.Operation.metricName(), res.EdgeCut)
		}
	} else {
		timer.End()
	}
	d.record(req.Operation, metrics.StatusOK, res.Duration, g.N, g.NumArcs())
	return res, nil
}

// checkRequest applies the usage checks that precede conversion.
func checkRequest(req *Request) error {
	if _, ok := operationNames[req.Operation]; !ok {
		return &UsageError{Err: ErrUnknownOperation, Detail: req.Operation.String()}
	}
	m := req.Matrix
	if m == nil {
		return usage(req.Operation, ErrNotSparse, "no matrix")
	}
	if !m.IsSquare() {
		return usage(req.Operation, ErrNotSquare, "%dx%d", m.Rows, m.Cols)
	}
	if err := m.Check(); err != nil {
		return usage(req.Operation, ErrNotSparse, "%v", err)
	}
	if req.Operation.IsPartition() && req.NParts < 2 {
		return usage(req.Operation, ErrTooFewParts, "got %d", req.NParts)
	}
	return nil
}

func (d *Dispatcher) run(ctx context.Context, req *Request, g *csr.Graph) (*Result, error) {
	opts := req.Options.vector()

	switch req.Operation {
	case PartGraphRecursive:
		if req.WgtFlag == 0 {
			g = g.WithUnitVertexWeights()
		}
		vsize := make([]int, g.N)
		for i := range vsize {
			vsize[i] = 1
		}
		pr, err := d.engine.PartGraphRecursive(ctx, g, 1, vsize, req.NParts, opts)
		if err != nil {
			return nil, err
		}
		return &Result{Part: pr.Part, EdgeCut: pr.EdgeCut}, nil

	case PartGraphKway:
		pr, err := d.engine.PartGraphKway(ctx, g, 1, req.NParts, opts)
		if err != nil {
			return nil, err
		}
		return &Result{Part: pr.Part, EdgeCut: pr.EdgeCut}, nil

	case EdgeND, NodeND:
		// EdgeND has no engine entry point of its own and runs node-based
		// nested dissection; the two differ only in which options they accept.
		or, err := d.engine.NodeND(ctx, g.WithoutVertexWeights(), opts)
		if err != nil {
			return nil, err
		}
		return &Result{Perm: or.Perm, IPerm: or.IPerm}, nil

	case NodeBisect:
		sepEngine, ok := d.engine.(engine.Separator)
		if !ok {
			return nil, engine.ErrUnsupported
		}
		if req.WgtFlag == 0 {
			g = g.WithUnitVertexWeights()
		}
		sr, err := sepEngine.NodeBisect(ctx, g, opts)
		if err != nil {
			return nil, err
		}
		return &Result{Separator: sr.Separator}, nil
	}
	return nil, errors.New("unreachable operation")
}

func (d *Dispatcher) record(op Operation, status string, elapsed time.Duration, vertices, arcs int) {
	if d.metrics == nil {
		return
	}
	d.metrics.RecordDispatch(op.metricName(), d.engine.Name(), status, elapsed, vertices, arcs)
}
