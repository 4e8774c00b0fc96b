// Package gateway exposes the dispatcher through a positional, loosely
// typed calling convention: an operation name, a sparse matrix and
// optional scalar or vector arguments in, float64 arrays out with
// permutations shifted to 1-based indices.
//
//	[part, edgecut] = Call("PartGraphRecursive", A, nparts, [wgtflag], [options(3)], [seed])
//	[part, edgecut] = Call("PartGraphKway", A, nparts, [wgtflag], [options(3)], [seed])
//	[perm, iperm]   = Call("EdgeND", A, [options(3)], [seed])
//	[perm, iperm]   = Call("NodeND", A, [options(6)], [seed])
//	sep             = Call("NodeBisect", A, [wgtflag], [options(3)], [seed])
//
// The seed is either the argument right after an operation's own
// arguments or the sixth argument. A nil argument counts as absent. Any
// other argument past an operation's own is ignored without error, so
// Call("EdgeND", A, opts, x, y) runs as Call("EdgeND", A, opts).
package gateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/dd0wney/cluso-graphpart/pkg/dispatch"
	"github.com/dd0wney/cluso-graphpart/pkg/engine"
	"github.com/dd0wney/cluso-graphpart/pkg/sparse"
)

const (
	minArgs = 2
	maxArgs = 6
	maxOut  = 2

	seedArg = 5
)

// ErrNotNumeric is returned for an argument that is neither a number nor a
// numeric vector.
var ErrNotNumeric = errors.New("argument must be numeric")

var messages = []struct {
	err error
	msg string
}{
	{dispatch.ErrArgCount, "Wrong # of arguments"},
	{dispatch.ErrNotString, "First parameter must be a string"},
	{dispatch.ErrNotSparse, "Second parameter must be a symmetric sparse matrix"},
	{dispatch.ErrNotSquare, "Second parameter must be a symmetric sparse matrix"},
	{dispatch.ErrMissingNParts, "Third parameter needed: nparts"},
	{dispatch.ErrTooFewParts, "nparts must be at least 2"},
	{dispatch.ErrUnknownOperation, "Unknown graphpart function"},
}

// Error is a call failure with the host-facing message.
type Error struct {
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// hostError attaches the fixed message of a known failure. Engine errors
// keep their own text.
func hostError(err error) error {
	for _, m := range messages {
		if errors.Is(err, m.err) {
			return &Error{Message: m.msg, Err: err}
		}
	}
	return &Error{Message: err.Error(), Err: err}
}

// Gateway adapts positional calls onto a Dispatcher.
type Gateway struct {
	d *dispatch.Dispatcher
}

// New creates a gateway over d.
func New(d *dispatch.Dispatcher) *Gateway {
	return &Gateway{d: d}
}

// Call runs one positional request and returns at most nout outputs.
func (g *Gateway) Call(ctx context.Context, nout int, args ...any) ([][]float64, error) {
	req, err := parse(nout, args)
	if err != nil {
		return nil, hostError(err)
	}
	res, err := g.d.Dispatch(ctx, req)
	if err != nil {
		return nil, hostError(err)
	}
	return Outputs(res, nout), nil
}

// parse checks the arguments in the order the host convention does and
// builds the typed request.
func parse(nout int, args []any) (*dispatch.Request, error) {
	if len(args) < minArgs || len(args) > maxArgs || nout < 0 || nout > maxOut {
		return nil, fmt.Errorf("%w: %d in, %d out", dispatch.ErrArgCount, len(args), nout)
	}
	name, ok := args[0].(string)
	if !ok {
		return nil, fmt.Errorf("%w: got %T", dispatch.ErrNotString, args[0])
	}
	m, ok := args[1].(*sparse.Matrix)
	if !ok || m == nil {
		return nil, fmt.Errorf("%w: got %T", dispatch.ErrNotSparse, args[1])
	}
	if !m.IsSquare() {
		return nil, fmt.Errorf("%w: %dx%d", dispatch.ErrNotSquare, m.Rows, m.Cols)
	}

	op, err := dispatch.ParseOperation(name)
	if err != nil {
		return nil, err
	}
	req := &dispatch.Request{Operation: op, Matrix: m}
	a := positional(args)

	var optsAt, ownArgs int
	switch op {
	case dispatch.PartGraphRecursive, dispatch.PartGraphKway:
		if !a.present(2) {
			return nil, dispatch.ErrMissingNParts
		}
		if req.NParts, err = a.scalar(2); err != nil {
			return nil, err
		}
		if req.WgtFlag, err = a.scalarOr(3, 0); err != nil {
			return nil, err
		}
		optsAt, ownArgs = 4, 5
	case dispatch.EdgeND, dispatch.NodeND:
		optsAt, ownArgs = 2, 3
	case dispatch.NodeBisect:
		if req.WgtFlag, err = a.scalarOr(2, 0); err != nil {
			return nil, err
		}
		optsAt, ownArgs = 3, 4
	}

	vec, err := a.vector(optsAt)
	if err != nil {
		return nil, err
	}
	if op == dispatch.NodeND {
		req.Options = dispatch.OrderingOptionsFromVector(vec)
	} else {
		req.Options = dispatch.PartitionOptionsFromVector(vec)
	}

	seedAt := seedArg
	if len(args) == ownArgs+1 {
		seedAt = ownArgs
	}
	if req.Options.Seed, err = a.scalarOr(seedAt, engine.SeedUnset); err != nil {
		return nil, err
	}
	return req, nil
}

// Outputs converts a dispatch result to the host convention: partition
// labels as they are plus a 1x1 edge cut, permutations and separators
// shifted to 1-based. Only the first nout outputs are kept.
func Outputs(res *dispatch.Result, nout int) [][]float64 {
	var all [][]float64
	switch {
	case res.Operation.IsPartition():
		all = [][]float64{toFloat(res.Part, 0), {float64(res.EdgeCut)}}
	case res.Operation.IsOrdering():
		all = [][]float64{toFloat(res.Perm, 1), toFloat(res.IPerm, 1)}
	default:
		all = [][]float64{toFloat(res.Separator, 1)}
	}
	if nout < len(all) {
		all = all[:nout]
	}
	return all
}

func toFloat(v []int, shift int) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x + shift)
	}
	return out
}
