package dispatch

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-graphpart/pkg/csr"
	"github.com/dd0wney/cluso-graphpart/pkg/engine"
	"github.com/dd0wney/cluso-graphpart/pkg/engine/native"
	"github.com/dd0wney/cluso-graphpart/pkg/logging"
	"github.com/dd0wney/cluso-graphpart/pkg/metrics"
	"github.com/dd0wney/cluso-graphpart/pkg/partition"
	"github.com/dd0wney/cluso-graphpart/pkg/sparse"
)

// recordingEngine captures what the dispatcher hands to the engine.
type recordingEngine struct {
	graph  *csr.Graph
	vsize  []int
	ncon   int
	nparts int
	opts   engine.Options
	calls  []string
	err    error
}

func (r *recordingEngine) Name() string { return "recording" }

func (r *recordingEngine) PartGraphRecursive(_ context.Context, g *csr.Graph, ncon int, vsize []int, nparts int, opts engine.Options) (engine.PartitionResult, error) {
	r.calls = append(r.calls, "recursive")
	r.graph, r.ncon, r.vsize, r.nparts, r.opts = g, ncon, vsize, nparts, opts
	if r.err != nil {
		return engine.PartitionResult{}, r.err
	}
	return engine.PartitionResult{Part: make([]int, g.N)}, nil
}

func (r *recordingEngine) PartGraphKway(_ context.Context, g *csr.Graph, ncon int, nparts int, opts engine.Options) (engine.PartitionResult, error) {
	r.calls = append(r.calls, "kway")
	r.graph, r.ncon, r.vsize, r.nparts, r.opts = g, ncon, nil, nparts, opts
	if r.err != nil {
		return engine.PartitionResult{}, r.err
	}
	return engine.PartitionResult{Part: make([]int, g.N)}, nil
}

func (r *recordingEngine) NodeND(_ context.Context, g *csr.Graph, opts engine.Options) (engine.OrderingResult, error) {
	r.calls = append(r.calls, "nodend")
	r.graph, r.opts = g, opts
	if r.err != nil {
		return engine.OrderingResult{}, r.err
	}
	perm := make([]int, g.N)
	for i := range perm {
		perm[i] = i
	}
	return engine.OrderingResult{Perm: perm, IPerm: perm}, nil
}

func mustMatrix(t *testing.T, n int, entries []sparse.Triplet) *sparse.Matrix {
	t.Helper()
	m, err := sparse.FromTriplets(n, n, entries)
	require.NoError(t, err)
	return m
}

// cycle4 is the 4-cycle 0-1-2-3-0 with unit weights and an empty diagonal.
func cycle4(t *testing.T) *sparse.Matrix {
	return mustMatrix(t, 4, []sparse.Triplet{
		{Row: 0, Col: 1, Value: 1}, {Row: 1, Col: 0, Value: 1},
		{Row: 1, Col: 2, Value: 1}, {Row: 2, Col: 1, Value: 1},
		{Row: 2, Col: 3, Value: 1}, {Row: 3, Col: 2, Value: 1},
		{Row: 3, Col: 0, Value: 1}, {Row: 0, Col: 3, Value: 1},
	})
}

// weightedPath is 0-1-2 with diagonal weights 5, 6 and 7.
func weightedPath(t *testing.T) *sparse.Matrix {
	return mustMatrix(t, 3, []sparse.Triplet{
		{Row: 0, Col: 0, Value: 5}, {Row: 1, Col: 1, Value: 6.9}, {Row: 2, Col: 2, Value: 7},
		{Row: 0, Col: 1, Value: 2}, {Row: 1, Col: 0, Value: 2},
		{Row: 1, Col: 2, Value: 3}, {Row: 2, Col: 1, Value: 3},
	})
}

func newNative() *Dispatcher {
	return New(native.New(), Config{})
}

func TestScenarioA_RecursiveBisectionOfCycle(t *testing.T) {
	g := csr.Convert(cycle4(t))
	res, err := newNative().Dispatch(context.Background(), &Request{
		Operation: PartGraphRecursive,
		Matrix:    cycle4(t),
		NParts:    2,
		Options:   DefaultOptions(),
	})
	require.NoError(t, err)

	counts := map[int]int{}
	for _, p := range res.Part {
		counts[p]++
	}
	assert.Equal(t, map[int]int{0: 2, 1: 2}, counts)
	assert.Equal(t, 2, res.EdgeCut)
	assert.Equal(t, g.EdgeCut(res.Part), res.EdgeCut)
	assert.Equal(t, "native", res.Engine)
	assert.Equal(t, 4, res.Vertices)
	assert.Equal(t, 8, res.Arcs)
}

func TestScenarioB_NodeNDOfCycle(t *testing.T) {
	res, err := newNative().Dispatch(context.Background(), &Request{
		Operation: NodeND,
		Matrix:    cycle4(t),
		Options:   DefaultOptions(),
	})
	require.NoError(t, err)
	require.NoError(t, partition.ValidatePermutation(res.Perm, res.IPerm, 0))
	assert.Nil(t, res.Part)
}

func TestScenarioC_TooFewParts(t *testing.T) {
	for _, op := range []Operation{PartGraphRecursive, PartGraphKway} {
		for _, nparts := range []int{1, 0, -3} {
			rec := &recordingEngine{}
			res, err := New(rec, Config{}).Dispatch(context.Background(), &Request{
				Operation: op,
				Matrix:    cycle4(t),
				NParts:    nparts,
				Options:   DefaultOptions(),
			})
			require.Error(t, err)
			assert.Nil(t, res)
			assert.ErrorIs(t, err, ErrTooFewParts)
			assert.True(t, IsUsage(err))
			assert.Empty(t, rec.calls, "engine must not run")
		}
	}
}

func TestScenarioD_UnsymmetricInputIsNotRejected(t *testing.T) {
	// Only the (1,0) entry is stored: vertex 0 lists 1, vertex 1 lists nobody.
	m := mustMatrix(t, 3, []sparse.Triplet{{Row: 1, Col: 0, Value: 4}, {Row: 2, Col: 1, Value: 1}})
	require.False(t, m.StructurallySymmetric())

	rec := &recordingEngine{}
	_, err := New(rec, Config{}).Dispatch(context.Background(), &Request{
		Operation: PartGraphKway,
		Matrix:    m,
		NParts:    2,
		Options:   DefaultOptions(),
	})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2, 2}, rec.graph.Xadj)
	assert.Equal(t, []int{1, 2}, rec.graph.Adjncy)

	res, err := newNative().Dispatch(context.Background(), &Request{
		Operation: PartGraphKway,
		Matrix:    m,
		NParts:    2,
		Options:   DefaultOptions(),
	})
	require.NoError(t, err)
	require.NoError(t, partition.ValidateLabels(res.Part, 3, 2))
}

func TestWeightPolicy(t *testing.T) {
	ctx := context.Background()

	t.Run("recursive without wgtflag uses unit weights and sizes", func(t *testing.T) {
		rec := &recordingEngine{}
		_, err := New(rec, Config{}).Dispatch(ctx, &Request{Operation: PartGraphRecursive, Matrix: weightedPath(t), NParts: 2, Options: DefaultOptions()})
		require.NoError(t, err)
		assert.Equal(t, []int{1, 1, 1}, rec.graph.Vwgt)
		assert.Equal(t, []int{1, 1, 1}, rec.vsize)
		assert.Equal(t, 1, rec.ncon)
		assert.Equal(t, []int{2, 2, 3, 3}, rec.graph.Adjwgt)
	})

	t.Run("recursive with wgtflag keeps the diagonal", func(t *testing.T) {
		rec := &recordingEngine{}
		_, err := New(rec, Config{}).Dispatch(ctx, &Request{Operation: PartGraphRecursive, Matrix: weightedPath(t), NParts: 2, WgtFlag: 1, Options: DefaultOptions()})
		require.NoError(t, err)
		assert.Equal(t, []int{5, 6, 7}, rec.graph.Vwgt)
	})

	t.Run("kway always keeps the diagonal", func(t *testing.T) {
		rec := &recordingEngine{}
		_, err := New(rec, Config{}).Dispatch(ctx, &Request{Operation: PartGraphKway, Matrix: weightedPath(t), NParts: 3, Options: DefaultOptions()})
		require.NoError(t, err)
		assert.Equal(t, []int{5, 6, 7}, rec.graph.Vwgt)
		assert.Equal(t, 3, rec.nparts)
		assert.Equal(t, 1, rec.ncon)
	})

	t.Run("orderings drop vertex weights", func(t *testing.T) {
		for _, op := range []Operation{EdgeND, NodeND} {
			rec := &recordingEngine{}
			_, err := New(rec, Config{}).Dispatch(ctx, &Request{Operation: op, Matrix: weightedPath(t), Options: DefaultOptions()})
			require.NoError(t, err)
			assert.Equal(t, []string{"nodend"}, rec.calls, op.String())
			assert.Nil(t, rec.graph.Vwgt, op.String())
		}
	})
}

func TestOptionVector(t *testing.T) {
	ctx := context.Background()

	t.Run("default leaves every slot unset", func(t *testing.T) {
		rec := &recordingEngine{}
		_, err := New(rec, Config{}).Dispatch(ctx, &Request{Operation: NodeND, Matrix: cycle4(t), Options: DefaultOptions()})
		require.NoError(t, err)
		for slot := 0; slot < engine.NumOptions; slot++ {
			assert.Equal(t, engine.Default, rec.opts[slot], engine.OptionName(slot))
		}
		assert.Equal(t, engine.SeedUnset, rec.opts.Seed())
	})

	t.Run("zero options run with engine defaults", func(t *testing.T) {
		rec := &recordingEngine{}
		_, err := New(rec, Config{}).Dispatch(ctx, &Request{Operation: NodeND, Matrix: cycle4(t)})
		require.NoError(t, err)
		for slot := 0; slot < engine.NumOptions; slot++ {
			assert.Equal(t, engine.Default, rec.opts[slot], engine.OptionName(slot))
		}
		assert.Equal(t, engine.SeedUnset, rec.opts.Seed())
	})

	t.Run("explicit zero field is kept", func(t *testing.T) {
		o := DefaultOptions()
		o.CType = 0
		v := o.vector()
		assert.Equal(t, 0, v[engine.OptionCType])
		assert.Equal(t, engine.Default, v[engine.OptionObjType])
	})

	t.Run("ordering vector fills two ranges", func(t *testing.T) {
		rec := &recordingEngine{}
		opts := OrderingOptionsFromVector([]int{0, 1, 2, 3, 4, 5})
		opts.Seed = 77
		_, err := New(rec, Config{}).Dispatch(ctx, &Request{Operation: NodeND, Matrix: cycle4(t), Options: opts})
		require.NoError(t, err)
		assert.Equal(t, engine.Default, rec.opts[engine.OptionPType])
		assert.Equal(t, []int{0, 1, 2}, rec.opts[1:4])
		assert.Equal(t, engine.Default, rec.opts[engine.OptionRType])
		assert.Equal(t, []int{3, 4, 5}, rec.opts[5:8])
		assert.Equal(t, 77, rec.opts[engine.OptionSeed])
	})

	t.Run("partition vector ignores the second range", func(t *testing.T) {
		rec := &recordingEngine{}
		_, err := New(rec, Config{}).Dispatch(ctx, &Request{Operation: EdgeND, Matrix: cycle4(t), Options: PartitionOptionsFromVector([]int{1, 0, 3, 9, 9, 9})})
		require.NoError(t, err)
		assert.Equal(t, []int{1, 0, 3}, rec.opts[1:4])
		assert.Equal(t, []int{-1, -1, -1}, rec.opts[5:8])
	})

	t.Run("short vector leaves the rest unset", func(t *testing.T) {
		o := OrderingOptionsFromVector([]int{1})
		assert.Equal(t, 1, o.ObjType)
		assert.Equal(t, Unset, o.CType)
		assert.Equal(t, Unset, o.NCuts)
	})

	t.Run("named fields map to their slots", func(t *testing.T) {
		o := DefaultOptions()
		o.UFactor = 30
		o.Contig = 1
		o.Compress = 0
		v := o.vector()
		assert.Equal(t, 30, v[engine.OptionUFactor])
		assert.Equal(t, 1, v[engine.OptionContig])
		assert.Equal(t, 0, v[engine.OptionCompress])
	})
}

func TestEngineErrorsPropagate(t *testing.T) {
	rec := &recordingEngine{err: engine.InputError("bad graph")}
	res, err := New(rec, Config{}).Dispatch(context.Background(), &Request{Operation: PartGraphRecursive, Matrix: cycle4(t), NParts: 2, Options: DefaultOptions()})
	require.Error(t, err)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, engine.ErrInput)
	assert.False(t, IsUsage(err))

	var ee *EngineError
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, PartGraphRecursive, ee.Op)
	assert.Equal(t, engine.StatusInputError, ee.Status())
	assert.Contains(t, err.Error(), "recording")
}

func TestNodeBisect(t *testing.T) {
	grid := func() *sparse.Matrix {
		var entries []sparse.Triplet
		id := func(r, c int) int { return r*5 + c }
		for r := 0; r < 5; r++ {
			for c := 0; c < 5; c++ {
				if c+1 < 5 {
					entries = append(entries, sparse.Triplet{Row: id(r, c), Col: id(r, c+1), Value: 1}, sparse.Triplet{Row: id(r, c+1), Col: id(r, c), Value: 1})
				}
				if r+1 < 5 {
					entries = append(entries, sparse.Triplet{Row: id(r, c), Col: id(r+1, c), Value: 1}, sparse.Triplet{Row: id(r+1, c), Col: id(r, c), Value: 1})
				}
			}
		}
		return mustMatrix(t, 25, entries)
	}

	res, err := newNative().Dispatch(context.Background(), &Request{Operation: NodeBisect, Matrix: grid(), Options: DefaultOptions()})
	require.NoError(t, err)
	require.NotEmpty(t, res.Separator)
	for _, v := range res.Separator {
		assert.True(t, v >= 0 && v < 25)
	}

	_, err = New(&recordingEngine{}, Config{}).Dispatch(context.Background(), &Request{Operation: NodeBisect, Matrix: grid(), Options: DefaultOptions()})
	assert.ErrorIs(t, err, engine.ErrUnsupported)
}

func TestUsageErrors(t *testing.T) {
	nonSquare, err := sparse.NewMatrix(2, 3, []int{0, 0, 0, 0}, nil, nil)
	require.NoError(t, err)
	malformed := &sparse.Matrix{Rows: 2, Cols: 2, ColPtr: []int{0, 1, 2}, RowIdx: []int{0, 5}, Values: []float64{1, 1}}

	tests := []struct {
		name string
		req  *Request
		want error
	}{
		{"nil matrix", &Request{Operation: NodeND}, ErrNotSparse},
		{"non-square", &Request{Operation: NodeND, Matrix: nonSquare}, ErrNotSquare},
		{"malformed", &Request{Operation: NodeND, Matrix: malformed}, ErrNotSparse},
		{"unknown operation", &Request{Operation: Operation(42), Matrix: cycle4(t)}, ErrUnknownOperation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recordingEngine{}
			res, err := New(rec, Config{}).Dispatch(context.Background(), tt.req)
			assert.Nil(t, res)
			assert.ErrorIs(t, err, tt.want)
			assert.True(t, IsUsage(err))
			assert.Empty(t, rec.calls)
		})
	}
}

func TestBoundaries(t *testing.T) {
	empty, err := sparse.NewMatrix(0, 0, []int{0}, nil, nil)
	require.NoError(t, err)
	single := mustMatrix(t, 1, []sparse.Triplet{{Row: 0, Col: 0, Value: 3}})

	d := newNative()
	for _, m := range []*sparse.Matrix{empty, single} {
		for _, op := range Operations() {
			req := &Request{Operation: op, Matrix: m, NParts: 2, Options: DefaultOptions()}
			res, err := d.Dispatch(context.Background(), req)
			require.NoError(t, err, "%s n=%d", op, m.Rows)
			switch {
			case op.IsPartition():
				require.NoError(t, partition.ValidateLabels(res.Part, m.Rows, 2))
				assert.Equal(t, 0, res.EdgeCut)
			case op.IsOrdering():
				require.NoError(t, partition.ValidatePermutation(res.Perm, res.IPerm, 0))
				assert.Len(t, res.Perm, m.Rows)
			default:
				assert.Empty(t, res.Separator)
			}
		}
	}
}

func TestParseOperation(t *testing.T) {
	tests := []struct {
		in   string
		want Operation
	}{
		{"PartGraphRecursive", PartGraphRecursive},
		{"partgraphkway", PartGraphKway},
		{"EDGEND", EdgeND},
		{"NodeND", NodeND},
		{"nodebisect", NodeBisect},
	}
	for _, tt := range tests {
		got, err := ParseOperation(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}

	_, err := ParseOperation("mesh2nodal")
	assert.ErrorIs(t, err, ErrUnknownOperation)
	assert.Contains(t, err.Error(), "mesh2nodal")
}

func TestSeedDeterminismUnderConcurrency(t *testing.T) {
	var entries []sparse.Triplet
	for i := 0; i < 30; i++ {
		j := (i*7 + 3) % 30
		if i != j {
			entries = append(entries, sparse.Triplet{Row: i, Col: j, Value: 1}, sparse.Triplet{Row: j, Col: i, Value: 1})
		}
		k := (i + 1) % 30
		entries = append(entries, sparse.Triplet{Row: i, Col: k, Value: 1}, sparse.Triplet{Row: k, Col: i, Value: 1})
	}
	m := mustMatrix(t, 30, entries)

	d := newNative()
	opts := DefaultOptions()
	opts.Seed = 12345
	want, err := d.Dispatch(context.Background(), &Request{Operation: PartGraphKway, Matrix: m, NParts: 4, Options: opts})
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]*Result, 16)
	errs := make([]error, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = d.Dispatch(context.Background(), &Request{Operation: PartGraphKway, Matrix: m, NParts: 4, Options: opts})
		}(i)
	}
	wg.Wait()
	for i := range results {
		require.NoError(t, errs[i])
		assert.Equal(t, want.Part, results[i].Part)
	}
}

func TestLoggingAndMetrics(t *testing.T) {
	var buf bytes.Buffer
	reg := metrics.NewRegistry()
	d := New(native.New(), Config{Logger: logging.NewJSONLogger(&buf, logging.DebugLevel), Metrics: reg})

	_, err := d.Dispatch(context.Background(), &Request{Operation: NodeND, Matrix: cycle4(t), Options: DefaultOptions()})
	require.NoError(t, err)
	_, err = d.Dispatch(context.Background(), &Request{Operation: PartGraphKway, Matrix: cycle4(t), NParts: 1, Options: DefaultOptions()})
	require.Error(t, err)

	out := buf.String()
	assert.Contains(t, out, `"msg":"converted matrix"`)
	assert.Contains(t, out, `"msg":"dispatch complete"`)
	assert.Contains(t, out, `"msg":"request rejected"`)
	assert.True(t, strings.Contains(out, `"engine":"native"`))

	var m dto.Metric
	require.NoError(t, reg.DispatchTotal.WithLabelValues("nodend", metrics.StatusOK).Write(&m))
	assert.Equal(t, 1.0, m.Counter.GetValue())
	m.Reset()
	require.NoError(t, reg.DispatchTotal.WithLabelValues("partgraphkway", metrics.StatusUsage).Write(&m))
	assert.Equal(t, 1.0, m.Counter.GetValue())
}
