// Package gpmetis runs the METIS command line programs as an engine.
//
// Each call writes the graph to a temporary METIS graph file, runs gpmetis
// or ndmetis on it and reads the result file back. Option slots are passed
// as named command line flags.
package gpmetis

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"github.com/dd0wney/cluso-graphpart/pkg/csr"
	"github.com/dd0wney/cluso-graphpart/pkg/engine"
)

// Name is reported by Engine.Name.
const Name = "gpmetis"

const graphFile = "graph.txt"

// Config locates the METIS programs.
type Config struct {
	GPMetisPath string
	NDMetisPath string
	WorkDir     string
}

// Engine implements engine.Engine on top of gpmetis and ndmetis.
type Engine struct {
	gpmetis string
	ndmetis string
	workDir string
}

var _ engine.Engine = (*Engine)(nil)

// New creates an engine; empty paths default to the program names.
func New(cfg Config) *Engine {
	e := &Engine{gpmetis: cfg.GPMetisPath, ndmetis: cfg.NDMetisPath, workDir: cfg.WorkDir}
	if e.gpmetis == "" {
		e.gpmetis = "gpmetis"
	}
	if e.ndmetis == "" {
		e.ndmetis = "ndmetis"
	}
	return e
}

// Name returns "gpmetis".
func (e *Engine) Name() string {
	return Name
}

// Available reports whether both programs can be found.
func (e *Engine) Available() error {
	if _, err := exec.LookPath(e.gpmetis); err != nil {
		return err
	}
	if _, err := exec.LookPath(e.ndmetis); err != nil {
		return err
	}
	return nil
}

var (
	ctypeNames  = map[int]string{0: "rm", 1: "shem"}
	iptypeNames = map[int]string{0: "grow", 1: "random", 2: "edge", 3: "node", 4: "metisrb"}
	objNames    = map[int]string{0: "cut", 1: "vol"}
	rtypeNames  = map[int]string{0: "fm", 1: "greedy", 2: "sep2sided", 3: "sep1sided"}
)

func namedFlag(args []string, opts engine.Options, slot int, names map[int]string) ([]string, error) {
	if !opts.IsSet(slot) {
		return args, nil
	}
	name, ok := names[opts[slot]]
	if !ok {
		return nil, engine.InputError("%s = %d has no command line equivalent", engine.OptionName(slot), opts[slot])
	}
	return append(args, fmt.Sprintf("-%s=%s", engine.OptionName(slot), name)), nil
}

func intFlags(args []string, opts engine.Options, slots ...int) []string {
	for _, slot := range slots {
		if opts.IsSet(slot) {
			args = append(args, fmt.Sprintf("-%s=%d", engine.OptionName(slot), opts[slot]))
		}
	}
	return args
}

func boolFlags(args []string, opts engine.Options, slots ...int) []string {
	for _, slot := range slots {
		if opts.IsSet(slot) && opts[slot] != 0 {
			args = append(args, "-"+engine.OptionName(slot))
		}
	}
	return args
}

// partitionArgs builds the gpmetis flag list.
func partitionArgs(ptype string, opts engine.Options) ([]string, error) {
	args := []string{"-ptype=" + ptype}
	var err error
	if args, err = namedFlag(args, opts, engine.OptionObjType, objNames); err != nil {
		return nil, err
	}
	if args, err = namedFlag(args, opts, engine.OptionCType, ctypeNames); err != nil {
		return nil, err
	}
	if args, err = namedFlag(args, opts, engine.OptionIPType, iptypeNames); err != nil {
		return nil, err
	}
	if args, err = namedFlag(args, opts, engine.OptionRType, rtypeNames); err != nil {
		return nil, err
	}
	args = intFlags(args, opts, engine.OptionUFactor, engine.OptionNIter, engine.OptionNCuts, engine.OptionSeed, engine.OptionDbgLvl)
	args = boolFlags(args, opts, engine.OptionContig, engine.OptionMinConn, engine.OptionNo2Hop)
	return args, nil
}

// orderingArgs builds the ndmetis flag list.
func orderingArgs(opts engine.Options) ([]string, error) {
	var args []string
	var err error
	if args, err = namedFlag(args, opts, engine.OptionCType, ctypeNames); err != nil {
		return nil, err
	}
	if args, err = namedFlag(args, opts, engine.OptionIPType, iptypeNames); err != nil {
		return nil, err
	}
	if args, err = namedFlag(args, opts, engine.OptionRType, rtypeNames); err != nil {
		return nil, err
	}
	args = intFlags(args, opts, engine.OptionUFactor, engine.OptionPFactor, engine.OptionNIter, engine.OptionNSeps, engine.OptionSeed, engine.OptionDbgLvl)
	args = boolFlags(args, opts, engine.OptionCCOrder)
	if opts.IsSet(engine.OptionCompress) && opts[engine.OptionCompress] == 0 {
		args = append(args, "-nocompress")
	}
	return args, nil
}

// run writes g, executes program and returns the work directory, which the
// caller removes.
func (e *Engine) run(ctx context.Context, program string, g *csr.Graph, vertexWeights, edgeWeights bool, args ...string) (string, error) {
	dir, err := os.MkdirTemp(e.workDir, "gpmetis-")
	if err != nil {
		return "", fmt.Errorf("create work dir: %w", err)
	}
	path := filepath.Join(dir, graphFile)

	f, err := os.Create(path)
	if err != nil {
		os.RemoveAll(dir)
		return "", err
	}
	if err := WriteGraph(f, g, vertexWeights, edgeWeights); err != nil {
		f.Close()
		os.RemoveAll(dir)
		return "", fmt.Errorf("write graph file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.RemoveAll(dir)
		return "", err
	}

	cmd := exec.CommandContext(ctx, program, args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		os.RemoveAll(dir)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", &engine.StatusError{Status: engine.StatusFailure, Detail: fmt.Sprintf("%s: %v: %s", program, err, out)}
	}
	return dir, nil
}

func (e *Engine) partition(ctx context.Context, ptype string, g *csr.Graph, ncon, nparts int, opts engine.Options) (engine.PartitionResult, error) {
	if err := engine.ValidatePartitionArgs(g, ncon, nparts); err != nil {
		return engine.PartitionResult{}, err
	}
	if g.N == 0 {
		return engine.PartitionResult{Part: []int{}}, nil
	}
	if nparts == 1 {
		return engine.PartitionResult{Part: make([]int, g.N)}, nil
	}
	args, err := partitionArgs(ptype, opts)
	if err != nil {
		return engine.PartitionResult{}, err
	}
	args = append(args, graphFile, strconv.Itoa(nparts))

	dir, err := e.run(ctx, e.gpmetis, g, g.Vwgt != nil, g.Adjwgt != nil, args...)
	if err != nil {
		return engine.PartitionResult{}, err
	}
	defer os.RemoveAll(dir)

	f, err := os.Open(filepath.Join(dir, fmt.Sprintf("%s.part.%d", graphFile, nparts)))
	if err != nil {
		return engine.PartitionResult{}, &engine.StatusError{Status: engine.StatusFailure, Detail: err.Error()}
	}
	defer f.Close()
	part, err := ReadPartition(f, g.N, nparts)
	if err != nil {
		return engine.PartitionResult{}, &engine.StatusError{Status: engine.StatusFailure, Detail: err.Error()}
	}
	return engine.PartitionResult{EdgeCut: g.EdgeCut(part), Part: part}, nil
}

// PartGraphRecursive runs gpmetis -ptype=rb. vsize is not expressible in
// the graph file format and must be nil or all ones.
func (e *Engine) PartGraphRecursive(ctx context.Context, g *csr.Graph, ncon int, vsize []int, nparts int, opts engine.Options) (engine.PartitionResult, error) {
	for _, s := range vsize {
		if s != 1 {
			return engine.PartitionResult{}, engine.InputError("gpmetis cannot take vertex sizes")
		}
	}
	return e.partition(ctx, "rb", g, ncon, nparts, opts)
}

// PartGraphKway runs gpmetis -ptype=kway.
func (e *Engine) PartGraphKway(ctx context.Context, g *csr.Graph, ncon int, nparts int, opts engine.Options) (engine.PartitionResult, error) {
	return e.partition(ctx, "kway", g, ncon, nparts, opts)
}

// NodeND runs ndmetis. Vertex weights are written when g carries them.
func (e *Engine) NodeND(ctx context.Context, g *csr.Graph, opts engine.Options) (engine.OrderingResult, error) {
	if err := engine.ValidateGraph(g); err != nil {
		return engine.OrderingResult{}, err
	}
	if g.N == 0 {
		return engine.OrderingResult{Perm: []int{}, IPerm: []int{}}, nil
	}
	args, err := orderingArgs(opts)
	if err != nil {
		return engine.OrderingResult{}, err
	}
	args = append(args, graphFile)

	dir, err := e.run(ctx, e.ndmetis, g, g.Vwgt != nil, false, args...)
	if err != nil {
		return engine.OrderingResult{}, err
	}
	defer os.RemoveAll(dir)

	f, err := os.Open(filepath.Join(dir, graphFile+".iperm"))
	if err != nil {
		return engine.OrderingResult{}, &engine.StatusError{Status: engine.StatusFailure, Detail: err.Error()}
	}
	defer f.Close()
	perm, iperm, err := ReadIPerm(f, g.N)
	if err != nil {
		return engine.OrderingResult{}, &engine.StatusError{Status: engine.StatusFailure, Detail: err.Error()}
	}
	return engine.OrderingResult{Perm: perm, IPerm: iperm}, nil
}
