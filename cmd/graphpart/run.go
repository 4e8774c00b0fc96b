package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dd0wney/cluso-graphpart/pkg/config"
	"github.com/dd0wney/cluso-graphpart/pkg/dispatch"
	"github.com/dd0wney/cluso-graphpart/pkg/engine"
	"github.com/dd0wney/cluso-graphpart/pkg/gateway"
	"github.com/dd0wney/cluso-graphpart/pkg/logging"
	"github.com/dd0wney/cluso-graphpart/pkg/server"
	"github.com/dd0wney/cluso-graphpart/pkg/sparse"
	"github.com/dd0wney/cluso-graphpart/pkg/transport"
	"github.com/dd0wney/cluso-graphpart/pkg/validation"
)

// commonFlags are shared by the partition, order and bisect commands.
type commonFlags struct {
	configPath string
	remote     string
	token      string
	apiKey     string
	seed       int
	options    string
	out        string
	timeout    time.Duration
}

func (c *commonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&c.configPath, "config", os.Getenv("GRAPHPART_CONFIG"), "YAML configuration file")
	fs.StringVar(&c.remote, "remote", os.Getenv("GRAPHPART_REMOTE"), "socket address of a graphpart-server, e.g. tcp://host:40899 (default: run locally)")
	fs.StringVar(&c.token, "token", os.Getenv("GRAPHPART_TOKEN"), "bearer token for -remote")
	fs.StringVar(&c.apiKey, "api-key", os.Getenv("GRAPHPART_API_KEY"), "API key for -remote")
	fs.IntVar(&c.seed, "seed", engine.SeedUnset, "random seed (-1: engine default)")
	fs.StringVar(&c.options, "options", "", "comma-separated positional option vector")
	fs.StringVar(&c.out, "out", "", "output file (default: stdout)")
	fs.DurationVar(&c.timeout, "timeout", 0, "give up after this long (0: no limit)")
}

// call is one positional request before it is sent anywhere.
type call struct {
	op      string
	matrix  *sparse.Matrix
	nparts  int
	wgtflag int
	options []int
	seed    int
	nout    int
}

// args lays the call out in gateway argument order.
func (c *call) args() []any {
	var opts any
	if len(c.options) > 0 {
		opts = c.options
	}
	op, err := dispatch.ParseOperation(c.op)
	if err != nil {
		return []any{c.op, c.matrix}
	}
	switch {
	case op.IsPartition():
		return []any{c.op, c.matrix, c.nparts, c.wgtflag, opts, c.seed}
	case op.IsOrdering():
		return []any{c.op, c.matrix, opts, c.seed}
	default:
		return []any{c.op, c.matrix, c.wgtflag, opts, c.seed}
	}
}

func (c *call) payload() *validation.DispatchRequest {
	m := c.matrix
	p := &validation.DispatchRequest{
		Operation: c.op,
		Matrix: &validation.MatrixPayload{
			Rows:   m.Rows,
			Cols:   m.Cols,
			ColPtr: m.ColPtr,
			RowIdx: m.RowIdx,
			Values: m.Values,
		},
		NParts:  c.nparts,
		WgtFlag: c.wgtflag,
	}
	seed := c.seed
	p.Options = &validation.OptionsPayload{Vector: c.options, Seed: &seed}
	return p
}

func handlePartition(args []string) error {
	fs := flag.NewFlagSet("partition", flag.ExitOnError)
	var common commonFlags
	common.register(fs)
	method := fs.String("method", "kway", "recursive or kway")
	nparts := fs.Int("nparts", 2, "number of parts")
	wgtflag := fs.Int("wgtflag", 0, "1 to use diagonal entries as vertex weights (recursive only)")
	fs.Parse(args)

	var op string
	switch strings.ToLower(*method) {
	case "recursive", "rb":
		op = dispatch.PartGraphRecursive.String()
	case "kway":
		op = dispatch.PartGraphKway.String()
	default:
		return fmt.Errorf("unknown method %q", *method)
	}
	c, err := newCall(fs, &common, op)
	if err != nil {
		return err
	}
	c.nparts, c.wgtflag, c.nout = *nparts, *wgtflag, 2

	out, err := execute(&common, c)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "edgecut: %d\n", int(out[1][0]))
	return writeOutput(common.out, out[:1])
}

func handleOrder(args []string) error {
	fs := flag.NewFlagSet("order", flag.ExitOnError)
	var common commonFlags
	common.register(fs)
	method := fs.String("method", "nodend", "nodend or edgend")
	fs.Parse(args)

	var op string
	switch strings.ToLower(*method) {
	case "nodend":
		op = dispatch.NodeND.String()
	case "edgend":
		op = dispatch.EdgeND.String()
	default:
		return fmt.Errorf("unknown method %q", *method)
	}
	c, err := newCall(fs, &common, op)
	if err != nil {
		return err
	}
	c.nout = 2

	out, err := execute(&common, c)
	if err != nil {
		return err
	}
	return writeOutput(common.out, out)
}

func handleBisect(args []string) error {
	fs := flag.NewFlagSet("bisect", flag.ExitOnError)
	var common commonFlags
	common.register(fs)
	wgtflag := fs.Int("wgtflag", 0, "1 to use diagonal entries as vertex weights")
	fs.Parse(args)

	c, err := newCall(fs, &common, dispatch.NodeBisect.String())
	if err != nil {
		return err
	}
	c.wgtflag, c.nout = *wgtflag, 1

	out, err := execute(&common, c)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "separator: %d vertices\n", len(out[0]))
	return writeOutput(common.out, out)
}

// newCall reads the matrix named by the single positional argument.
func newCall(fs *flag.FlagSet, common *commonFlags, op string) (*call, error) {
	if fs.NArg() != 1 {
		return nil, fmt.Errorf("%s: expected one matrix file, got %d arguments", fs.Name(), fs.NArg())
	}
	opts, err := parseIntList(common.options)
	if err != nil {
		return nil, fmt.Errorf("-options: %w", err)
	}
	m, err := sparse.ReadFile(fs.Arg(0))
	if err != nil {
		return nil, err
	}
	return &call{op: op, matrix: m, options: opts, seed: common.seed}, nil
}

// execute runs c locally through the gateway or on a remote server, and
// returns the outputs in the gateway convention either way.
func execute(common *commonFlags, c *call) ([][]float64, error) {
	ctx := context.Background()
	if common.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, common.timeout)
		defer cancel()
	}
	if common.remote != "" {
		return executeRemote(ctx, common, c)
	}

	env, err := openLocal(common.configPath)
	if err != nil {
		return nil, err
	}
	defer env.Close()

	timer := logging.StartTimer(env.logger, "command complete", logging.Operation(c.op), logging.Vertices(c.matrix.Rows))
	out, err := gateway.New(env.dispatcher).Call(ctx, c.nout, c.args()...)
	if err != nil {
		timer.EndWarn(err)
		return nil, err
	}
	timer.EndDebug()
	return out, nil
}

func executeRemote(ctx context.Context, common *commonFlags, c *call) ([][]float64, error) {
	client, err := transport.Dial(common.remote, common.timeout)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", common.remote, err)
	}
	defer client.Close()

	resp, err := client.Call(ctx, &transport.Request{
		Token:    common.token,
		APIKey:   common.apiKey,
		Dispatch: c.payload(),
	})
	if err != nil {
		return nil, err
	}
	return remoteOutputs(resp, c.nout), nil
}

// remoteOutputs rebuilds gateway outputs from an API answer, which already
// uses the same index bases.
func remoteOutputs(resp *server.DispatchResponse, nout int) [][]float64 {
	var all [][]float64
	switch {
	case resp.EdgeCut != nil:
		all = [][]float64{floats(resp.Part), {float64(*resp.EdgeCut)}}
	case resp.Perm != nil:
		all = [][]float64{floats(resp.Perm), floats(resp.IPerm)}
	default:
		all = [][]float64{floats(resp.Separator)}
	}
	if nout < len(all) {
		all = all[:nout]
	}
	return all
}

func floats(v []int) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}

// parseIntList parses "1,0,3". An empty string gives nil.
func parseIntList(s string) ([]int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	fields := strings.Split(s, ",")
	out := make([]int, len(fields))
	for i, f := range fields {
		n, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}

// writeOutput writes the columns side by side, one row per line.
func writeOutput(path string, columns [][]float64) error {
	if path == "" {
		return writeColumns(os.Stdout, columns)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := writeColumns(f, columns); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writeColumns(w io.Writer, columns [][]float64) error {
	bw := bufio.NewWriter(w)
	if len(columns) > 0 {
		for i := range columns[0] {
			for j, col := range columns {
				if j > 0 {
					bw.WriteByte(' ')
				}
				bw.WriteString(strconv.FormatInt(int64(col[i]), 10))
			}
			bw.WriteByte('\n')
		}
	}
	return bw.Flush()
}

// localEnv holds what a local run needs.
type localEnv struct {
	cfg        *config.Config
	logger     logging.Logger
	dispatcher *dispatch.Dispatcher
	closer     io.Closer
}

func openLocal(configPath string) (*localEnv, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger, closer, err := logging.Open(cfg.Logging.Output, cfg.LogLevel())
	if err != nil {
		return nil, err
	}
	e, err := cfg.Engine.Open()
	if err != nil {
		closer.Close()
		return nil, err
	}
	return &localEnv{
		cfg:        cfg,
		logger:     logger,
		dispatcher: dispatch.New(e, dispatch.Config{Logger: logger}),
		closer:     closer,
	}, nil
}

func (e *localEnv) Close() error {
	return e.closer.Close()
}
