package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/dd0wney/cluso-graphpart/pkg/csr"
	"github.com/dd0wney/cluso-graphpart/pkg/dispatch"
	"github.com/dd0wney/cluso-graphpart/pkg/partition"
	"github.com/dd0wney/cluso-graphpart/pkg/sparse"
)

// reportRow is one labelling measured on the same graph.
type reportRow struct {
	name    string
	metrics *partition.Metrics
}

func handleReport(args []string) error {
	fs := flag.NewFlagSet("report", flag.ExitOnError)
	configPath := fs.String("config", os.Getenv("GRAPHPART_CONFIG"), "YAML configuration file")
	nparts := fs.Int("nparts", 2, "number of parts")
	seed := fs.Int("seed", -1, "random seed (-1: engine default)")
	fs.Parse(args)

	if fs.NArg() != 1 {
		return fmt.Errorf("report: expected one matrix file, got %d arguments", fs.NArg())
	}
	m, err := sparse.ReadFile(fs.Arg(0))
	if err != nil {
		return err
	}
	env, err := openLocal(*configPath)
	if err != nil {
		return err
	}
	defer env.Close()

	rows, err := compare(context.Background(), env.dispatcher, m, *nparts, *seed)
	if err != nil {
		return err
	}
	title := fmt.Sprintf("%s: %d vertices, %d parts, engine %s", fs.Arg(0), m.Rows, *nparts, env.dispatcher.Engine().Name())
	return writeReport(os.Stdout, title, rows)
}

// compare partitions m with both engine methods and measures them next to
// hash and range labellings.
func compare(ctx context.Context, d *dispatch.Dispatcher, m *sparse.Matrix, nparts, seed int) ([]reportRow, error) {
	g := csr.Convert(m)
	var rows []reportRow

	for _, op := range []dispatch.Operation{dispatch.PartGraphKway, dispatch.PartGraphRecursive} {
		opts := dispatch.DefaultOptions()
		opts.Seed = seed
		res, err := d.Dispatch(ctx, &dispatch.Request{Operation: op, Matrix: m, NParts: nparts, WgtFlag: 1, Options: opts})
		if err != nil {
			return nil, err
		}
		met, err := partition.ComputeMetrics(g, res.Part, nparts)
		if err != nil {
			return nil, err
		}
		rows = append(rows, reportRow{name: op.String(), metrics: met})
	}

	baselines := []struct {
		name     string
		strategy partition.Strategy
	}{
		{"hash", partition.NewHashStrategy(nparts)},
		{"range", partition.NewRangeStrategy(nparts, g.N)},
	}
	for _, b := range baselines {
		met, err := partition.ComputeMetrics(g, partition.Labels(b.strategy, g.N), nparts)
		if err != nil {
			return nil, err
		}
		rows = append(rows, reportRow{name: b.name, metrics: met})
	}
	return rows, nil
}

func writeReport(w io.Writer, title string, rows []reportRow) error {
	table := make([][]string, len(rows))
	for i, r := range rows {
		m := r.metrics
		table[i] = []string{
			r.name,
			strconv.Itoa(m.EdgeCut),
			fmt.Sprintf("%.1f%%", 100*m.CutRatio),
			fmt.Sprintf("%.3f", m.Imbalance),
			fmt.Sprintf("%.3f", m.LoadBalance),
			joinInts(m.Sizes),
		}
	}
	_, err := fmt.Fprintln(w, titleStyle.Render(title)+"\n"+
		renderTable([]string{"Labelling", "Edge cut", "Cut arcs", "Imbalance", "Balance", "Sizes"}, table))
	return err
}

func joinInts(v []int) string {
	s := make([]string, len(v))
	for i, x := range v {
		s[i] = strconv.Itoa(x)
	}
	return strings.Join(s, "/")
}
