package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dd0wney/cluso-graphpart/pkg/batch"
	"github.com/dd0wney/cluso-graphpart/pkg/dispatch"
	"github.com/dd0wney/cluso-graphpart/pkg/engine"
	"github.com/dd0wney/cluso-graphpart/pkg/gateway"
	"github.com/dd0wney/cluso-graphpart/pkg/sparse"
)

// jobFile is the YAML document read by the batch command.
//
//	jobs:
//	  - operation: PartGraphKway
//	    matrix: bcsstk01.mtx
//	    nparts: 4
//	    out: bcsstk01.part
//	  - operation: NodeND
//	    matrix: bcsstk01.mtx.sz
//	    seed: 7
type jobFile struct {
	Jobs []jobSpec `yaml:"jobs"`
}

type jobSpec struct {
	Operation string `yaml:"operation"`
	Matrix    string `yaml:"matrix"`
	NParts    int    `yaml:"nparts"`
	WgtFlag   int    `yaml:"wgtflag"`
	Options   []int  `yaml:"options"`
	Seed      *int   `yaml:"seed"`
	Out       string `yaml:"out"`
}

// loadJobs reads a job file. Matrix and output paths are relative to the
// file's directory.
func loadJobs(path string) ([]jobSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f jobFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(f.Jobs) == 0 {
		return nil, fmt.Errorf("%s: no jobs", path)
	}
	dir := filepath.Dir(path)
	for i := range f.Jobs {
		j := &f.Jobs[i]
		if j.Matrix == "" {
			return nil, fmt.Errorf("%s: job %d has no matrix", path, i)
		}
		if !filepath.IsAbs(j.Matrix) {
			j.Matrix = filepath.Join(dir, j.Matrix)
		}
		if j.Out != "" && !filepath.IsAbs(j.Out) {
			j.Out = filepath.Join(dir, j.Out)
		}
	}
	return f.Jobs, nil
}

// request builds the typed request for a job, reading its matrix.
func (j *jobSpec) request(cache map[string]*sparse.Matrix) (*dispatch.Request, error) {
	op, err := dispatch.ParseOperation(j.Operation)
	if err != nil {
		return nil, err
	}
	m, ok := cache[j.Matrix]
	if !ok {
		if m, err = sparse.ReadFile(j.Matrix); err != nil {
			return nil, err
		}
		cache[j.Matrix] = m
	}

	req := &dispatch.Request{Operation: op, Matrix: m, NParts: j.NParts, WgtFlag: j.WgtFlag}
	if op == dispatch.NodeND {
		req.Options = dispatch.OrderingOptionsFromVector(j.Options)
	} else {
		req.Options = dispatch.PartitionOptionsFromVector(j.Options)
	}
	req.Options.Seed = engine.SeedUnset
	if j.Seed != nil {
		req.Options.Seed = *j.Seed
	}
	return req, nil
}

func handleBatch(args []string) error {
	fs := flag.NewFlagSet("batch", flag.ExitOnError)
	configPath := fs.String("config", os.Getenv("GRAPHPART_CONFIG"), "YAML configuration file")
	workers := fs.Int("workers", 0, "concurrent jobs (default: from config, else one per CPU)")
	fs.Parse(args)

	if fs.NArg() != 1 {
		return fmt.Errorf("batch: expected one job file, got %d arguments", fs.NArg())
	}
	jobs, err := loadJobs(fs.Arg(0))
	if err != nil {
		return err
	}

	env, err := openLocal(*configPath)
	if err != nil {
		return err
	}
	defer env.Close()

	cache := make(map[string]*sparse.Matrix)
	reqs := make([]*dispatch.Request, len(jobs))
	for i := range jobs {
		if reqs[i], err = jobs[i].request(cache); err != nil {
			return fmt.Errorf("job %d: %w", i, err)
		}
	}

	n := env.cfg.Batch.Workers
	if *workers > 0 {
		n = *workers
	}
	runner, err := batch.NewRunner(env.dispatcher, batch.Config{
		Workers:   n,
		QueueSize: env.cfg.Batch.QueueSize,
		Logger:    env.logger,
	})
	if err != nil {
		return err
	}
	defer runner.Close()

	outcomes := runner.Run(context.Background(), reqs)
	rows := make([][]string, len(outcomes))
	for i, o := range outcomes {
		rows[i] = outcomeRow(jobs[i], o)
		if o.Err == nil && jobs[i].Out != "" {
			if err := writeOutput(jobs[i].Out, resultColumns(o.Result)); err != nil {
				rows[i][3] = errorStyle.Render("write: " + err.Error())
			}
		}
	}

	fmt.Println(titleStyle.Render(fmt.Sprintf("Batch: %d jobs on %d workers", len(jobs), runner.Workers())))
	fmt.Println(renderTable([]string{"#", "Operation", "Matrix", "Result", "Time"}, rows))

	if failed := batch.Failed(outcomes); failed > 0 {
		return fmt.Errorf("%d of %d jobs failed", failed, len(outcomes))
	}
	return nil
}

// resultColumns lays a result out the way the single-shot commands write
// it: labels, permutation pair or separator.
func resultColumns(res *dispatch.Result) [][]float64 {
	out := gateway.Outputs(res, 2)
	if res.Operation.IsPartition() {
		out = out[:1]
	}
	return out
}

func outcomeRow(j jobSpec, o batch.Outcome) []string {
	row := []string{strconv.Itoa(o.Index), j.Operation, filepath.Base(j.Matrix), "", ""}
	if o.Err != nil {
		row[3] = errorStyle.Render(o.Err.Error())
		return row
	}
	res := o.Result
	switch {
	case res.Operation.IsPartition():
		row[3] = successStyle.Render(fmt.Sprintf("edgecut %d", res.EdgeCut))
	case res.Operation.IsOrdering():
		row[3] = successStyle.Render(fmt.Sprintf("ordered %d", len(res.Perm)))
	default:
		row[3] = successStyle.Render(fmt.Sprintf("separator %d", len(res.Separator)))
	}
	row[4] = res.Duration.Round(10 * time.Microsecond).String()
	return row
}
