package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dd0wney/cluso-graphpart/pkg/dispatch"
	"github.com/dd0wney/cluso-graphpart/pkg/engine/native"
	"github.com/dd0wney/cluso-graphpart/pkg/gateway"
	"github.com/dd0wney/cluso-graphpart/pkg/server"
	"github.com/dd0wney/cluso-graphpart/pkg/sparse"
)

// cycle8 is the 8-cycle with unit diagonal.
func cycle8(t *testing.T) *sparse.Matrix {
	t.Helper()
	var entries []sparse.Triplet
	for i := 0; i < 8; i++ {
		j := (i + 1) % 8
		entries = append(entries,
			sparse.Triplet{Row: i, Col: i, Value: 1},
			sparse.Triplet{Row: i, Col: j, Value: 1},
			sparse.Triplet{Row: j, Col: i, Value: 1})
	}
	m, err := sparse.FromTriplets(8, 8, entries)
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func TestParseIntList(t *testing.T) {
	tests := []struct {
		in      string
		want    []int
		wantErr bool
	}{
		{"", nil, false},
		{"1,0,3", []int{1, 0, 3}, false},
		{" 2 , 5 ", []int{2, 5}, false},
		{"1,x", nil, true},
	}
	for _, tt := range tests {
		got, err := parseIntList(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseIntList(%q) error = %v", tt.in, err)
			continue
		}
		if len(got) != len(tt.want) {
			t.Errorf("parseIntList(%q) = %v, want %v", tt.in, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("parseIntList(%q) = %v, want %v", tt.in, got, tt.want)
			}
		}
	}
}

func TestWriteColumns(t *testing.T) {
	var buf bytes.Buffer
	if err := writeColumns(&buf, [][]float64{{3, 1, 2}, {2, 3, 1}}); err != nil {
		t.Fatal(err)
	}
	if want := "3 2\n1 3\n2 1\n"; buf.String() != want {
		t.Errorf("writeColumns() = %q, want %q", buf.String(), want)
	}
}

func TestCallArgs_RunThroughGateway(t *testing.T) {
	g := gateway.New(dispatch.New(native.New(), dispatch.Config{}))
	m := cycle8(t)

	tests := []struct {
		c    call
		outs int
	}{
		{call{op: "PartGraphKway", matrix: m, nparts: 2, seed: -1, nout: 2}, 2},
		{call{op: "PartGraphRecursive", matrix: m, nparts: 2, options: []int{0, 1, 0}, seed: 3, nout: 2}, 2},
		{call{op: "NodeND", matrix: m, seed: -1, nout: 2}, 2},
		{call{op: "EdgeND", matrix: m, seed: 11, nout: 2}, 2},
		{call{op: "NodeBisect", matrix: m, seed: -1, nout: 1}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.c.op, func(t *testing.T) {
			out, err := g.Call(context.Background(), tt.c.nout, tt.c.args()...)
			if err != nil {
				t.Fatalf("Call: %v", err)
			}
			if len(out) != tt.outs {
				t.Errorf("got %d outputs, want %d", len(out), tt.outs)
			}
		})
	}
}

func TestRemoteOutputs(t *testing.T) {
	cut := 2
	part := remoteOutputs(&server.DispatchResponse{Part: []int{0, 0, 1, 1}, EdgeCut: &cut}, 2)
	if len(part) != 2 || part[1][0] != 2 || part[0][2] != 1 {
		t.Errorf("partition outputs = %v", part)
	}
	ord := remoteOutputs(&server.DispatchResponse{Perm: []int{2, 1}, IPerm: []int{2, 1}}, 1)
	if len(ord) != 1 || ord[0][0] != 2 {
		t.Errorf("ordering outputs = %v", ord)
	}
	sep := remoteOutputs(&server.DispatchResponse{Separator: []int{4}}, 2)
	if len(sep) != 1 || sep[0][0] != 4 {
		t.Errorf("separator outputs = %v", sep)
	}
}

func TestLoadJobs(t *testing.T) {
	dir := t.TempDir()
	if err := sparse.WriteFile(filepath.Join(dir, "c8.mtx.sz"), cycle8(t)); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "jobs.yaml")
	body := `
jobs:
  - operation: PartGraphKway
    matrix: c8.mtx.sz
    nparts: 2
    out: c8.part
  - operation: nodend
    matrix: c8.mtx.sz
    options: [0, 0, 0, 0, 10]
    seed: 7
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	jobs, err := loadJobs(path)
	if err != nil {
		t.Fatalf("loadJobs: %v", err)
	}
	if len(jobs) != 2 || jobs[0].Out != filepath.Join(dir, "c8.part") {
		t.Fatalf("jobs = %+v", jobs)
	}

	cache := map[string]*sparse.Matrix{}
	req, err := jobs[1].request(cache)
	if err != nil {
		t.Fatal(err)
	}
	if req.Operation != dispatch.NodeND || req.Options.Seed != 7 || req.Options.NIter != 10 {
		t.Errorf("request = %+v", req)
	}
	if _, err := jobs[0].request(cache); err != nil || len(cache) != 1 {
		t.Errorf("matrix should be read once: %v, cache %d", err, len(cache))
	}

	if err := os.WriteFile(path, []byte("jobs: []\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := loadJobs(path); err == nil {
		t.Error("empty job list should fail")
	}
}

func TestCompareAndReport(t *testing.T) {
	d := dispatch.New(native.New(), dispatch.Config{})
	rows, err := compare(context.Background(), d, cycle8(t), 2, -1)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 4 {
		t.Fatalf("got %d rows, want 4", len(rows))
	}
	// A contiguous split of the cycle cuts two edges; hashing cuts more.
	if rows[0].metrics.EdgeCut != 2 {
		t.Errorf("%s edge cut = %d, want 2", rows[0].name, rows[0].metrics.EdgeCut)
	}
	if rows[2].metrics.EdgeCut <= rows[0].metrics.EdgeCut {
		t.Errorf("hash edge cut %d should exceed engine cut %d", rows[2].metrics.EdgeCut, rows[0].metrics.EdgeCut)
	}

	var buf bytes.Buffer
	if err := writeReport(&buf, "c8", rows); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"PartGraphKway", "PartGraphRecursive", "hash", "range", "4/4"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("report missing %q:\n%s", want, buf.String())
		}
	}
}

func TestHandleCert(t *testing.T) {
	if got := splitHosts(" a.local, ,10.0.0.1 "); strings.Join(got, "|") != "a.local|10.0.0.1" {
		t.Errorf("splitHosts = %q", got)
	}

	dir := t.TempDir()
	certFile := filepath.Join(dir, "server.crt")
	keyFile := filepath.Join(dir, "server.key")
	if err := handleCert([]string{"-hosts", "graphpart.local", "-cert", certFile, "-key", keyFile, "-valid-for", "2h"}); err != nil {
		t.Fatalf("handleCert: %v", err)
	}
	for _, f := range []string{certFile, keyFile} {
		if _, err := os.Stat(f); err != nil {
			t.Errorf("%s: %v", f, err)
		}
	}
}
