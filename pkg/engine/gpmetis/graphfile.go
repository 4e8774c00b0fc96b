package gpmetis

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dd0wney/cluso-graphpart/pkg/csr"
)

// WriteGraph writes g in the METIS graph file format: a header with the
// vertex count, edge count and format code, then one line per vertex with
// its optional weight followed by 1-based neighbours and optional edge
// weights.
func WriteGraph(w io.Writer, g *csr.Graph, vertexWeights, edgeWeights bool) error {
	bw := bufio.NewWriter(w)

	format := ""
	switch {
	case vertexWeights && edgeWeights:
		format = " 011"
	case vertexWeights:
		format = " 010"
	case edgeWeights:
		format = " 001"
	}
	fmt.Fprintf(bw, "%d %d%s\n", g.N, g.NumArcs()/2, format)

	for v := 0; v < g.N; v++ {
		fields := make([]string, 0, 1+2*g.Degree(v))
		if vertexWeights {
			fields = append(fields, strconv.Itoa(g.VertexWeight(v)))
		}
		for j := g.Xadj[v]; j < g.Xadj[v+1]; j++ {
			fields = append(fields, strconv.Itoa(g.Adjncy[j]+1))
			if edgeWeights {
				fields = append(fields, strconv.Itoa(g.EdgeWeight(j)))
			}
		}
		bw.WriteString(strings.Join(fields, " "))
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

// readInts reads exactly n whitespace-separated integers.
func readInts(r io.Reader, n int) ([]int, error) {
	sc := bufio.NewScanner(r)
	sc.Split(bufio.ScanWords)
	out := make([]int, 0, n)
	for sc.Scan() {
		v, err := strconv.Atoi(sc.Text())
		if err != nil {
			return nil, fmt.Errorf("parse value %d: %w", len(out), err)
		}
		out = append(out, v)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(out) != n {
		return nil, fmt.Errorf("read %d values, want %d", len(out), n)
	}
	return out, nil
}

// ReadPartition parses a gpmetis .part file for n vertices.
func ReadPartition(r io.Reader, n, nparts int) ([]int, error) {
	part, err := readInts(r, n)
	if err != nil {
		return nil, err
	}
	for v, p := range part {
		if p < 0 || p >= nparts {
			return nil, fmt.Errorf("vertex %d has label %d outside [0,%d)", v, p, nparts)
		}
	}
	return part, nil
}

// ReadIPerm parses an ndmetis .iperm file and derives the permutation.
func ReadIPerm(r io.Reader, n int) (perm, iperm []int, err error) {
	iperm, err = readInts(r, n)
	if err != nil {
		return nil, nil, err
	}
	perm = make([]int, n)
	for i := range perm {
		perm[i] = -1
	}
	for v, pos := range iperm {
		if pos < 0 || pos >= n || perm[pos] != -1 {
			return nil, nil, fmt.Errorf("vertex %d has invalid position %d", v, pos)
		}
		perm[pos] = v
	}
	return perm, iperm, nil
}
