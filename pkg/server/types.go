package server

import (
	"github.com/dd0wney/cluso-graphpart/pkg/dispatch"
	"github.com/dd0wney/cluso-graphpart/pkg/partition"
	"github.com/dd0wney/cluso-graphpart/pkg/sparse"
	"github.com/dd0wney/cluso-graphpart/pkg/validation"
)

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// DispatchResponse is the result of one operation.
type DispatchResponse struct {
	RequestID  string         `json:"request_id,omitempty"`
	Operation  string         `json:"operation"`
	Engine     string         `json:"engine"`
	Part       []int          `json:"part,omitempty"`
	EdgeCut    *int           `json:"edgecut,omitempty"`
	Perm       []int          `json:"perm,omitempty"`
	IPerm      []int          `json:"iperm,omitempty"`
	Separator  []int          `json:"separator,omitempty"`
	Vertices   int            `json:"vertices"`
	Arcs       int            `json:"arcs"`
	DurationMS float64        `json:"duration_ms"`
	Quality    *QualityReport `json:"quality,omitempty"`
}

// QualityReport summarises a partition; returned when ?quality=true.
type QualityReport struct {
	Sizes       []int   `json:"sizes"`
	Weights     []int   `json:"weights"`
	CutArcs     []int   `json:"cut_arcs"`
	LoadBalance float64 `json:"load_balance"`
	Imbalance   float64 `json:"imbalance"`
	CutRatio    float64 `json:"cut_ratio"`
	EmptyParts  int     `json:"empty_parts"`
}

// BatchItem is one entry of a batch answer. Exactly one of Result and
// Error is set.
type BatchItem struct {
	JobID  string            `json:"job_id"`
	Index  int               `json:"index"`
	Result *DispatchResponse `json:"result,omitempty"`
	Error  *ErrorResponse    `json:"error,omitempty"`
}

// BatchResponse answers a batch request in request order.
type BatchResponse struct {
	RequestID string      `json:"request_id,omitempty"`
	Results   []BatchItem `json:"results"`
	Failed    int         `json:"failed"`
}

// OperationsResponse lists the supported operations.
type OperationsResponse struct {
	Operations []string `json:"operations"`
	Engine     string   `json:"engine"`
	Separator  bool     `json:"separator"`
}

// toRequest converts a validated payload. Matrix structure errors are left
// for the dispatcher to report.
func toRequest(p *validation.DispatchRequest) (*dispatch.Request, error) {
	op, err := dispatch.ParseOperation(p.Operation)
	if err != nil {
		return nil, err
	}
	req := &dispatch.Request{
		Operation: op,
		Matrix: &sparse.Matrix{
			Rows:   p.Matrix.Rows,
			Cols:   p.Matrix.Cols,
			ColPtr: p.Matrix.ColPtr,
			RowIdx: p.Matrix.RowIdx,
			Values: p.Matrix.Values,
		},
		NParts:  p.NParts,
		WgtFlag: p.WgtFlag,
		Options: dispatch.DefaultOptions(),
	}
	if o := p.Options; o != nil {
		if op == dispatch.NodeND {
			req.Options = dispatch.OrderingOptionsFromVector(o.Vector)
		} else {
			req.Options = dispatch.PartitionOptionsFromVector(o.Vector)
		}
		named := []struct {
			from *int
			to   *int
		}{
			{o.ObjType, &req.Options.ObjType},
			{o.CType, &req.Options.CType},
			{o.IPType, &req.Options.IPType},
			{o.RType, &req.Options.RType},
			{o.DbgLvl, &req.Options.DbgLvl},
			{o.NIter, &req.Options.NIter},
			{o.NCuts, &req.Options.NCuts},
			{o.UFactor, &req.Options.UFactor},
			{o.Seed, &req.Options.Seed},
		}
		for _, n := range named {
			if n.from != nil {
				*n.to = *n.from
			}
		}
	}
	return req, nil
}

func toResponse(res *dispatch.Result) *DispatchResponse {
	out := &DispatchResponse{
		Operation:  res.Operation.String(),
		Engine:     res.Engine,
		Vertices:   res.Vertices,
		Arcs:       res.Arcs,
		DurationMS: float64(res.Duration.Microseconds()) / 1000,
	}
	switch {
	case res.Operation.IsPartition():
		cut := res.EdgeCut
		out.Part = res.Part
		out.EdgeCut = &cut
	case res.Operation.IsOrdering():
		out.Perm = oneBased(res.Perm)
		out.IPerm = oneBased(res.IPerm)
	default:
		out.Separator = oneBased(res.Separator)
	}
	return out
}

func toQuality(m *partition.Metrics) *QualityReport {
	return &QualityReport{
		Sizes:       m.Sizes,
		Weights:     m.Weights,
		CutArcs:     m.CutArcs,
		LoadBalance: m.LoadBalance,
		Imbalance:   m.Imbalance,
		CutRatio:    m.CutRatio,
		EmptyParts:  m.EmptyParts,
	}
}

func oneBased(v []int) []int {
	out := make([]int, len(v))
	for i, x := range v {
		out[i] = x + 1
	}
	return out
}
