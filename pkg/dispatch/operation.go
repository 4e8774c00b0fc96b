package dispatch

import (
	"strings"
)

// Operation selects what a request asks the engine to do.
type Operation int

const (
	PartGraphRecursive Operation = iota + 1
	PartGraphKway
	EdgeND
	NodeND
	NodeBisect
)

var operationNames = map[Operation]string{
	PartGraphRecursive: "PartGraphRecursive",
	PartGraphKway:      "PartGraphKway",
	EdgeND:             "EdgeND",
	NodeND:             "NodeND",
	NodeBisect:         "NodeBisect",
}

// Operations lists every operation in declaration order.
func Operations() []Operation {
	return []Operation{PartGraphRecursive, PartGraphKway, EdgeND, NodeND, NodeBisect}
}

func (op Operation) String() string {
	if name, ok := operationNames[op]; ok {
		return name
	}
	return "Unknown"
}

// metricName is the lower-case label used in metrics and logs.
func (op Operation) metricName() string {
	return strings.ToLower(op.String())
}

// IsPartition reports whether op returns part labels and an edge cut.
func (op Operation) IsPartition() bool {
	return op == PartGraphRecursive || op == PartGraphKway
}

// IsOrdering reports whether op returns a permutation pair.
func (op Operation) IsOrdering() bool {
	return op == EdgeND || op == NodeND
}

// ParseOperation resolves a case-insensitive operation name.
func ParseOperation(name string) (Operation, error) {
	for op, n := range operationNames {
		if strings.EqualFold(n, name) {
			return op, nil
		}
	}
	return 0, &UsageError{Err: ErrUnknownOperation, Detail: name}
}
