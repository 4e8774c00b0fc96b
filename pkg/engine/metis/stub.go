//go:build !(metis && cgo)

package metis

import "github.com/dd0wney/cluso-graphpart/pkg/engine"

// New reports ErrUnavailable in builds without libmetis.
func New() (*Engine, error) {
	return nil, ErrUnavailable
}

// Available reports whether libmetis was linked in.
func Available() bool {
	return false
}

// Open is New returning the engine interface.
func Open() (engine.Engine, error) {
	return nil, ErrUnavailable
}
