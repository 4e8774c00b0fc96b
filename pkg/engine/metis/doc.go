// Package metis binds the METIS 5 C library as an engine.
//
// The binding is only compiled with the metis build tag and cgo enabled:
//
//	go build -tags metis ./...
//
// It links against -lmetis and expects idx_t to be a 64-bit or 32-bit
// integer as configured by metis.h. Without the tag New returns
// ErrUnavailable.
package metis

import "errors"

// Name is reported by Engine.Name.
const Name = "metis"

// ErrUnavailable is returned by New when the binary was built without
// libmetis support.
var ErrUnavailable = errors.New("metis: built without libmetis support (rebuild with -tags metis)")

// Engine calls into libmetis. The zero value is ready to use once New has
// succeeded.
type Engine struct{}

// Name returns "metis".
func (e *Engine) Name() string {
	return Name
}
