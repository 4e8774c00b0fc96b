package sparse

import "errors"

var (
	// ErrDimensions is returned for negative or inconsistent matrix dimensions.
	ErrDimensions = errors.New("invalid matrix dimensions")
	// ErrMalformed is returned when the compressed arrays do not describe a matrix.
	ErrMalformed = errors.New("malformed compressed matrix")
	// ErrIndexOutOfRange is returned for a row or column index outside the matrix.
	ErrIndexOutOfRange = errors.New("index out of range")
	// ErrFormat is returned when a Matrix Market stream cannot be parsed.
	ErrFormat = errors.New("invalid matrix market data")
)
