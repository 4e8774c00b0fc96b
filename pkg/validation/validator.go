package validation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	// validate is a singleton validator instance
	validate *validator.Validate

	// MaxDimension bounds the matrix order accepted over the API.
	MaxDimension = 1 << 24
	// MaxNonZeros bounds the stored entries accepted over the API.
	MaxNonZeros = 1 << 27
	// MaxBatchSize bounds the number of requests in one batch.
	MaxBatchSize = 1000
)

// operationNames are the accepted operation names, compared case-insensitively.
var operationNames = []string{"partgraphrecursive", "partgraphkway", "edgend", "nodend", "nodebisect"}

func init() {
	validate = validator.New()
	validate.RegisterValidation("operation", func(fl validator.FieldLevel) bool {
		name := strings.ToLower(fl.Field().String())
		for _, op := range operationNames {
			if name == op {
				return true
			}
		}
		return false
	})
}

// MatrixPayload is a column-compressed matrix as sent over the API.
type MatrixPayload struct {
	Rows   int       `json:"rows" validate:"min=0"`
	Cols   int       `json:"cols" validate:"min=0"`
	ColPtr []int     `json:"colptr" validate:"required"`
	RowIdx []int     `json:"rowidx" validate:"dive,min=0"`
	Values []float64 `json:"values"`
}

// OptionsPayload carries named engine options. Nil fields stay at the
// engine default. Vector is the legacy positional form and is applied
// before the named fields.
type OptionsPayload struct {
	ObjType *int  `json:"objtype,omitempty" validate:"omitempty,min=0,max=1"`
	CType   *int  `json:"ctype,omitempty" validate:"omitempty,min=0,max=1"`
	IPType  *int  `json:"iptype,omitempty" validate:"omitempty,min=0,max=4"`
	RType   *int  `json:"rtype,omitempty" validate:"omitempty,min=0,max=3"`
	DbgLvl  *int  `json:"dbglvl,omitempty" validate:"omitempty,min=0"`
	NIter   *int  `json:"niter,omitempty" validate:"omitempty,min=1"`
	NCuts   *int  `json:"ncuts,omitempty" validate:"omitempty,min=1"`
	UFactor *int  `json:"ufactor,omitempty" validate:"omitempty,min=1"`
	Seed    *int  `json:"seed,omitempty"`
	Vector  []int `json:"vector,omitempty" validate:"omitempty,max=6"`
}

// DispatchRequest is the body of a dispatch call.
type DispatchRequest struct {
	Operation string          `json:"operation" validate:"required,operation"`
	Matrix    *MatrixPayload  `json:"matrix" validate:"required"`
	// NParts is capped at MaxDimension.
	NParts    int             `json:"nparts" validate:"min=0,max=16777216"`
	WgtFlag   int             `json:"wgtflag" validate:"min=0"`
	Options   *OptionsPayload `json:"options,omitempty"`
}

// BatchRequest is the body of a batch call.
type BatchRequest struct {
	Requests []*DispatchRequest `json:"requests" validate:"required,min=1,dive,required"`
}

// ValidateDispatchRequest validates a dispatch request body. Squareness and
// nparts are left to the dispatcher, which reports them as usage errors.
func ValidateDispatchRequest(req *DispatchRequest) error {
	if req == nil {
		return errors.New("dispatch request cannot be nil")
	}
	if err := validate.Struct(req); err != nil {
		return formatValidationError(err)
	}
	return validateMatrix(req.Matrix)
}

// ValidateBatchRequest validates every request of a batch.
func ValidateBatchRequest(req *BatchRequest) error {
	if req == nil {
		return errors.New("batch request cannot be nil")
	}
	if err := ValidateBatchSize(len(req.Requests)); err != nil {
		return err
	}
	if err := validate.Struct(req); err != nil {
		return formatValidationError(err)
	}
	for i, r := range req.Requests {
		if err := validateMatrix(r.Matrix); err != nil {
			return fmt.Errorf("Requests[%d]: %w", i, err)
		}
	}
	return nil
}

func validateMatrix(m *MatrixPayload) error {
	if m.Rows > MaxDimension || m.Cols > MaxDimension {
		return fmt.Errorf("Matrix: dimension %dx%d exceeds maximum %d", m.Rows, m.Cols, MaxDimension)
	}
	if len(m.ColPtr) != m.Cols+1 {
		return fmt.Errorf("Matrix.ColPtr: has %d entries, want %d", len(m.ColPtr), m.Cols+1)
	}
	if len(m.RowIdx) != len(m.Values) {
		return fmt.Errorf("Matrix.Values: has %d entries, RowIdx has %d", len(m.Values), len(m.RowIdx))
	}
	if len(m.RowIdx) > MaxNonZeros {
		return fmt.Errorf("Matrix: %d stored entries exceed maximum %d", len(m.RowIdx), MaxNonZeros)
	}
	return nil
}

// ValidateBatchSize validates the size of a batch request
func ValidateBatchSize(size int) error {
	if size < 1 {
		return fmt.Errorf("batch size must be at least 1, got %d", size)
	}
	if size > MaxBatchSize {
		return fmt.Errorf("batch size must not exceed %d, got %d", MaxBatchSize, size)
	}
	return nil
}

// formatValidationError converts validator errors to a more user-friendly format
func formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	for _, e := range validationErrs {
		field := e.Namespace()
		if i := strings.IndexByte(field, '.'); i >= 0 {
			field = field[i+1:]
		}
		switch e.Tag() {
		case "required":
			return fmt.Errorf("%s: field is required", field)
		case "min":
			return fmt.Errorf("%s: must be at least %s", field, e.Param())
		case "max":
			return fmt.Errorf("%s: must not exceed %s", field, e.Param())
		case "operation":
			return fmt.Errorf("%s: unknown operation %q", field, e.Value())
		default:
			return fmt.Errorf("%s: validation failed (%s)", field, e.Tag())
		}
	}
	return err
}
