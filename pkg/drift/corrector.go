// Package drift removes frame-to-frame spatial drift from timelapse volumes.
package drift

import (
	"context"
	"errors"
	"fmt"

	"astrowaves/internal/models"
)

// ErrUnsupportedMethod is returned for correction method names that have no implementation
var ErrUnsupportedMethod = errors.New("unsupported drift correction method")

// Method selects a drift correction strategy
type Method int

const (
	// MethodSubregion tracks a stable reference window and rolls whole frames
	MethodSubregion Method = iota
)

func (m Method) String() string {
	switch m {
	case MethodSubregion:
		return "subregion"
	default:
		return fmt.Sprintf("Method(%d)", int(m))
	}
}

// ParseMethod maps a configuration name onto a Method
func ParseMethod(name string) (Method, error) {
	switch name {
	case "subregion":
		return MethodSubregion, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedMethod, name)
	}
}

// Correct runs the selected correction method on the volume. Histogram
// alignment is not dispatched here; it lives in package pafft.
func Correct(ctx context.Context, vol *models.Volume, method Method, opts Options) (*Result, error) {
	switch method {
	case MethodSubregion:
		return CorrectBySubregion(ctx, vol, opts)
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedMethod, method)
	}
}

// CorrectByName is Correct with the method given by its configuration name
func CorrectByName(ctx context.Context, vol *models.Volume, name string, opts Options) (*Result, error) {
	method, err := ParseMethod(name)
	if err != nil {
		return nil, err
	}
	return Correct(ctx, vol, method, opts)
}
