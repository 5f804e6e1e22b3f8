//go:build !cgo

package depthmap

import (
	"context"
	"errors"
	"image"
)

// ErrCGORequired is returned when inference is attempted in a build without cgo.
var ErrCGORequired = errors.New("depth inference requires CGO support; rebuild with CGO_ENABLED=1")

// ONNXPredictor is unavailable without cgo.
type ONNXPredictor struct{}

// NewONNXPredictor always fails in non-cgo builds.
func NewONNXPredictor(opts ModelOptions) (*ONNXPredictor, error) {
	return nil, ErrCGORequired
}

func (p *ONNXPredictor) Predict(ctx context.Context, img image.Image) (*Field, error) {
	return nil, ErrCGORequired
}

func (p *ONNXPredictor) Close() error { return nil }
