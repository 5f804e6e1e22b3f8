// Package depthmap produces per-image depth maps and person segmentation masks
// with ONNX-exported depth and segmentation models.
package depthmap

import (
	"context"
	"fmt"
	"image"
	"path/filepath"

	"github.com/lehigh-university-libraries/splatprep/internal/errs"
)

// Predictor runs one model over an image. The returned field is at the model's
// own output resolution.
type Predictor interface {
	Predict(ctx context.Context, img image.Image) (*Field, error)
	Close() error
}

// Device selects where models run.
type Device string

const (
	DeviceCPU Device = "cpu"
	DeviceGPU Device = "gpu"
)

// ParseDevice validates a --device value.
func ParseDevice(s string) (Device, error) {
	switch Device(s) {
	case DeviceCPU, DeviceGPU:
		return Device(s), nil
	}
	return "", fmt.Errorf("%w: device must be cpu or gpu, got %q", errs.ErrConfiguration, s)
}

// Kind is what a model's output means.
type Kind int

const (
	// KindDepth outputs one channel of relative depth.
	KindDepth Kind = iota
	// KindSegmentation outputs per-class logits; the field holds the arg-max
	// class id, with 0 meaning background.
	KindSegmentation
)

// ModelOptions describes how to feed a model.
type ModelOptions struct {
	Path string
	Kind Kind
	// ORTSharedLibraryPath points at libonnxruntime; empty falls back to
	// ONNXRUNTIME_SHARED_LIBRARY_PATH.
	ORTSharedLibraryPath string
	Device               Device

	InputName   string
	OutputName  string
	InputWidth  int
	InputHeight int
	Mean        [3]float32 // per RGB channel, 0..255 scale
	Std         [3]float32
}

// Default model file names inside the models directory.
const (
	DefaultDepthModel = "sapiens_1b_depth.onnx"
	DefaultSegModel   = "sapiens_1b_seg.onnx"
)

// DefaultModelOptions returns the preprocessing the 1B depth and segmentation
// models were exported with.
func DefaultModelOptions(modelsDir string, kind Kind) ModelOptions {
	name := DefaultDepthModel
	if kind == KindSegmentation {
		name = DefaultSegModel
	}
	return ModelOptions{
		Path:        filepath.Join(modelsDir, name),
		Kind:        kind,
		Device:      DeviceGPU,
		InputName:   "input",
		OutputName:  "output",
		InputWidth:  768,
		InputHeight: 1024,
		Mean:        [3]float32{123.5, 116.5, 103.5},
		Std:         [3]float32{58.5, 57.0, 57.5},
	}
}

// argmaxChannels reduces a [C,H,W] logit block to a class-id field.
func argmaxChannels(data []float32, c, w, h int) *Field {
	out := NewField(w, h)
	plane := w * h
	for i := 0; i < plane; i++ {
		best, bestIdx := data[i], 0
		for k := 1; k < c; k++ {
			if v := data[k*plane+i]; v > best {
				best, bestIdx = v, k
			}
		}
		out.Data[i] = float32(bestIdx)
	}
	return out
}
