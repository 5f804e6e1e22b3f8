//go:build cgo

package depthmap

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"os"
	"sync"

	resize "github.com/nfnt/resize"
	ort "github.com/yalue/onnxruntime_go"
	"golang.org/x/image/draw"

	"github.com/lehigh-university-libraries/splatprep/internal/errs"
)

var (
	envMu    sync.Mutex
	envUsers int
)

func acquireEnvironment(libPath string) error {
	envMu.Lock()
	defer envMu.Unlock()
	if envUsers == 0 {
		if libPath == "" {
			libPath = os.Getenv("ONNXRUNTIME_SHARED_LIBRARY_PATH")
		}
		if libPath != "" {
			ort.SetSharedLibraryPath(libPath)
		}
		if err := ort.InitializeEnvironment(); err != nil {
			return fmt.Errorf("failed to initialise onnxruntime: %w", err)
		}
	}
	envUsers++
	return nil
}

func releaseEnvironment() {
	envMu.Lock()
	defer envMu.Unlock()
	envUsers--
	if envUsers == 0 {
		_ = ort.DestroyEnvironment()
	}
}

// ONNXPredictor runs a model through onnxruntime. Calls are serialised because
// the session's input and output tensors are reused.
type ONNXPredictor struct {
	mu       sync.Mutex
	opts     ModelOptions
	session  *ort.AdvancedSession
	input    *ort.Tensor[float32]
	output   *ort.Tensor[float32]
	channels int
	outW     int
	outH     int
}

// NewONNXPredictor loads the model at opts.Path.
func NewONNXPredictor(opts ModelOptions) (*ONNXPredictor, error) {
	if _, err := os.Stat(opts.Path); err != nil {
		return nil, errs.NotFound("model", opts.Path)
	}
	if opts.InputWidth <= 0 || opts.InputHeight <= 0 {
		return nil, fmt.Errorf("%w: invalid input size %dx%d", errs.ErrConfiguration, opts.InputWidth, opts.InputHeight)
	}
	if err := acquireEnvironment(opts.ORTSharedLibraryPath); err != nil {
		return nil, err
	}

	p := &ONNXPredictor{opts: opts}
	if err := p.init(); err != nil {
		p.destroy()
		releaseEnvironment()
		return nil, err
	}
	return p, nil
}

func (p *ONNXPredictor) init() error {
	_, outputs, err := ort.GetInputOutputInfo(p.opts.Path)
	if err != nil {
		return fmt.Errorf("failed to inspect model: %w", err)
	}
	var outShape ort.Shape
	for _, o := range outputs {
		if o.Name == p.opts.OutputName {
			outShape = o.Dimensions
		}
	}
	if len(outShape) != 4 {
		return fmt.Errorf("%w: output %q must be NCHW, got shape %v", errs.ErrFormat, p.opts.OutputName, outShape)
	}
	dims := []int64{1, outShape[1], outShape[2], outShape[3]}
	if dims[1] <= 0 {
		dims[1] = 1
	}
	if dims[2] <= 0 {
		dims[2] = int64(p.opts.InputHeight)
	}
	if dims[3] <= 0 {
		dims[3] = int64(p.opts.InputWidth)
	}
	p.channels, p.outH, p.outW = int(dims[1]), int(dims[2]), int(dims[3])

	p.input, err = ort.NewEmptyTensor[float32](ort.NewShape(1, 3, int64(p.opts.InputHeight), int64(p.opts.InputWidth)))
	if err != nil {
		return fmt.Errorf("failed to allocate input tensor: %w", err)
	}
	p.output, err = ort.NewEmptyTensor[float32](ort.NewShape(dims...))
	if err != nil {
		return fmt.Errorf("failed to allocate output tensor: %w", err)
	}

	sessionOpts, err := p.sessionOptions()
	if err != nil {
		return err
	}
	defer sessionOpts.Destroy()

	p.session, err = ort.NewAdvancedSession(p.opts.Path,
		[]string{p.opts.InputName}, []string{p.opts.OutputName},
		[]ort.Value{p.input}, []ort.Value{p.output}, sessionOpts)
	if err != nil {
		return fmt.Errorf("failed to create session for %s: %w", p.opts.Path, err)
	}
	slog.Debug("Loaded model", "path", p.opts.Path, "output", dims)
	return nil
}

func (p *ONNXPredictor) sessionOptions() (*ort.SessionOptions, error) {
	so, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("failed to create session options: %w", err)
	}
	if p.opts.Device != DeviceGPU {
		return so, nil
	}
	cuda, err := ort.NewCUDAProviderOptions()
	if err == nil {
		defer cuda.Destroy()
		err = so.AppendExecutionProviderCUDA(cuda)
	}
	if err != nil {
		slog.Warn("No CUDA-capable GPU available, using CPU instead", "error", err)
	}
	return so, nil
}

// Predict resizes img to the model input, runs the model and returns its
// output field.
func (p *ONNXPredictor) Predict(ctx context.Context, img image.Image) (*Field, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	p.fillInput(img)
	if err := p.session.Run(); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	data := p.output.GetData()
	if p.opts.Kind == KindSegmentation && p.channels > 1 {
		return argmaxChannels(data, p.channels, p.outW, p.outH), nil
	}
	f := NewField(p.outW, p.outH)
	copy(f.Data, data[:p.outW*p.outH])
	return f, nil
}

func (p *ONNXPredictor) fillInput(img image.Image) {
	w, h := p.opts.InputWidth, p.opts.InputHeight
	scaled := resize.Resize(uint(w), uint(h), img, resize.Bilinear)
	rgba := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(rgba, rgba.Bounds(), scaled, scaled.Bounds().Min, draw.Src)

	data := p.input.GetData()
	plane := w * h
	for i := 0; i < plane; i++ {
		px := rgba.Pix[i*4 : i*4+3]
		for c := 0; c < 3; c++ {
			data[c*plane+i] = (float32(px[c]) - p.opts.Mean[c]) / p.opts.Std[c]
		}
	}
}

// Close releases the session and tensors.
func (p *ONNXPredictor) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.session == nil && p.input == nil {
		return nil
	}
	err := p.destroy()
	releaseEnvironment()
	return err
}

func (p *ONNXPredictor) destroy() error {
	var errList []error
	if p.session != nil {
		errList = append(errList, p.session.Destroy())
		p.session = nil
	}
	if p.input != nil {
		errList = append(errList, p.input.Destroy())
		p.input = nil
	}
	if p.output != nil {
		errList = append(errList, p.output.Destroy())
		p.output = nil
	}
	return errors.Join(errList...)
}
