package model

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
)

const ImageSize = 28

// InputShape is the NHWC layout every artifact must declare.
var InputShape = []int64{1, ImageSize, ImageSize, 1}

type DType int

const (
	DTypeUnknown DType = iota
	Float32
	Uint8
	Int8
)

func (d DType) String() string {
	switch d {
	case Float32:
		return "float32"
	case Uint8:
		return "uint8"
	case Int8:
		return "int8"
	default:
		return "unknown"
	}
}

type TensorInfo struct {
	Name  string
	Shape []int64
	DType DType
}

// Size is the element count; a dynamic (-1) dimension counts as 1.
func (t TensorInfo) Size() int {
	n := 1
	for _, d := range t.Shape {
		if d > 0 {
			n *= int(d)
		}
	}
	return n
}

func (t TensorInfo) String() string {
	return fmt.Sprintf("%s%v %s", t.Name, t.Shape, t.DType)
}

// Backend is one independently loaded interpreter. It is not safe for
// concurrent use; Runtime hands each instance to a single caller at a time.
type Backend interface {
	Input() TensorInfo
	Output() TensorInfo
	// Run may return a slice aliasing the backend's output buffer. It is only
	// valid until the next call to Run.
	Run(input []float32) ([]float32, error)
	Close() error
}

type LoadOptions struct {
	Path     string
	Backend  string
	PoolSize int
	Threads  int
	Classes  int
}

type opener func(path string, threads int) (Backend, error)

var openers = map[string]opener{
	"onnx":   openONNX,
	"tflite": openTFLite,
}

// Runtime owns a pool of identical backends loaded from one artifact.
type Runtime struct {
	pool      chan Backend
	size      int
	input     TensorInfo
	output    TensorInfo
	kind      string
	path      string
	closed    atomic.Bool
	closeOnce sync.Once
}

// Load opens PoolSize backends for the artifact at opts.Path and verifies
// their tensor contracts.
func Load(opts LoadOptions) (*Runtime, error) {
	if _, err := os.Stat(opts.Path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrArtifactMissing, opts.Path)
		}
		return nil, fmt.Errorf("%w: %w", ErrArtifactInvalid, err)
	}
	kind := opts.Backend
	if kind == "" {
		kind = KindFromPath(opts.Path)
	}
	open, ok := openers[kind]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported backend %q for %s", ErrArtifactInvalid, kind, opts.Path)
	}

	n := max(opts.PoolSize, 1)
	backends := make([]Backend, 0, n)
	for i := 0; i < n; i++ {
		b, err := open(opts.Path, opts.Threads)
		if err != nil {
			closeAll(backends)
			return nil, fmt.Errorf("%w: %w", ErrArtifactInvalid, err)
		}
		backends = append(backends, b)
	}

	rt, err := New(opts.Classes, backends...)
	if err != nil {
		closeAll(backends)
		return nil, err
	}
	rt.kind = kind
	rt.path = opts.Path
	return rt, nil
}

// KindFromPath picks a backend from the artifact's extension.
func KindFromPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".onnx":
		return "onnx"
	case ".tflite", ".lite":
		return "tflite"
	default:
		return ""
	}
}

// New builds a runtime over already-opened backends. Every backend must take
// a float32 [1,28,28,1] input and produce a float32 [1,classes] output.
func New(classes int, backends ...Backend) (*Runtime, error) {
	if len(backends) == 0 {
		return nil, fmt.Errorf("%w: no backend instances", ErrArtifactInvalid)
	}
	if classes <= 0 {
		return nil, fmt.Errorf("%w: %d classes", ErrShapeMismatch, classes)
	}
	wantOut := []int64{1, int64(classes)}
	for i, b := range backends {
		in, out := b.Input(), b.Output()
		if in.DType != Float32 || !matchShape(in.Shape, InputShape) {
			return nil, fmt.Errorf("%w: instance %d input %s, want %v float32", ErrShapeMismatch, i, in, InputShape)
		}
		if out.DType != Float32 || !matchShape(out.Shape, wantOut) {
			return nil, fmt.Errorf("%w: instance %d output %s, want %v float32", ErrShapeMismatch, i, out, wantOut)
		}
	}

	pool := make(chan Backend, len(backends))
	for _, b := range backends {
		pool <- b
	}
	return &Runtime{
		pool:   pool,
		size:   len(backends),
		input:  backends[0].Input(),
		output: backends[0].Output(),
	}, nil
}

// matchShape allows only the batch dimension to be dynamic.
func matchShape(got, want []int64) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] == want[i] || (i == 0 && got[i] == -1) {
			continue
		}
		return false
	}
	return true
}

// Classify runs one forward pass and returns a copy of the output vector.
// It blocks until a backend instance is free.
func (r *Runtime) Classify(input []float32) ([]float32, error) {
	if r.closed.Load() {
		return nil, ErrClosed
	}
	if len(input) != r.input.Size() {
		return nil, fmt.Errorf("%w: got %d values, want %d", ErrInputSize, len(input), r.input.Size())
	}

	b, ok := <-r.pool
	if !ok {
		return nil, ErrClosed
	}
	defer func() { r.pool <- b }()

	res, err := b.Run(input)
	if err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}
	if len(res) != r.output.Size() {
		return nil, fmt.Errorf("%w: output has %d values, want %d", ErrShapeMismatch, len(res), r.output.Size())
	}
	return slices.Clone(res), nil
}

func (r *Runtime) Input() TensorInfo  { return r.input }
func (r *Runtime) Output() TensorInfo { return r.output }
func (r *Runtime) Classes() int       { return r.output.Size() }
func (r *Runtime) PoolSize() int      { return r.size }
func (r *Runtime) Kind() string       { return r.kind }
func (r *Runtime) Path() string       { return r.path }

// Close waits for in-flight calls to return their instances, then
// destroys every backend.
func (r *Runtime) Close() error {
	var errs []error
	r.closeOnce.Do(func() {
		r.closed.Store(true)
		for i := 0; i < r.size; i++ {
			b := <-r.pool
			if err := b.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		close(r.pool)
	})
	return errors.Join(errs...)
}

func closeAll(backends []Backend) {
	for _, b := range backends {
		_ = b.Close()
	}
}
