//go:build !notflite

package model

import (
	"fmt"
	"log/slog"

	"github.com/mattn/go-tflite"
)

type tfliteBackend struct {
	model   *tflite.Model
	options *tflite.InterpreterOptions
	interp  *tflite.Interpreter
	input   *tflite.Tensor
	output  *tflite.Tensor
	inInfo  TensorInfo
	outInfo TensorInfo
}

func openTFLite(path string, threads int) (Backend, error) {
	m := tflite.NewModelFromFile(path)
	if m == nil {
		return nil, fmt.Errorf("cannot parse tflite model %s", path)
	}
	options := tflite.NewInterpreterOptions()
	if threads > 0 {
		options.SetNumThread(threads)
	}
	options.SetErrorReporter(func(msg string, _ interface{}) {
		slog.Warn("tflite", slog.String("message", msg))
	}, nil)

	b := &tfliteBackend{model: m, options: options}
	b.interp = tflite.NewInterpreter(m, options)
	if b.interp == nil {
		b.Close()
		return nil, fmt.Errorf("cannot create tflite interpreter")
	}
	if status := b.interp.AllocateTensors(); status != tflite.OK {
		b.Close()
		return nil, fmt.Errorf("tensor allocation failed: %v", status)
	}
	if n, k := b.interp.GetInputTensorCount(), b.interp.GetOutputTensorCount(); n != 1 || k != 1 {
		b.Close()
		return nil, fmt.Errorf("expected one input and one output, got %d and %d", n, k)
	}

	b.input = b.interp.GetInputTensor(0)
	b.output = b.interp.GetOutputTensor(0)
	b.inInfo = tfliteInfo(b.input)
	b.outInfo = tfliteInfo(b.output)
	return b, nil
}

func tfliteInfo(t *tflite.Tensor) TensorInfo {
	shape := make([]int64, t.NumDims())
	for i := range shape {
		shape[i] = int64(t.Dim(i))
	}
	dtype := DTypeUnknown
	switch t.Type() {
	case tflite.Float32:
		dtype = Float32
	case tflite.UInt8:
		dtype = Uint8
	case tflite.Int8:
		dtype = Int8
	}
	return TensorInfo{Name: t.Name(), Shape: shape, DType: dtype}
}

func (b *tfliteBackend) Input() TensorInfo  { return b.inInfo }
func (b *tfliteBackend) Output() TensorInfo { return b.outInfo }

func (b *tfliteBackend) Run(input []float32) ([]float32, error) {
	copy(b.input.Float32s(), input)
	if status := b.interp.Invoke(); status != tflite.OK {
		return nil, fmt.Errorf("invoke failed: %v", status)
	}
	return b.output.Float32s(), nil
}

func (b *tfliteBackend) Close() error {
	if b.interp != nil {
		b.interp.Delete()
		b.interp = nil
	}
	if b.options != nil {
		b.options.Delete()
		b.options = nil
	}
	if b.model != nil {
		b.model.Delete()
		b.model = nil
	}
	return nil
}
