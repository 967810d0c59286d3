package model

import (
	"errors"
	"fmt"

	"github.com/krau/handsign/onnx"
	ort "github.com/yalue/onnxruntime_go"
)

type onnxBackend struct {
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]
	inInfo  TensorInfo
	outInfo TensorInfo
}

func openONNX(path string, threads int) (Backend, error) {
	if err := onnx.Ensure(); err != nil {
		return nil, err
	}

	inputs, outputs, err := ort.GetInputOutputInfo(path)
	if err != nil {
		return nil, fmt.Errorf("failed to get model input/output info: %w", err)
	}
	if len(inputs) != 1 || len(outputs) != 1 {
		return nil, fmt.Errorf("expected one input and one output, got %d and %d", len(inputs), len(outputs))
	}
	inInfo := ortInfo(inputs[0])
	outInfo := ortInfo(outputs[0])
	// Tensors are only allocated for float32 so a wrong dtype is reported by
	// New with the declared shapes.
	if inInfo.DType != Float32 || outInfo.DType != Float32 {
		return &onnxBackend{inInfo: inInfo, outInfo: outInfo}, nil
	}

	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("failed to create session options: %w", err)
	}
	defer opts.Destroy()
	if threads > 0 {
		if err := opts.SetIntraOpNumThreads(threads); err != nil {
			return nil, fmt.Errorf("failed to set thread count: %w", err)
		}
	}

	inputTensor, err := ort.NewEmptyTensor[float32](concreteShape(inInfo.Shape))
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}
	outputTensor, err := ort.NewEmptyTensor[float32](concreteShape(outInfo.Shape))
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(
		path,
		[]string{inInfo.Name},
		[]string{outInfo.Name},
		[]ort.Value{inputTensor},
		[]ort.Value{outputTensor},
		opts,
	)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("failed to create ONNX Runtime session: %w", err)
	}

	return &onnxBackend{
		session: session,
		input:   inputTensor,
		output:  outputTensor,
		inInfo:  inInfo,
		outInfo: outInfo,
	}, nil
}

func ortInfo(info ort.InputOutputInfo) TensorInfo {
	dtype := DTypeUnknown
	switch info.DataType {
	case ort.TensorElementDataTypeFloat:
		dtype = Float32
	case ort.TensorElementDataTypeUint8:
		dtype = Uint8
	case ort.TensorElementDataTypeInt8:
		dtype = Int8
	}
	return TensorInfo{
		Name:  info.Name,
		Shape: append([]int64(nil), info.Dimensions...),
		DType: dtype,
	}
}

// concreteShape pins dynamic dimensions to 1 so buffers can be preallocated.
func concreteShape(dims []int64) ort.Shape {
	shape := make([]int64, len(dims))
	for i, d := range dims {
		if d < 1 {
			d = 1
		}
		shape[i] = d
	}
	return ort.NewShape(shape...)
}

func (b *onnxBackend) Input() TensorInfo  { return b.inInfo }
func (b *onnxBackend) Output() TensorInfo { return b.outInfo }

func (b *onnxBackend) Run(input []float32) ([]float32, error) {
	if b.session == nil {
		return nil, fmt.Errorf("session not created")
	}
	copy(b.input.GetData(), input)
	if err := b.session.Run(); err != nil {
		return nil, err
	}
	return b.output.GetData(), nil
}

func (b *onnxBackend) Close() error {
	var errs []error
	if b.session != nil {
		errs = append(errs, b.session.Destroy())
	}
	if b.input != nil {
		errs = append(errs, b.input.Destroy())
	}
	if b.output != nil {
		errs = append(errs, b.output.Destroy())
	}
	return errors.Join(errs...)
}
