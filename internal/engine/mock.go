package engine

import (
	"strings"

	"github.com/SyedDaiam9101/forest-runner/internal/errdefs"
	"github.com/SyedDaiam9101/forest-runner/internal/tensor"
)

// Mock is a deterministic Engine implementation that mimics the shipped
// random-forest artifact without requiring the ONNX shared library: one float
// input of shape [1,4], an int64 label output, and a sequence-typed
// probability output that never materializes as a tensor. The same inputs
// always produce the same output, matching the determinism contract of the
// real model.
type Mock struct {
	// Inputs and Outputs are the signatures the mock reports.
	Inputs  []Signature
	Outputs []Signature
	// Prediction is the value returned for every bound output element.
	Prediction float32
	// FailWith, when non-nil, makes Run fail with an inference-execution
	// error wrapping it.
	FailWith error
	// CallCount tracks the number of Run invocations.
	CallCount int
	closed    bool
}

// NewMock creates a Mock shaped like the shipped random-forest export.
func NewMock() *Mock {
	return &Mock{
		Inputs: []Signature{
			{Name: "float_input", ElementType: "float32", Dimensions: []int64{1, 4}},
		},
		Outputs: []Signature{
			{Name: "output_label", ElementType: "int64", Dimensions: []int64{1}},
			{Name: "output_probability", ElementType: "seq(map(int64,tensor(float)))", Dimensions: nil},
		},
		Prediction: 0.75,
	}
}

func (m *Mock) InputSignatures() []Signature  { return cloneSignatures(m.Inputs) }
func (m *Mock) OutputSignatures() []Signature { return cloneSignatures(m.Outputs) }
func (m *Mock) BoundOutputs() []Signature     { return cloneSignatures(m.Outputs) }

// Run validates arity and per-input element counts the way the real session
// does, then fills every tensor-typed bound output with Prediction. Outputs
// with a non-tensor element type (sequences, maps) are skipped, mirroring the
// real session's handling of engine-allocated outputs.
func (m *Mock) Run(inputs []*tensor.Input) ([]*tensor.Output, error) {
	m.CallCount++

	if m.closed {
		return nil, errdefs.Wrap(errdefs.ErrInferenceExecution, nil, "mock engine is closed")
	}
	if m.FailWith != nil {
		return nil, errdefs.Wrap(errdefs.ErrInferenceExecution, m.FailWith, "mock inference")
	}
	if len(inputs) != len(m.Inputs) {
		return nil, errdefs.Wrap(errdefs.ErrShapeMismatch, nil,
			"got %d input tensors, mock declares %d inputs", len(inputs), len(m.Inputs))
	}
	for i, in := range inputs {
		want, err := tensor.ElementCount(m.Inputs[i].Dimensions)
		if err != nil {
			return nil, err
		}
		if int64(len(in.Values())) != want {
			return nil, errdefs.Wrap(errdefs.ErrShapeMismatch, nil,
				"input %d has %d elements, expected %d", i, len(in.Values()), want)
		}
	}

	results := make([]*tensor.Output, 0, len(m.Outputs))
	for _, sig := range m.Outputs {
		if !isTensorElementType(sig.ElementType) {
			continue
		}
		count, err := tensor.ElementCount(sig.Dimensions)
		if err != nil {
			return nil, err
		}
		data := make([]float32, count)
		for j := range data {
			data[j] = m.Prediction
		}
		dims := make([]int64, len(sig.Dimensions))
		copy(dims, sig.Dimensions)
		results = append(results, tensor.NewOutput(sig.Name, dims, data))
	}
	if len(results) == 0 {
		return nil, errdefs.Wrap(errdefs.ErrInferenceExecution, nil,
			"none of the %d requested outputs materialized as a readable tensor", len(m.Outputs))
	}
	return results, nil
}

// isTensorElementType reports whether a signature's element type is a plain
// tensor type rather than a sequence or map.
func isTensorElementType(elementType string) bool {
	return !strings.HasPrefix(elementType, "seq(") && !strings.HasPrefix(elementType, "map(")
}

// Close marks the mock closed; later Run calls fail.
func (m *Mock) Close() error {
	m.closed = true
	return nil
}

// Ensure Mock implements Engine at compile time.
var _ Engine = (*Mock)(nil)
