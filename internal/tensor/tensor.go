// Package tensor holds the caller-side tensor types passed across the engine
// boundary: an Input built from configured feature values, and an Output whose
// buffer has been copied out of the engine so no native lifetime is attached.
package tensor

import (
	"github.com/SyedDaiam9101/forest-runner/internal/errdefs"
)

// Input is a caller-constructed buffer of float32 values plus an explicit
// shape. It is immutable after construction; the engine borrows it for the
// duration of one inference call and never takes ownership.
type Input struct {
	values []float32
	dims   []int64
}

// ElementCount returns the product of dims, or an unsupported-shape error if
// any dimension is non-positive. A non-positive dimension is how ONNX models
// declare dynamic axes, which this tool does not guess a policy for.
func ElementCount(dims []int64) (int64, error) {
	if len(dims) == 0 {
		return 0, errdefs.Wrap(errdefs.ErrUnsupportedShape, nil,
			"shape has no dimensions")
	}
	count := int64(1)
	for i, d := range dims {
		if d <= 0 {
			return 0, errdefs.Wrap(errdefs.ErrUnsupportedShape, nil,
				"dimension %d is dynamic or non-positive (%d); only fully static shapes are supported", i, d)
		}
		count *= d
	}
	return count, nil
}

// BuildExample constructs an Input for the given declared dimensions. The
// number of supplied values must equal the product of the dimensions exactly.
func BuildExample(dims []int64, values []float32) (*Input, error) {
	count, err := ElementCount(dims)
	if err != nil {
		return nil, err
	}
	if int64(len(values)) != count {
		return nil, errdefs.Wrap(errdefs.ErrShapeMismatch, nil,
			"got %d values for shape %v, expected %d", len(values), dims, count)
	}
	in := &Input{
		values: make([]float32, len(values)),
		dims:   make([]int64, len(dims)),
	}
	copy(in.values, values)
	copy(in.dims, dims)
	return in, nil
}

// Values returns the backing buffer. The slice is borrowed; callers must not
// hold it past the inference call that consumes this Input.
func (t *Input) Values() []float32 { return t.values }

// Dims returns a copy of the shape.
func (t *Input) Dims() []int64 {
	dims := make([]int64, len(t.dims))
	copy(dims, t.dims)
	return dims
}

// Output is one inference result. The values have been copied out of the
// engine's tensor before it was destroyed, so the Output owns plain Go memory.
type Output struct {
	name   string
	values []float32
	dims   []int64
}

// NewOutput wraps a result buffer produced by the engine. The engine hands
// over ownership of both slices.
func NewOutput(name string, dims []int64, values []float32) *Output {
	return &Output{name: name, values: values, dims: dims}
}

// Name returns the output signature name this result corresponds to.
func (o *Output) Name() string { return o.name }

// Dims returns a copy of the result shape.
func (o *Output) Dims() []int64 {
	dims := make([]int64, len(o.dims))
	copy(dims, o.dims)
	return dims
}

// Values returns the result buffer.
func (o *Output) Values() []float32 { return o.values }

// ScalarAt reads the value at a flat index into the underlying buffer.
func (o *Output) ScalarAt(index int) (float32, error) {
	if index < 0 || index >= len(o.values) {
		return 0, errdefs.Wrap(errdefs.ErrIndexOutOfRange, nil,
			"index %d out of range for output %q with %d elements", index, o.name, len(o.values))
	}
	return o.values[index], nil
}
