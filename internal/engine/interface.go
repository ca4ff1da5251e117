package engine

import (
	"github.com/SyedDaiam9101/forest-runner/internal/tensor"
)

// Engine is the surface the runner drives a loaded model through. The real
// implementation is Session; Mock provides a deterministic stand-in for tests
// and machines without the ONNX shared library installed.
type Engine interface {
	// InputSignatures returns the declared inputs in declaration order.
	InputSignatures() []Signature

	// OutputSignatures returns the declared outputs in declaration order.
	OutputSignatures() []Signature

	// BoundOutputs returns the outputs Run produces, in request order.
	BoundOutputs() []Signature

	// Run executes one synchronous inference call: one input tensor per
	// declared input signature, positionally paired; one output per bound
	// output signature.
	Run(inputs []*tensor.Input) ([]*tensor.Output, error)

	// Close releases any resources held by the engine.
	Close() error
}

// Ensure Session implements Engine at compile time.
var _ Engine = (*Session)(nil)
