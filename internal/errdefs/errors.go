// Package errdefs defines the error kinds surfaced at the inference engine
// boundary. Every failure that crosses out of internal/engine or
// internal/tensor is marked with exactly one of these sentinels so callers can
// classify with errors.Is without parsing message text. The engine's original
// diagnostic text is always preserved inside the wrap.
package errdefs

import (
	"github.com/cockroachdb/errors"
)

// Sentinel kinds. All of them are terminal for the current run: each one stems
// from a static precondition (bad path, malformed file, wrong shape) that a
// retry cannot change.
var (
	// ErrEnvironmentInit marks failures to allocate the engine's global state.
	ErrEnvironmentInit = errors.New("environment initialization failed")

	// ErrModelLoad marks a missing, malformed, or unsupported model artifact.
	ErrModelLoad = errors.New("model load failed")

	// ErrShapeMismatch marks a value count that does not equal the product of
	// the declared dimensions.
	ErrShapeMismatch = errors.New("shape mismatch")

	// ErrUnsupportedShape marks a signature with dynamic or otherwise
	// non-positive dimensions; only fully static shapes are supported.
	ErrUnsupportedShape = errors.New("unsupported shape")

	// ErrInferenceExecution marks any failure inside the engine's Run call.
	ErrInferenceExecution = errors.New("inference execution failed")

	// ErrIndexOutOfRange marks a flat index beyond a tensor's element count.
	ErrIndexOutOfRange = errors.New("index out of range")
)

// Wrap marks err with the given kind and a formatted message. When err is nil
// a new error is created instead, so call sites do not need to distinguish
// "engine gave us an error" from "we detected the violation ourselves".
func Wrap(kind error, err error, format string, args ...interface{}) error {
	if err == nil {
		return errors.Mark(errors.Newf(format, args...), kind)
	}
	return errors.Mark(errors.Wrapf(err, format, args...), kind)
}

// Kind returns a short stable name for the kind marked on err, or "unknown"
// when err carries none of the sentinels. Used for log fields and metrics
// labels, never for control flow.
func Kind(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrEnvironmentInit):
		return "environment_init"
	case errors.Is(err, ErrModelLoad):
		return "model_load"
	case errors.Is(err, ErrShapeMismatch):
		return "shape_mismatch"
	case errors.Is(err, ErrUnsupportedShape):
		return "unsupported_shape"
	case errors.Is(err, ErrInferenceExecution):
		return "inference_execution"
	case errors.Is(err, ErrIndexOutOfRange):
		return "index_out_of_range"
	default:
		return "unknown"
	}
}
