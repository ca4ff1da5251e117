// internal/errdefs/errors_test.go
package errdefs

import (
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
)

func TestWrapMarksKind(t *testing.T) {
	underlying := errors.New("engine says no")
	err := Wrap(ErrModelLoad, underlying, "loading %q", "model.onnx")

	if !errors.Is(err, ErrModelLoad) {
		t.Errorf("Expected error to carry ErrModelLoad")
	}
	if errors.Is(err, ErrInferenceExecution) {
		t.Errorf("Error must carry exactly one kind")
	}
	// The engine's diagnostic text must survive the wrap unchanged.
	if !strings.Contains(err.Error(), "engine says no") {
		t.Errorf("Underlying diagnostic lost: %v", err)
	}
	if !strings.Contains(err.Error(), `loading "model.onnx"`) {
		t.Errorf("Wrap message lost: %v", err)
	}
}

func TestWrapWithNilUnderlying(t *testing.T) {
	err := Wrap(ErrShapeMismatch, nil, "got %d values", 3)
	if err == nil {
		t.Fatal("Expected an error")
	}
	if !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("Expected error to carry ErrShapeMismatch")
	}
}

func TestKind(t *testing.T) {
	cases := []struct {
		kind error
		want string
	}{
		{ErrEnvironmentInit, "environment_init"},
		{ErrModelLoad, "model_load"},
		{ErrShapeMismatch, "shape_mismatch"},
		{ErrUnsupportedShape, "unsupported_shape"},
		{ErrInferenceExecution, "inference_execution"},
		{ErrIndexOutOfRange, "index_out_of_range"},
	}
	for _, tc := range cases {
		err := Wrap(tc.kind, nil, "boom")
		if got := Kind(err); got != tc.want {
			t.Errorf("Kind(%v) = %q, expected %q", tc.kind, got, tc.want)
		}
	}

	if got := Kind(nil); got != "none" {
		t.Errorf("Kind(nil) = %q, expected none", got)
	}
	if got := Kind(errors.New("plain")); got != "unknown" {
		t.Errorf("Kind(plain error) = %q, expected unknown", got)
	}
}
