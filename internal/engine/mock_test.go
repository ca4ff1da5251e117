// internal/engine/mock_test.go
package engine

import (
	"testing"

	"github.com/cockroachdb/errors"

	"github.com/SyedDaiam9101/forest-runner/internal/errdefs"
	"github.com/SyedDaiam9101/forest-runner/internal/tensor"
)

func exampleInput(t *testing.T) *tensor.Input {
	t.Helper()
	in, err := tensor.BuildExample([]int64{1, 4}, []float32{1.0, 2.0, 3.0, 4.0})
	if err != nil {
		t.Fatalf("BuildExample failed: %v", err)
	}
	return in
}

func TestMock_Run(t *testing.T) {
	mock := NewMock()

	outputs, err := mock.Run([]*tensor.Input{exampleInput(t)})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(outputs) != 1 {
		t.Fatalf("Expected 1 materialized output, got %d", len(outputs))
	}
	if outputs[0].Name() != "output_label" {
		t.Errorf("Expected the label output, got %q", outputs[0].Name())
	}

	value, err := outputs[0].ScalarAt(0)
	if err != nil {
		t.Fatalf("ScalarAt failed: %v", err)
	}
	if value != mock.Prediction {
		t.Errorf("Expected prediction %f, got %f", mock.Prediction, value)
	}
	if mock.CallCount != 1 {
		t.Errorf("Expected CallCount=1, got %d", mock.CallCount)
	}
}

func TestMock_Deterministic(t *testing.T) {
	mock := NewMock()

	first, err := mock.Run([]*tensor.Input{exampleInput(t)})
	if err != nil {
		t.Fatalf("first Run failed: %v", err)
	}
	second, err := mock.Run([]*tensor.Input{exampleInput(t)})
	if err != nil {
		t.Fatalf("second Run failed: %v", err)
	}

	a, _ := first[0].ScalarAt(0)
	b, _ := second[0].ScalarAt(0)
	if a != b {
		t.Errorf("Same inputs produced different outputs: %f vs %f", a, b)
	}
}

func TestMock_ArityMismatch(t *testing.T) {
	mock := NewMock()

	_, err := mock.Run(nil)
	if err == nil {
		t.Fatal("Expected error for missing inputs")
	}
	if !errors.Is(err, errdefs.ErrShapeMismatch) {
		t.Errorf("Expected shape mismatch kind, got: %v", err)
	}

	in := exampleInput(t)
	_, err = mock.Run([]*tensor.Input{in, in})
	if err == nil {
		t.Fatal("Expected error for too many inputs")
	}
}

func TestMock_ElementCountMismatch(t *testing.T) {
	mock := NewMock()
	in, err := tensor.BuildExample([]int64{1, 2}, []float32{1.0, 2.0})
	if err != nil {
		t.Fatalf("BuildExample failed: %v", err)
	}

	_, err = mock.Run([]*tensor.Input{in})
	if err == nil {
		t.Fatal("Expected error for 2 elements against [1 4]")
	}
	if !errors.Is(err, errdefs.ErrShapeMismatch) {
		t.Errorf("Expected shape mismatch kind, got: %v", err)
	}
}

func TestMock_FailWith(t *testing.T) {
	mock := NewMock()
	mock.FailWith = errors.New("numerical exception")

	_, err := mock.Run([]*tensor.Input{exampleInput(t)})
	if err == nil {
		t.Fatal("Expected error")
	}
	if !errors.Is(err, errdefs.ErrInferenceExecution) {
		t.Errorf("Expected inference execution kind, got: %v", err)
	}
}

func TestMock_ClosedEngine(t *testing.T) {
	mock := NewMock()
	if err := mock.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	_, err := mock.Run([]*tensor.Input{exampleInput(t)})
	if err == nil {
		t.Fatal("Expected error after Close")
	}
}

func TestMock_SignaturesStableAndOwned(t *testing.T) {
	mock := NewMock()

	first := mock.InputSignatures()
	// Mutating the returned slice must not affect later enumerations.
	first[0].Name = "tampered"
	first[0].Dimensions[0] = 99

	second := mock.InputSignatures()
	if second[0].Name != "float_input" {
		t.Errorf("Signature name mutated across enumerations: %q", second[0].Name)
	}
	if second[0].Dimensions[0] != 1 {
		t.Errorf("Signature dims mutated across enumerations: %v", second[0].Dimensions)
	}

	if len(mock.OutputSignatures()) != 2 {
		t.Errorf("Expected 2 output signatures")
	}
}

func TestMock_SkipsSequenceOutput(t *testing.T) {
	mock := NewMock()

	// The artifact declares an int64 label tensor followed by a
	// sequence-typed probability output; only the label materializes.
	if len(mock.OutputSignatures()) != 2 {
		t.Fatalf("Expected 2 declared outputs, got %d", len(mock.OutputSignatures()))
	}

	outputs, err := mock.Run([]*tensor.Input{exampleInput(t)})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(outputs) != 1 {
		t.Fatalf("Expected the sequence output to be skipped, got %d outputs", len(outputs))
	}
	if outputs[0].Name() != "output_label" {
		t.Errorf("Expected output_label, got %q", outputs[0].Name())
	}
	if _, err := outputs[0].ScalarAt(0); err != nil {
		t.Errorf("Label scalar must be readable: %v", err)
	}
}

func TestMock_NoTensorOutputs(t *testing.T) {
	mock := NewMock()
	mock.Outputs = []Signature{
		{Name: "output_probability", ElementType: "seq(map(int64,tensor(float)))"},
	}

	_, err := mock.Run([]*tensor.Input{exampleInput(t)})
	if err == nil {
		t.Fatal("Expected error when no output materializes as a tensor")
	}
	if !errors.Is(err, errdefs.ErrInferenceExecution) {
		t.Errorf("Expected inference execution kind, got: %v", err)
	}
}
