// internal/tensor/tensor_test.go
package tensor

import (
	"testing"

	"github.com/cockroachdb/errors"

	"github.com/SyedDaiam9101/forest-runner/internal/errdefs"
)

func TestBuildExample(t *testing.T) {
	in, err := BuildExample([]int64{1, 4}, []float32{1.0, 2.0, 3.0, 4.0})
	if err != nil {
		t.Fatalf("BuildExample failed: %v", err)
	}

	if got := in.Values(); len(got) != 4 {
		t.Errorf("Expected 4 values, got %d", len(got))
	}
	dims := in.Dims()
	if len(dims) != 2 || dims[0] != 1 || dims[1] != 4 {
		t.Errorf("Expected dims [1 4], got %v", dims)
	}
}

func TestBuildExample_CopiesCallerSlices(t *testing.T) {
	values := []float32{1.0, 2.0, 3.0, 4.0}
	dims := []int64{1, 4}

	in, err := BuildExample(dims, values)
	if err != nil {
		t.Fatalf("BuildExample failed: %v", err)
	}

	// Mutating the caller's slices must not reach the Input.
	values[0] = 99.0
	dims[0] = 99
	if in.Values()[0] != 1.0 {
		t.Errorf("Input values aliased the caller's slice")
	}
	if in.Dims()[0] != 1 {
		t.Errorf("Input dims aliased the caller's slice")
	}
}

func TestBuildExample_ShapeMismatch(t *testing.T) {
	cases := []struct {
		name   string
		values []float32
	}{
		{"too few", []float32{1.0, 2.0, 3.0}},
		{"too many", []float32{1.0, 2.0, 3.0, 4.0, 5.0}},
		{"empty", nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := BuildExample([]int64{1, 4}, tc.values)
			if err == nil {
				t.Fatalf("Expected error for %d values against [1 4]", len(tc.values))
			}
			if !errors.Is(err, errdefs.ErrShapeMismatch) {
				t.Errorf("Expected shape mismatch kind, got: %v", err)
			}
		})
	}
}

func TestBuildExample_DynamicShapeUnsupported(t *testing.T) {
	for _, dims := range [][]int64{{-1, 4}, {0, 4}, {1, -1}, {}} {
		_, err := BuildExample(dims, []float32{1.0, 2.0, 3.0, 4.0})
		if err == nil {
			t.Fatalf("Expected error for dims %v", dims)
		}
		if !errors.Is(err, errdefs.ErrUnsupportedShape) {
			t.Errorf("Expected unsupported shape kind for dims %v, got: %v", dims, err)
		}
	}
}

func TestElementCount(t *testing.T) {
	count, err := ElementCount([]int64{2, 3, 4})
	if err != nil {
		t.Fatalf("ElementCount failed: %v", err)
	}
	if count != 24 {
		t.Errorf("Expected 24, got %d", count)
	}
}

func TestScalarAt(t *testing.T) {
	out := NewOutput("variable", []int64{1, 3}, []float32{0.1, 0.2, 0.3})

	for i, want := range []float32{0.1, 0.2, 0.3} {
		got, err := out.ScalarAt(i)
		if err != nil {
			t.Fatalf("ScalarAt(%d) failed: %v", i, err)
		}
		if got != want {
			t.Errorf("ScalarAt(%d) = %f, expected %f", i, got, want)
		}
	}
}

func TestScalarAt_IndexOutOfRange(t *testing.T) {
	out := NewOutput("variable", []int64{1, 3}, []float32{0.1, 0.2, 0.3})

	for _, index := range []int{3, 100, -1} {
		_, err := out.ScalarAt(index)
		if err == nil {
			t.Fatalf("Expected error for index %d", index)
		}
		if !errors.Is(err, errdefs.ErrIndexOutOfRange) {
			t.Errorf("Expected index out of range kind for index %d, got: %v", index, err)
		}
	}
}
