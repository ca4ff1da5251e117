// internal/cache/redis_test.go
package cache

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestKeyDeterministic(t *testing.T) {
	a := Key("model.onnx", []float32{1.0, 2.0, 3.0, 4.0})
	b := Key("model.onnx", []float32{1.0, 2.0, 3.0, 4.0})
	if a != b {
		t.Errorf("Same model and values produced different keys: %q vs %q", a, b)
	}
	if !strings.HasPrefix(a, "prediction:") {
		t.Errorf("Key missing namespace prefix: %q", a)
	}
}

func TestKeyDiscriminates(t *testing.T) {
	base := Key("model.onnx", []float32{1.0, 2.0, 3.0, 4.0})

	if Key("model.onnx", []float32{1.0, 2.0, 3.0, 5.0}) == base {
		t.Error("Different values must produce different keys")
	}
	if Key("other.onnx", []float32{1.0, 2.0, 3.0, 4.0}) == base {
		t.Error("Different model paths must produce different keys")
	}
	// Float bit patterns matter, not decimal rendering.
	if Key("model.onnx", []float32{1.0, 2.0, 3.0, 4.0000005}) == base {
		t.Error("Nearly equal floats must produce different keys")
	}
}

func TestNilClientGuards(t *testing.T) {
	c := &Cache{}
	ctx := context.Background()

	if _, _, err := c.GetPrediction(ctx, "prediction:x"); err == nil {
		t.Error("Expected error from nil client on Get")
	}
	if err := c.SetPrediction(ctx, "prediction:x", 1.0, time.Minute); err == nil {
		t.Error("Expected error from nil client on Set")
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close on nil client must be a no-op, got: %v", err)
	}
}

func TestRoundTrip_WithRedis(t *testing.T) {
	// Requires a local Redis; skip otherwise
	c, err := New("localhost:6379")
	if err != nil {
		t.Skipf("Skipping Redis round-trip test: %v", err)
	}
	defer c.Close()

	ctx := context.Background()
	key := Key("roundtrip.onnx", []float32{1.0, 2.0, 3.0, 4.0})

	if err := c.SetPrediction(ctx, key, 0.625, time.Minute); err != nil {
		t.Fatalf("SetPrediction failed: %v", err)
	}
	value, ok, err := c.GetPrediction(ctx, key)
	if err != nil {
		t.Fatalf("GetPrediction failed: %v", err)
	}
	if !ok {
		t.Fatal("Expected a cache hit")
	}
	if value != 0.625 {
		t.Errorf("Expected 0.625, got %f", value)
	}
}
