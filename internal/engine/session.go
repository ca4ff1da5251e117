package engine

import (
	"fmt"
	"os"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/SyedDaiam9101/forest-runner/internal/errdefs"
	"github.com/SyedDaiam9101/forest-runner/internal/tensor"
)

// Signature describes one declared model input or output: name, element type,
// and declared dimensions. Dynamic axes appear as non-positive dimensions.
// Signatures are plain values copied out of the model at load time; nothing in
// them points back at engine-owned memory.
type Signature struct {
	Name        string
	ElementType string
	Dimensions  []int64
}

func (s Signature) String() string {
	return fmt.Sprintf("%s %s%v", s.Name, s.ElementType, s.Dimensions)
}

// clone returns a deep copy so callers can never mutate the session's record.
func (s Signature) clone() Signature {
	dims := make([]int64, len(s.Dimensions))
	copy(dims, s.Dimensions)
	return Signature{Name: s.Name, ElementType: s.ElementType, Dimensions: dims}
}

func cloneSignatures(sigs []Signature) []Signature {
	out := make([]Signature, len(sigs))
	for i, s := range sigs {
		out[i] = s.clone()
	}
	return out
}

// Session is one loaded model bound to an Environment. It is immutable after
// load: the graph, weights, and declared signatures cannot change for its
// lifetime. Run is serialized with a mutex because the single-shot tool never
// needs concurrent inference, and the binding does not promise it either.
type Session struct {
	mu     sync.Mutex
	env    *Environment
	path   string
	inner  *ort.DynamicAdvancedSession
	inputs []Signature
	// declared holds every output the model declares; bound holds the subset
	// actually requested from the engine, in request order.
	declared []Signature
	bound    []Signature
}

// LoadModel loads the serialized model at path into a new Session owned by
// this Environment. intraOpThreads bounds the engine's internal parallelism
// for one inference call; zero keeps the engine default. outputNames narrows
// the requested outputs; empty requests every declared output in declared
// order. Any load-stage failure (missing file, malformed graph, unsupported
// opset, unknown output name) is a model-load error and is not retryable.
func (e *Environment) LoadModel(path string, intraOpThreads int, outputNames ...string) (*Session, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, errdefs.Wrap(errdefs.ErrModelLoad, err, "model file %q", path)
	}

	// The binding copies name strings and shapes out of the engine-scoped
	// allocator inside this call, so no borrowed native handle survives it.
	inputInfo, outputInfo, err := ort.GetInputOutputInfo(path)
	if err != nil {
		return nil, errdefs.Wrap(errdefs.ErrModelLoad, err, "reading signatures from %q", path)
	}
	if len(inputInfo) == 0 || len(outputInfo) == 0 {
		return nil, errdefs.Wrap(errdefs.ErrModelLoad, nil,
			"model %q declares %d inputs and %d outputs; at least one of each is required",
			path, len(inputInfo), len(outputInfo))
	}

	inputs := make([]Signature, len(inputInfo))
	for i, info := range inputInfo {
		inputs[i] = signatureFromInfo(info)
	}
	declared := make([]Signature, len(outputInfo))
	for i, info := range outputInfo {
		declared[i] = signatureFromInfo(info)
	}

	bound, err := resolveOutputs(declared, outputNames)
	if err != nil {
		return nil, err
	}

	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, errdefs.Wrap(errdefs.ErrModelLoad, err, "creating session options")
	}
	defer opts.Destroy()
	if intraOpThreads > 0 {
		if err := opts.SetIntraOpNumThreads(intraOpThreads); err != nil {
			return nil, errdefs.Wrap(errdefs.ErrModelLoad, err,
				"setting intra-op thread count to %d", intraOpThreads)
		}
	}

	inputNames := make([]string, len(inputs))
	for i, sig := range inputs {
		inputNames[i] = sig.Name
	}
	boundNames := make([]string, len(bound))
	for i, sig := range bound {
		boundNames[i] = sig.Name
	}

	inner, err := ort.NewDynamicAdvancedSession(path, inputNames, boundNames, opts)
	if err != nil {
		return nil, errdefs.Wrap(errdefs.ErrModelLoad, err, "creating session for %q", path)
	}

	s := &Session{
		env:      e,
		path:     path,
		inner:    inner,
		inputs:   inputs,
		declared: declared,
		bound:    bound,
	}
	if err := e.adopt(s); err != nil {
		inner.Destroy()
		return nil, err
	}
	e.log.Debug().
		Str("model", path).
		Int("inputs", len(inputs)).
		Int("outputs", len(declared)).
		Int("intra_op_threads", intraOpThreads).
		Msg("model loaded")
	return s, nil
}

func signatureFromInfo(info ort.InputOutputInfo) Signature {
	dims := make([]int64, len(info.Dimensions))
	copy(dims, info.Dimensions)
	return Signature{
		Name:        info.Name,
		ElementType: elementTypeString(info.DataType),
		Dimensions:  dims,
	}
}

func elementTypeString(t ort.TensorElementDataType) string {
	switch t {
	case ort.TensorElementDataTypeFloat:
		return "float32"
	case ort.TensorElementDataTypeDouble:
		return "float64"
	case ort.TensorElementDataTypeInt64:
		return "int64"
	case ort.TensorElementDataTypeInt32:
		return "int32"
	case ort.TensorElementDataTypeUint8:
		return "uint8"
	case ort.TensorElementDataTypeString:
		return "string"
	default:
		return fmt.Sprintf("%v", t)
	}
}

// resolveOutputs maps requested names onto declared signatures, preserving
// request order. Empty means all declared outputs.
func resolveOutputs(declared []Signature, requested []string) ([]Signature, error) {
	if len(requested) == 0 {
		return cloneSignatures(declared), nil
	}
	bound := make([]Signature, 0, len(requested))
	for _, name := range requested {
		found := false
		for _, sig := range declared {
			if sig.Name == name {
				bound = append(bound, sig.clone())
				found = true
				break
			}
		}
		if !found {
			return nil, errdefs.Wrap(errdefs.ErrModelLoad, nil,
				"requested output %q is not declared by the model", name)
		}
	}
	return bound, nil
}

// Path returns the filesystem path this session was loaded from.
func (s *Session) Path() string { return s.path }

// InputSignatures returns the declared inputs in declaration order. The order
// is load-bearing: it fixes the positional pairing for Run. Repeated calls
// return equal, independently owned slices.
func (s *Session) InputSignatures() []Signature { return cloneSignatures(s.inputs) }

// OutputSignatures returns every declared output in declaration order.
func (s *Session) OutputSignatures() []Signature { return cloneSignatures(s.declared) }

// BoundOutputs returns the outputs Run will produce, in request order.
func (s *Session) BoundOutputs() []Signature { return cloneSignatures(s.bound) }

// Run executes one synchronous, blocking inference call. inputs must contain
// exactly one tensor per declared input signature, in declaration order.
// Output allocation is left to the engine: sklearn-style classifier exports
// declare an int64 label tensor and a sequence-typed probability output,
// neither of which can be pre-allocated as a float tensor. Every tensor the
// engine returns is copied into a caller-owned Output (integer element types
// widened to float32); non-tensor outputs are skipped with a warning. Engine
// failures are surfaced unchanged inside an inference-execution error;
// nothing is retried, because identical inputs on a deterministic model
// cannot produce a different outcome.
func (s *Session) Run(inputs []*tensor.Input) ([]*tensor.Output, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.inner == nil {
		return nil, errdefs.Wrap(errdefs.ErrInferenceExecution, nil,
			"session for %q is closed", s.path)
	}
	if len(inputs) != len(s.inputs) {
		return nil, errdefs.Wrap(errdefs.ErrShapeMismatch, nil,
			"got %d input tensors, model declares %d inputs", len(inputs), len(s.inputs))
	}

	inputTensors := make([]ort.Value, len(inputs))
	defer func() {
		for _, t := range inputTensors {
			if t != nil {
				t.Destroy()
			}
		}
	}()
	for i, in := range inputs {
		ot, err := ort.NewTensor(ort.NewShape(in.Dims()...), in.Values())
		if err != nil {
			return nil, errdefs.Wrap(errdefs.ErrInferenceExecution, err,
				"creating input tensor %d (%s)", i, s.inputs[i].Name)
		}
		inputTensors[i] = ot
	}

	// nil entries make the engine allocate each output with its true type.
	rawOutputs := make([]ort.Value, len(s.bound))
	if err := s.inner.Run(inputTensors, rawOutputs); err != nil {
		return nil, errdefs.Wrap(errdefs.ErrInferenceExecution, err,
			"running inference on %q", s.path)
	}
	defer func() {
		for _, v := range rawOutputs {
			if v != nil {
				v.Destroy()
			}
		}
	}()

	results := make([]*tensor.Output, 0, len(rawOutputs))
	for i, value := range rawOutputs {
		sig := s.bound[i]
		if value == nil {
			s.env.log.Warn().Str("output", sig.Name).
				Msg("engine did not materialize output, skipping")
			continue
		}
		if value.GetONNXType() != ort.ONNXTypeTensor {
			s.env.log.Warn().Str("output", sig.Name).
				Str("onnx_type", fmt.Sprintf("%v", value.GetONNXType())).
				Msg("output is not a tensor, skipping")
			continue
		}
		dims, data, ok := tensorValues(value)
		if !ok {
			s.env.log.Warn().Str("output", sig.Name).
				Str("go_type", fmt.Sprintf("%T", value)).
				Msg("output element type not supported, skipping")
			continue
		}
		results = append(results, tensor.NewOutput(sig.Name, dims, data))
	}
	if len(results) == 0 {
		return nil, errdefs.Wrap(errdefs.ErrInferenceExecution, nil,
			"none of the %d requested outputs materialized as a readable tensor", len(s.bound))
	}
	return results, nil
}

// tensorValues copies an engine-allocated tensor into plain Go memory,
// widening integer element types to float32. The copy must happen before the
// value is destroyed; engine-allocated buffers do not outlive their Value.
func tensorValues(value ort.Value) ([]int64, []float32, bool) {
	var data []float32
	var shape ort.Shape
	switch t := value.(type) {
	case *ort.Tensor[float32]:
		src := t.GetData()
		data = make([]float32, len(src))
		copy(data, src)
		shape = t.GetShape()
	case *ort.Tensor[float64]:
		src := t.GetData()
		data = make([]float32, len(src))
		for i, v := range src {
			data[i] = float32(v)
		}
		shape = t.GetShape()
	case *ort.Tensor[int64]:
		// sklearn classifier exports declare their label output as int64.
		src := t.GetData()
		data = make([]float32, len(src))
		for i, v := range src {
			data[i] = float32(v)
		}
		shape = t.GetShape()
	case *ort.Tensor[int32]:
		src := t.GetData()
		data = make([]float32, len(src))
		for i, v := range src {
			data[i] = float32(v)
		}
		shape = t.GetShape()
	default:
		return nil, nil, false
	}
	dims := make([]int64, len(shape))
	copy(dims, shape)
	return dims, data, true
}

// Close destroys the native session and detaches it from its Environment.
// Closing twice is a no-op.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inner == nil {
		return nil
	}
	err := s.inner.Destroy()
	s.inner = nil
	s.env.release(s)
	if err != nil {
		return errdefs.Wrap(errdefs.ErrInferenceExecution, err,
			"destroying session for %q", s.path)
	}
	return nil
}
