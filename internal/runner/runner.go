// Package runner drives one complete inference pass: open a runtime context,
// load the model, enumerate its signatures, build the example input, execute
// the inference call, and extract the reported scalar. A Runner is single
// shot; no stage is ever revisited within one instance.
package runner

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/SyedDaiam9101/forest-runner/internal/cache"
	"github.com/SyedDaiam9101/forest-runner/internal/config"
	"github.com/SyedDaiam9101/forest-runner/internal/engine"
	"github.com/SyedDaiam9101/forest-runner/internal/errdefs"
	"github.com/SyedDaiam9101/forest-runner/internal/metrics"
	"github.com/SyedDaiam9101/forest-runner/internal/tensor"
)

// State tracks the runner's position in its one-way lifecycle.
type State int

const (
	StateUninitialized State = iota
	StateReady
	StateModelLoaded
	StateInferenceComplete
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateReady:
		return "ready"
	case StateModelLoaded:
		return "model_loaded"
	case StateInferenceComplete:
		return "inference_complete"
	default:
		return "invalid"
	}
}

// Runner executes exactly one inference pass. Every log line it emits carries
// the run ID so a run can be followed through interleaved output.
type Runner struct {
	cfg    *config.Config
	log    zerolog.Logger
	cache  *cache.Cache
	tracer oteltrace.Tracer
	runID  string
	state  State
}

// New creates a Runner for one pass. cacheClient may be nil; caching is then
// skipped entirely.
func New(cfg *config.Config, logger zerolog.Logger, cacheClient *cache.Cache) *Runner {
	runID := uuid.New().String()
	return &Runner{
		cfg:    cfg,
		log:    logger.With().Str("run_id", runID).Logger(),
		cache:  cacheClient,
		tracer: otel.Tracer("forest-runner"),
		runID:  runID,
		state:  StateUninitialized,
	}
}

// RunID returns the identifier attached to this run's log lines.
func (r *Runner) RunID() string { return r.runID }

// State returns the runner's current lifecycle state.
func (r *Runner) State() State { return r.state }

// Run performs the full pass and returns the extracted scalar prediction.
// All failures are terminal: the error carries its kind from errdefs and the
// engine's original diagnostic text, and no partial result is returned.
func (r *Runner) Run(ctx context.Context) (float32, error) {
	if r.state != StateUninitialized {
		return 0, errors.Newf("runner already consumed (state %s)", r.state)
	}

	eng, cleanup, err := r.open(ctx)
	if err != nil {
		return 0, err
	}
	defer func() {
		if cerr := cleanup(); cerr != nil {
			r.log.Warn().Err(cerr).Msg("engine teardown failed")
		}
	}()

	return r.infer(ctx, eng)
}

// open brings the runner from Uninitialized to ModelLoaded and returns the
// engine plus a teardown function for everything it acquired.
func (r *Runner) open(ctx context.Context) (engine.Engine, func() error, error) {
	if r.cfg.UseMock {
		r.log.Info().Msg("using mock engine")
		r.state = StateReady
		mock := engine.NewMock()
		r.state = StateModelLoaded
		return mock, mock.Close, nil
	}

	engine.SetSharedLibraryPath(r.cfg.OnnxLib)

	env, err := engine.NewEnvironment(r.cfg.EnvironmentName, r.log)
	if err != nil {
		return nil, nil, err
	}
	r.state = StateReady
	r.log.Info().Str("environment", r.cfg.EnvironmentName).Msg("runtime environment created")

	_, span := r.tracer.Start(ctx, "model.load")
	defer span.End()

	loadStart := time.Now()
	session, err := env.LoadModel(r.cfg.Model, r.cfg.IntraOpThreads, r.cfg.Outputs...)
	if err != nil {
		env.Close()
		return nil, nil, err
	}
	metrics.RecordModelLoad(time.Since(loadStart).Seconds())
	r.state = StateModelLoaded
	r.log.Info().
		Str("model", r.cfg.Model).
		Int("intra_op_threads", r.cfg.IntraOpThreads).
		Dur("load_time", time.Since(loadStart)).
		Msg("model loaded")

	cleanup := func() error {
		// Sessions must go before their owning environment.
		err := session.Close()
		if cerr := env.Close(); cerr != nil && err == nil {
			err = cerr
		}
		return err
	}
	return session, cleanup, nil
}

// infer takes a loaded engine from ModelLoaded to InferenceComplete.
func (r *Runner) infer(ctx context.Context, eng engine.Engine) (float32, error) {
	inputSigs := eng.InputSignatures()
	outputSigs := eng.OutputSignatures()
	r.reportSignatures(inputSigs, outputSigs)

	if len(inputSigs) != 1 {
		return 0, errdefs.Wrap(errdefs.ErrUnsupportedShape, nil,
			"model declares %d inputs; this tool builds exactly one example input", len(inputSigs))
	}

	// A fully static declared shape is authoritative; the configured shape
	// only substitutes for models that declare a dynamic axis.
	dims := inputSigs[0].Dimensions
	if hasDynamicDims(dims) && len(r.cfg.Shape) > 0 {
		r.log.Debug().
			Ints64("declared", dims).
			Ints64("override", r.cfg.Shape).
			Msg("substituting static shape for dynamic axes")
		dims = r.cfg.Shape
	}
	input, err := tensor.BuildExample(dims, r.cfg.Values)
	if err != nil {
		return 0, err
	}
	r.log.Info().
		Str("input", inputSigs[0].Name).
		Floats32("values", r.cfg.Values).
		Msg("example input constructed")

	if r.cache != nil {
		key := cache.Key(r.cfg.Model, r.cfg.Values)
		if value, ok, err := r.cache.GetPrediction(ctx, key); err != nil {
			r.log.Warn().Err(err).Msg("cache lookup failed, running inference")
		} else if ok {
			// The model is deterministic, so a cached prediction for the
			// same artifact and features is the inference result.
			r.state = StateInferenceComplete
			metrics.RecordPrediction(value)
			r.log.Info().Float32("prediction", value).Msg("prediction served from cache")
			return value, nil
		}
	}

	ctx, span := r.tracer.Start(ctx, "inference.run")
	inferStart := time.Now()
	outputs, err := eng.Run([]*tensor.Input{input})
	inferDuration := time.Since(inferStart)
	span.End()
	metrics.RecordInferenceLatency(inferDuration.Seconds())
	if err != nil {
		return 0, err
	}
	if len(outputs) == 0 {
		return 0, errdefs.Wrap(errdefs.ErrInferenceExecution, nil,
			"engine returned no outputs")
	}

	prediction, err := outputs[0].ScalarAt(r.cfg.ScalarIndex)
	if err != nil {
		return 0, err
	}

	r.state = StateInferenceComplete
	metrics.RecordPrediction(prediction)
	r.log.Info().
		Str("output", outputs[0].Name()).
		Int("scalar_index", r.cfg.ScalarIndex).
		Float32("prediction", prediction).
		Dur("inference_time", inferDuration).
		Msg("prediction")

	if r.cache != nil {
		key := cache.Key(r.cfg.Model, r.cfg.Values)
		if err := r.cache.SetPrediction(ctx, key, prediction, r.cfg.CacheTTL); err != nil {
			r.log.Warn().Err(err).Msg("failed to cache prediction")
		}
	}

	return prediction, nil
}

// hasDynamicDims reports whether any axis is dynamic (non-positive) or the
// shape is missing entirely.
func hasDynamicDims(dims []int64) bool {
	if len(dims) == 0 {
		return true
	}
	for _, d := range dims {
		if d <= 0 {
			return true
		}
	}
	return false
}

// reportSignatures mirrors the enumeration the tool exists to demonstrate:
// input and output names, types, and shapes, in declaration order.
func (r *Runner) reportSignatures(inputs, outputs []engine.Signature) {
	r.log.Info().Int("count", len(inputs)).Msg("model inputs")
	for i, sig := range inputs {
		r.log.Info().
			Int("index", i).
			Str("name", sig.Name).
			Str("type", sig.ElementType).
			Ints64("shape", sig.Dimensions).
			Msg("input")
	}
	r.log.Info().Int("count", len(outputs)).Msg("model outputs")
	for i, sig := range outputs {
		r.log.Info().
			Int("index", i).
			Str("name", sig.Name).
			Str("type", sig.ElementType).
			Ints64("shape", sig.Dimensions).
			Msg("output")
	}
}
