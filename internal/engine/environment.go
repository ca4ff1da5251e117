// Package engine wraps the ONNX Runtime binding behind the two lifetimes the
// rest of the tool cares about: an Environment (the runtime context) and a
// Session (one loaded model). All native resource handling stays inside this
// package; everything that crosses its boundary is plain Go memory.
package engine

import (
	"sync"

	"github.com/rs/zerolog"
	ort "github.com/yalue/onnxruntime_go"

	"github.com/SyedDaiam9101/forest-runner/internal/errdefs"
)

// The native runtime environment is process-global in the binding, so
// Environment instances reference-count it: the first one initializes it, the
// last one to close destroys it. This is what keeps two independently
// constructed Environments from tearing the runtime out from under each
// other's sessions.
var (
	globalMu   sync.Mutex
	globalRefs int
)

// SetSharedLibraryPath points the binding at a non-default onnxruntime shared
// library location. Must be called before the first Environment is created;
// an empty path is a no-op.
func SetSharedLibraryPath(path string) {
	if path != "" {
		ort.SetSharedLibraryPath(path)
	}
}

// Environment is the runtime context: a named handle to the engine's global
// state that owns every Session loaded through it. Sessions belonging to one
// Environment are invisible to every other Environment.
type Environment struct {
	mu       sync.Mutex
	name     string
	log      zerolog.Logger
	sessions map[*Session]struct{}
	closed   bool
}

// NewEnvironment creates a runtime context with an identifying name. The
// logger carries the configured verbosity; every message emitted on behalf of
// this context is tagged with its name.
func NewEnvironment(name string, logger zerolog.Logger) (*Environment, error) {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalRefs == 0 {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, errdefs.Wrap(errdefs.ErrEnvironmentInit, err,
				"initializing ONNX runtime environment %q", name)
		}
	}
	globalRefs++

	return &Environment{
		name:     name,
		log:      logger.With().Str("environment", name).Logger(),
		sessions: make(map[*Session]struct{}),
	}, nil
}

// Name returns the identifying name this context was created with.
func (e *Environment) Name() string { return e.name }

// Close destroys every Session still owned by this Environment and releases
// its reference on the native runtime. Closing twice is a no-op.
func (e *Environment) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	remaining := make([]*Session, 0, len(e.sessions))
	for s := range e.sessions {
		remaining = append(remaining, s)
	}
	e.sessions = nil
	e.mu.Unlock()

	var firstErr error
	for _, s := range remaining {
		if err := s.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	globalMu.Lock()
	defer globalMu.Unlock()
	globalRefs--
	if globalRefs == 0 {
		if err := ort.DestroyEnvironment(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// adopt registers a freshly loaded session with its owning environment.
func (e *Environment) adopt(s *Session) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return errdefs.Wrap(errdefs.ErrEnvironmentInit, nil,
			"environment %q is closed", e.name)
	}
	e.sessions[s] = struct{}{}
	return nil
}

// release forgets a session that has been closed on its own.
func (e *Environment) release(s *Session) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.sessions != nil {
		delete(e.sessions, s)
	}
}

// SessionCount reports how many sessions this environment currently owns.
func (e *Environment) SessionCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.sessions)
}
