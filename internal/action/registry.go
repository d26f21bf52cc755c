package action

import (
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/cockroachdb/errors"
)

// ErrUnknownType is returned for action types without an executor.
var ErrUnknownType = errors.New("no executor registered for action type")

// Registry maps action types ("send_email", ...) to their executors. It is
// filled at startup and read by the config validator and the engine.
type Registry struct {
	mu        sync.RWMutex
	executors map[string]Executor
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{executors: make(map[string]Executor)}
}

// Register adds an executor. Registering a type twice panics.
func (r *Registry) Register(e Executor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.executors[e.Type()]; exists {
		panic(fmt.Sprintf("action registry: duplicate type %q", e.Type()))
	}
	r.executors[e.Type()] = e
}

// Get returns the executor for the given type.
func (r *Registry) Get(actionType string) (Executor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.executors[actionType]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownType, "%q", actionType)
	}
	return e, nil
}

// Check validates the params of an action of the given type.
func (r *Registry) Check(actionType string, params map[string]any) error {
	e, err := r.Get(actionType)
	if err != nil {
		return err
	}
	if err := e.Validate(params); err != nil {
		return errors.Wrapf(err, "%s params", actionType)
	}
	return nil
}

// Types returns all registered action type strings, sorted.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.executors))
}
