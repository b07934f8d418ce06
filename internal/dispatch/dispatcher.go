// Package dispatch hands onboarding tasks to an asynchronous carrier. Zeebe
// and asynq backends implement the same contract: at-least-once delivery,
// deduplicated by the task's idempotency key.
package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"onboarding-workers/internal/common/errors"
	"onboarding-workers/pkg/registry"
)

// Task is one unit of dispatched work.
type Task struct {
	EntityType     string          `json:"entityType"`
	HandlerName    string          `json:"handlerName"`
	Payload        json.RawMessage `json:"payload"`
	IdempotencyKey string          `json:"idempotencyKey"`
	// CorrelationKey routes a Zeebe message; it is usually the applicant id.
	CorrelationKey string `json:"correlationKey,omitempty"`
}

// Decode unmarshals the payload into v.
func (t Task) Decode(v interface{}) error {
	if err := json.Unmarshal(t.Payload, v); err != nil {
		return errors.NewPayloadInvalidError(t.HandlerName, []string{err.Error()})
	}
	return nil
}

// Result is what a dispatch produced. Output is only set in wait mode.
type Result struct {
	Output    json.RawMessage
	Duplicate bool
}

// Dispatcher is the carrier-independent dispatch contract. With wait set the
// call returns after the handler has run and Output carries its result.
type Dispatcher interface {
	Dispatch(ctx context.Context, task Task, wait bool) (*Result, error)
}

// HandlerFunc runs a task and returns a JSON-serializable output.
type HandlerFunc func(ctx context.Context, task Task) (interface{}, error)

// Registry maps handler names to their functions. It backs asynq delivery
// and inline wait-mode execution.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]HandlerFunc
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]HandlerFunc)}
}

func (r *Registry) Register(name string, h HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[name] = h
}

func (r *Registry) Lookup(name string) (HandlerFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[name]
	return h, ok
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.handlers))
	for n := range r.handlers {
		names = append(names, n)
	}
	return names
}

// validate checks the task against the catalog before it leaves the process.
func validate(catalog *registry.TaskCatalog, task Task) (*registry.Task, error) {
	if task.HandlerName == "" {
		return nil, errors.NewPayloadInvalidError("", []string{"handlerName is required"})
	}
	if task.IdempotencyKey == "" {
		return nil, errors.NewPayloadInvalidError(task.HandlerName, []string{"idempotencyKey is required"})
	}
	if catalog == nil {
		return nil, nil
	}

	entry, ok := catalog.Lookup(task.HandlerName)
	if !ok {
		return nil, errors.NewDispatchFailedError(task.HandlerName, fmt.Errorf("handler is not in the task catalog"))
	}
	res, err := catalog.ValidatePayload(task.HandlerName, task.Payload)
	if err != nil {
		return nil, errors.NewPayloadInvalidError(task.HandlerName, []string{err.Error()})
	}
	if !res.Valid {
		return nil, errors.NewPayloadInvalidError(task.HandlerName, res.Messages())
	}
	return entry, nil
}

// runInline executes a registered handler in the caller's goroutine.
func runInline(ctx context.Context, handlers *Registry, task Task) (*Result, error) {
	h, ok := handlers.Lookup(task.HandlerName)
	if !ok {
		return nil, errors.NewDispatchFailedError(task.HandlerName, fmt.Errorf("no handler registered"))
	}
	out, err := h(ctx, task)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(out)
	if err != nil {
		return nil, errors.NewDispatchFailedError(task.HandlerName, err)
	}
	return &Result{Output: raw}, nil
}
