package command

import (
	"context"
	"fmt"
)

// Outcome is the three-way result of a dispatch attempt. Callers must
// render an "unknown command" reply only for OutcomeUnknown, and fall
// through to conversation handling only for OutcomeNotCommand.
type Outcome int

const (
	// OutcomeNotCommand means the text is not shaped like a command.
	OutcomeNotCommand Outcome = iota
	// OutcomeHandled means a registered handler consumed the command.
	OutcomeHandled
	// OutcomeUnknown means the text is a command with no registered handler.
	OutcomeUnknown
)

// Handler consumes a command invocation. The remainder is the free-form
// text after the command name, empty when absent.
type Handler[T any] func(ctx context.Context, remainder string, req T) error

// Registry maps command names to handlers. It is built once at startup via
// Register calls and read-only afterwards.
type Registry[T any] struct {
	handlers map[string]Handler[T]
}

// NewRegistry creates an empty command registry.
func NewRegistry[T any]() *Registry[T] {
	return &Registry[T]{handlers: map[string]Handler[T]{}}
}

// Register associates a command name with a handler. Names are unique.
func (r *Registry[T]) Register(name string, handler Handler[T]) error {
	if name == "" {
		return fmt.Errorf("command name is required")
	}
	if handler == nil {
		return fmt.Errorf("command %q: handler is required", name)
	}
	if _, exists := r.handlers[name]; exists {
		return fmt.Errorf("command %q already registered", name)
	}
	r.handlers[name] = handler
	return nil
}

// MustRegister is Register that panics on configuration mistakes.
func (r *Registry[T]) MustRegister(name string, handler Handler[T]) {
	if err := r.Register(name, handler); err != nil {
		panic(err)
	}
}

// Dispatch parses text and routes it. The returned error comes from the
// handler and is only meaningful with OutcomeHandled.
func (r *Registry[T]) Dispatch(ctx context.Context, text string, req T) (Outcome, error) {
	parsed := Parse(text)
	if !parsed.IsCommand {
		return OutcomeNotCommand, nil
	}
	handler, ok := r.handlers[parsed.Name]
	if !ok {
		return OutcomeUnknown, nil
	}
	if err := handler(ctx, parsed.Remainder, req); err != nil {
		return OutcomeHandled, fmt.Errorf("command %q: %w", parsed.Name, err)
	}
	return OutcomeHandled, nil
}
