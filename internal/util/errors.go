package util

import (
	"errors"
	"fmt"
)

// Common sentinel errors.
var (
	ErrNotFound       = errors.New("not found")
	ErrInvalidInput   = errors.New("invalid input")
	ErrConfigInvalid  = errors.New("invalid configuration")
	ErrHandlerFailure = errors.New("handler failure")
	ErrListenerBind   = errors.New("listener bind failure")
)

// ConfigError represents a configuration-related error.
type ConfigError struct {
	Field   string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("config error at %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("config error: %s", e.Message)
}

// Unwrap returns the underlying error.
func (e *ConfigError) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches the target.
func (e *ConfigError) Is(target error) bool {
	if target == ErrConfigInvalid {
		return true
	}
	_, ok := target.(*ConfigError)
	return ok || errors.Is(e.Cause, target)
}

// NewConfigError creates a new ConfigError.
func NewConfigError(field, message string) *ConfigError {
	return &ConfigError{Field: field, Message: message}
}

// NewConfigErrorWithCause creates a new ConfigError with a cause.
func NewConfigErrorWithCause(field, message string, cause error) *ConfigError {
	return &ConfigError{Field: field, Message: message, Cause: cause}
}

// ValidationError represents a validation failure.
type ValidationError struct {
	Fields  map[string]string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return fmt.Sprintf("validation error: %s", e.Message)
	}
	return fmt.Sprintf("validation error: %s (fields: %v)", e.Message, e.Fields)
}

// Is checks if the error matches the target.
func (e *ValidationError) Is(target error) bool {
	if target == ErrConfigInvalid {
		return true
	}
	_, ok := target.(*ValidationError)
	return ok
}

// NewValidationError creates a new ValidationError.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{Message: message, Fields: make(map[string]string)}
}

// AddField adds a field error.
func (e *ValidationError) AddField(field, message string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	e.Fields[field] = message
}

// HasErrors reports whether any field error was recorded.
func (e *ValidationError) HasErrors() bool {
	return len(e.Fields) > 0
}

// RouteNotFoundError represents a route not found error.
type RouteNotFoundError struct {
	Path   string
	Method string
}

// Error implements the error interface.
func (e *RouteNotFoundError) Error() string {
	return fmt.Sprintf("no route found for %s %s", e.Method, e.Path)
}

// Is checks if the error matches the target.
func (e *RouteNotFoundError) Is(target error) bool {
	if target == ErrNotFound {
		return true
	}
	_, ok := target.(*RouteNotFoundError)
	return ok
}

// NewRouteNotFoundError creates a new RouteNotFoundError.
func NewRouteNotFoundError(method, path string) *RouteNotFoundError {
	return &RouteNotFoundError{Path: path, Method: method}
}

// HandlerError wraps an error returned by a route handler, or a value
// recovered from a handler panic.
type HandlerError struct {
	Route     string
	Recovered interface{}
	Cause     error
}

// Error implements the error interface.
func (e *HandlerError) Error() string {
	if e.Recovered != nil {
		return fmt.Sprintf("handler for %s panicked: %v", e.Route, e.Recovered)
	}
	return fmt.Sprintf("handler for %s failed: %v", e.Route, e.Cause)
}

// Unwrap returns the underlying error.
func (e *HandlerError) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches the target.
func (e *HandlerError) Is(target error) bool {
	if target == ErrHandlerFailure {
		return true
	}
	_, ok := target.(*HandlerError)
	return ok || errors.Is(e.Cause, target)
}

// NewHandlerError creates a HandlerError for an error returned by a handler.
func NewHandlerError(route string, cause error) *HandlerError {
	return &HandlerError{Route: route, Cause: cause}
}

// NewHandlerPanicError creates a HandlerError for a recovered panic.
func NewHandlerPanicError(route string, recovered interface{}) *HandlerError {
	err, _ := recovered.(error)
	return &HandlerError{Route: route, Recovered: recovered, Cause: err}
}

// ListenerError represents a failure to bind the listening socket.
type ListenerError struct {
	Address string
	Cause   error
}

// Error implements the error interface.
func (e *ListenerError) Error() string {
	return fmt.Sprintf("failed to listen on %s: %v", e.Address, e.Cause)
}

// Unwrap returns the underlying error.
func (e *ListenerError) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches the target.
func (e *ListenerError) Is(target error) bool {
	if target == ErrListenerBind {
		return true
	}
	_, ok := target.(*ListenerError)
	return ok || errors.Is(e.Cause, target)
}

// NewListenerError creates a new ListenerError.
func NewListenerError(address string, cause error) *ListenerError {
	return &ListenerError{Address: address, Cause: cause}
}

// WrapError wraps an error with additional context.
func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
