package util

import (
	"fmt"
	"regexp"
)

// identifierPattern matches names usable as path parameters.
var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidatePort validates a TCP port. Zero is accepted and means "any free port".
func ValidatePort(port int) error {
	if port < 0 || port > 65535 {
		return fmt.Errorf("%w: port %d out of range 0-65535", ErrInvalidInput, port)
	}
	return nil
}

// ValidateNonEmpty validates that a string is not empty.
func ValidateNonEmpty(value, name string) error {
	if value == "" {
		return fmt.Errorf("%w: %s must not be empty", ErrInvalidInput, name)
	}
	return nil
}

// ValidatePercentage validates a ratio in [0, 1].
func ValidatePercentage(value float64) error {
	if value < 0 || value > 1 {
		return fmt.Errorf("%w: %v not in range 0-1", ErrInvalidInput, value)
	}
	return nil
}

// ValidateIdentifier validates an identifier-like token such as a path
// parameter name.
func ValidateIdentifier(name string) error {
	if !identifierPattern.MatchString(name) {
		return fmt.Errorf("%w: %q is not a valid identifier", ErrInvalidInput, name)
	}
	return nil
}

// ValidateHTTPMethod validates an upper-case request method token.
func ValidateHTTPMethod(method string) error {
	switch method {
	case "GET", "HEAD", "POST", "PUT", "PATCH", "DELETE", "OPTIONS":
		return nil
	default:
		return fmt.Errorf("%w: unsupported method %q", ErrInvalidInput, method)
	}
}
