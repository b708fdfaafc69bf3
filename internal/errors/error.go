package errors

import "fmt"

// Category represents the type of error.
type Category string

const (
	CategoryConfig  Category = "config"
	CategoryGateway Category = "gateway"
	CategoryAuth    Category = "auth"
	CategoryCLI     Category = "cli"
)

// GatewireError is a structured error with a code, a suggestion, and a
// documentation link. The CLI renders these with Format; library code
// in pkg/ uses plain sentinel errors and never sees this type.
type GatewireError struct {
	// Code is a unique error identifier (e.g., "E100").
	Code string

	// Category is the error type (config, gateway, etc.).
	Category Category

	// Message is a short description of the error.
	Message string

	// Detail is a longer explanation of the error.
	Detail string

	// Suggestion is a hint on how to fix the error.
	Suggestion string

	// DocURL is a link to documentation about this error.
	DocURL string

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *GatewireError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return e.Message
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *GatewireError) Unwrap() error {
	return e.Wrapped
}

// WithDetail adds a detailed explanation to the error.
func (e *GatewireError) WithDetail(d string) *GatewireError {
	e.Detail = d
	return e
}

// WithSuggestion adds a fix suggestion to the error.
func (e *GatewireError) WithSuggestion(s string) *GatewireError {
	e.Suggestion = s
	return e
}

// Wrap wraps another error.
func (e *GatewireError) Wrap(err error) *GatewireError {
	e.Wrapped = err
	return e
}

// New creates a GatewireError from a registered error code.
func New(code string) *GatewireError {
	template, ok := registry[code]
	if !ok {
		return &GatewireError{
			Code:    code,
			Message: "Unknown error",
		}
	}
	return &GatewireError{
		Code:     code,
		Category: template.Category,
		Message:  template.Message,
		Detail:   template.Detail,
		DocURL:   template.DocURL,
	}
}

// Newf creates a new GatewireError with a formatted message (no code).
func Newf(category Category, format string, args ...any) *GatewireError {
	return &GatewireError{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	}
}

// FromError wraps a standard error in a GatewireError.
func FromError(err error, code string) *GatewireError {
	if err == nil {
		return nil
	}
	if ge, ok := err.(*GatewireError); ok {
		return ge
	}
	return New(code).Wrap(err)
}
