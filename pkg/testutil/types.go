// Package testutil provides utilities for testing typedrest endpoints with
// context support, explicit error handling, and focused interfaces.
package testutil

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// DefaultTimeout bounds test requests that carry no deadline of their own.
const DefaultTimeout = 5 * time.Second

// Request represents an HTTP request with all necessary data.
type Request struct {
	Method      string
	Path        string
	PathParams  map[string]string
	QueryParams map[string]string
	Headers     map[string]string
	Cookies     map[string]string
	Body        interface{}
	Files       map[string][]byte
}

// Response represents an HTTP response.
type Response struct {
	StatusCode int
	Headers    http.Header
	Raw        []byte
}

// TypedResponse wraps Response with decoded data for when type safety is
// needed.
type TypedResponse[T any] struct {
	*Response
	Data T
}

// HTTPClient is the client interface for HTTP testing. Typed execution is a
// package-level generic function since interfaces cannot carry type
// parameters.
type HTTPClient interface {
	Execute(ctx context.Context, req Request) (*Response, error)
}

// RequestError provides context-aware error reporting for test requests.
type RequestError struct {
	Method string
	Path   string
	Err    error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("request %s %s failed: %v", e.Method, e.Path, e.Err)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// IsRequestError checks if an error is a RequestError.
func IsRequestError(err error) bool {
	var reqErr *RequestError
	return errors.As(err, &reqErr)
}
