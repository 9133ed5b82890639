package typedrest

import (
	"fmt"
	"net/http"
)

// RequestSerializationError reports that the negotiated parser could not
// decode or validate inbound data: malformed body, missing required
// header/query/path field, wrong types, or an unsupported Content-Type.
// Always client-caused.
type RequestSerializationError struct {
	Detail string            `json:"detail"`
	Fields map[string]string `json:"fields,omitempty"`
}

func (e *RequestSerializationError) Error() string {
	return e.Detail
}

// StatusCode returns the HTTP status used for this error class.
func (e *RequestSerializationError) StatusCode() int {
	return http.StatusBadRequest
}

// NewRequestSerializationError creates a request-side serialization error
// with optional per-field detail.
func NewRequestSerializationError(detail string, fields map[string]string) *RequestSerializationError {
	return &RequestSerializationError{Detail: detail, Fields: fields}
}

// ResponseSchemaError reports that a handler's return value did not match
// the schema bound to the negotiated (status, content type) pair. This is a
// programmer error, not a client error: the status it maps to is
// configurable (500 by default) and it is never silently coerced.
type ResponseSchemaError struct {
	Detail string `json:"detail"`
}

func (e *ResponseSchemaError) Error() string {
	return e.Detail
}

// NewResponseSchemaError creates a response-side schema violation error.
func NewResponseSchemaError(detail string) *ResponseSchemaError {
	return &ResponseSchemaError{Detail: detail}
}

// NotAcceptableError reports that no declared renderer satisfies the
// request's Accept header. Raised before the handler runs.
type NotAcceptableError struct {
	Accept  string   `json:"accept"`
	Offered []string `json:"offered"`
}

func (e *NotAcceptableError) Error() string {
	return fmt.Sprintf("cannot satisfy Accept header %q, offered: %v", e.Accept, e.Offered)
}

// StatusCode returns the HTTP status used for this error class.
func (e *NotAcceptableError) StatusCode() int {
	return http.StatusNotAcceptable
}

// NotAuthenticatedError reports that none of the declared authenticators
// produced a principal, or one of them failed the request explicitly.
type NotAuthenticatedError struct {
	Detail string `json:"detail"`
}

func (e *NotAuthenticatedError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return "not authenticated"
}

// StatusCode returns the HTTP status used for this error class.
func (e *NotAuthenticatedError) StatusCode() int {
	return http.StatusUnauthorized
}

// MethodNotAllowedError is raised when a request hits a registered path with
// a method no endpoint declares. It is special: there is no endpoint
// metadata to consult, so it is handled by the router directly.
type MethodNotAllowedError struct {
	Method  string   `json:"method"`
	Allowed []string `json:"allowed"`
}

func (e *MethodNotAllowedError) Error() string {
	return fmt.Sprintf("method %q is not allowed, allowed: %v", e.Method, e.Allowed)
}

// EndpointMetadataError reports an internally inconsistent endpoint
// declaration: duplicate conditional bindings, mode mismatches, body
// components on bodyless methods, and similar. These fail at registration
// time, never at request time.
type EndpointMetadataError struct {
	Detail string
}

func (e *EndpointMetadataError) Error() string {
	return e.Detail
}

func newMetadataError(format string, args ...interface{}) *EndpointMetadataError {
	return &EndpointMetadataError{Detail: fmt.Sprintf(format, args...)}
}

// APIError is a structured, pre-formed error response. Returning (or
// wrapping) one from a handler or auth hook bypasses the layered error
// handler chain entirely: it carries its own status code and payload and is
// converted to a response by the same code path as success values.
type APIError struct {
	Status  int
	Body    interface{}
	Headers http.Header
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status %d", e.Status)
}

// NewAPIError creates a structured API error with the given status and
// payload.
func NewAPIError(status int, body interface{}) *APIError {
	return &APIError{Status: status, Body: body}
}

// ErrorBody is the default wire shape for error payloads produced by the
// built-in global handler and the hardcoded fallback.
type ErrorBody struct {
	Detail string            `json:"detail"`
	Fields map[string]string `json:"fields,omitempty"`
}
