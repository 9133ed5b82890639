package typedrest

import (
	"context"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"
)

// HandlerMode distinguishes unary endpoints (one buffered, schema-checked
// response value) from streaming endpoints (long-lived byte stream bodies).
// An endpoint and everything attached to it must be homogeneous; mixing is
// rejected at registration time.
type HandlerMode int

const (
	// ModeUnary is the default request/response mode.
	ModeUnary HandlerMode = iota
	// ModeStreaming marks endpoints returning StreamingResponse.
	ModeStreaming
)

func (m HandlerMode) String() string {
	if m == ModeStreaming {
		return "streaming"
	}
	return "unary"
}

// ErrorHandler converts a request-time error into a response. Returning a
// non-nil Response ends the chain: that response is final. Returning an
// error passes control to the next layer.
type ErrorHandler interface {
	HandleError(ctx context.Context, r *http.Request, err error) (*Response, error)
}

// ErrorHandlerFunc adapts a function to ErrorHandler.
type ErrorHandlerFunc func(ctx context.Context, r *http.Request, err error) (*Response, error)

func (f ErrorHandlerFunc) HandleError(ctx context.Context, r *http.Request, err error) (*Response, error) {
	return f(ctx, r, err)
}

// ModeSupporter is implemented by error handlers that can run for modes
// other than unary. Handlers without it are unary-only, which registration
// checks against the endpoint's mode.
type ModeSupporter interface {
	SupportsMode(mode HandlerMode) bool
}

func handlerSupportsMode(h ErrorHandler, mode HandlerMode) bool {
	if mode == ModeUnary {
		return true
	}
	ms, ok := h.(ModeSupporter)
	return ok && ms.SupportsMode(mode)
}

// GlobalErrorHandler is the last-resort handler. It must always produce a
// response; if it panics, the chain falls back to a hardcoded minimal body.
type GlobalErrorHandler func(ctx context.Context, r *http.Request, err error) *Response

// ErrorChain is the deterministic ordering of error handlers for one
// endpoint: endpoint-level, then grouping-level, then container-level, then
// global. Its terminal guarantee is that Resolve never returns nil.
type ErrorChain struct {
	endpoint  ErrorHandler
	group     ErrorHandler
	container ErrorHandler
	global    GlobalErrorHandler
	log       logrus.FieldLogger
}

// NewErrorChain assembles a chain. Any layer but global may be nil.
func NewErrorChain(
	endpoint, group, container ErrorHandler,
	global GlobalErrorHandler,
	log logrus.FieldLogger,
) *ErrorChain {
	if global == nil {
		global = DefaultGlobalErrorHandler(http.StatusInternalServerError, log)
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &ErrorChain{
		endpoint:  endpoint,
		group:     group,
		container: container,
		global:    global,
		log:       log,
	}
}

// Resolve walks the chain until a layer produces a response. A layer that
// returns an error hands that error (possibly transformed) to the next
// layer. The structured APIError type bypasses every layer.
func (c *ErrorChain) Resolve(ctx context.Context, r *http.Request, err error) *Response {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return responseFromAPIError(apiErr)
	}

	for _, layer := range []ErrorHandler{c.endpoint, c.group, c.container} {
		if layer == nil {
			continue
		}
		resp, layerErr := layer.HandleError(ctx, r, err)
		if resp != nil {
			return resp
		}
		if layerErr != nil {
			err = layerErr
		}
	}

	return c.resolveGlobal(ctx, r, err)
}

func (c *ErrorChain) resolveGlobal(ctx context.Context, r *http.Request, err error) (resp *Response) {
	defer func() {
		if rec := recover(); rec != nil {
			c.log.WithField("panic", rec).Error("global error handler panicked")
			resp = fallbackResponse()
		}
	}()
	resp = c.global(ctx, r, err)
	if resp == nil {
		resp = fallbackResponse()
	}
	return resp
}

func responseFromAPIError(apiErr *APIError) *Response {
	headers := apiErr.Headers
	if headers == nil {
		headers = make(http.Header)
	}
	return &Response{
		Status:  apiErr.Status,
		Headers: headers,
		Body:    apiErr.Body,
	}
}

// DefaultGlobalErrorHandler maps the error taxonomy onto responses.
// mismatchStatus is the configured status for response schema violations
// (500 by default, 422 when the deployment prefers it).
func DefaultGlobalErrorHandler(mismatchStatus int, log logrus.FieldLogger) GlobalErrorHandler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return func(ctx context.Context, r *http.Request, err error) *Response {
		var (
			reqErr    *RequestSerializationError
			respErr   *ResponseSchemaError
			acceptErr *NotAcceptableError
			authErr   *NotAuthenticatedError
			methodErr *MethodNotAllowedError
		)
		switch {
		case errors.As(err, &reqErr):
			log.WithError(err).Debug("request serialization failed")
			return NewResponse(
				ErrorBody{Detail: reqErr.Detail, Fields: reqErr.Fields},
				WithResponseStatus(reqErr.StatusCode()))
		case errors.As(err, &respErr):
			// Contract violation inside the server. Logged loudly and kept
			// distinguishable from client errors.
			log.WithError(err).Error("response schema violation")
			return NewResponse(
				ErrorBody{Detail: "response schema validation failed"},
				WithResponseStatus(mismatchStatus))
		case errors.As(err, &acceptErr):
			log.WithError(err).Debug("accept negotiation failed")
			return NewResponse(
				ErrorBody{Detail: acceptErr.Error()},
				WithResponseStatus(acceptErr.StatusCode()))
		case errors.As(err, &authErr):
			log.WithError(err).Debug("authentication failed")
			return NewResponse(
				ErrorBody{Detail: authErr.Error()},
				WithResponseStatus(authErr.StatusCode()))
		case errors.As(err, &methodErr):
			return NewResponse(
				ErrorBody{Detail: methodErr.Error()},
				WithResponseStatus(http.StatusMethodNotAllowed))
		default:
			log.WithError(err).Error("unhandled error")
			return NewResponse(
				ErrorBody{Detail: "internal server error"},
				WithResponseStatus(http.StatusInternalServerError))
		}
	}
}

// fallbackResponse is the hardcoded minimal error body used when even the
// global handler fails.
func fallbackResponse() *Response {
	return &Response{
		Status:      http.StatusInternalServerError,
		Headers:     make(http.Header),
		rendered:    []byte(`{"detail":"internal server error"}`),
		contentType: "application/json",
	}
}
