package typedrest

import (
	"io"
	"net/http"
)

// Response is the outbound response primitive handlers and error handlers
// can return when they need control over status, headers or cookies. Plain
// handler return values are wrapped into one internally, so both paths
// share the same rendering code.
type Response struct {
	Status  int
	Headers http.Header
	Cookies []*http.Cookie
	Body    interface{}

	// rendered short-circuits the renderer; used by the hardcoded
	// last-resort fallback only.
	rendered    []byte
	contentType string
}

// ResponseOption configures a Response.
type ResponseOption func(*Response)

// WithHeader adds a response header.
func WithHeader(name, value string) ResponseOption {
	return func(resp *Response) {
		resp.Headers.Add(name, value)
	}
}

// WithCookie attaches a cookie to the response.
func WithCookie(c *http.Cookie) ResponseOption {
	return func(resp *Response) {
		resp.Cookies = append(resp.Cookies, c)
	}
}

// WithResponseStatus overrides the endpoint's declared or inferred status.
func WithResponseStatus(status int) ResponseOption {
	return func(resp *Response) {
		resp.Status = status
	}
}

// NewResponse wraps a body value. Status zero means "use the endpoint's
// declared or inferred status".
func NewResponse(body interface{}, opts ...ResponseOption) *Response {
	resp := &Response{Headers: make(http.Header), Body: body}
	for _, opt := range opts {
		opt(resp)
	}
	return resp
}

// StreamingResponse represents a response streamed to the client. Endpoints
// returning one run in streaming mode: the body bypasses rendering and
// response validation, since the value is not a finite schema-checked
// document.
type StreamingResponse struct {
	ContentType string
	Filename    string
	Stream      io.Reader
	StatusCode  int
}

// InferStatusCode infers the success status from the HTTP method when an
// endpoint does not pin one: POST creates, everything else reads.
func InferStatusCode(method string) int {
	if method == http.MethodPost {
		return http.StatusCreated
	}
	return http.StatusOK
}
