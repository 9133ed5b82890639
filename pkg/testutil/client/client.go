// Package client provides a context-aware in-process HTTP client for
// testing typedrest routers.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"time"

	"github.com/pavelpascari/typedrest/pkg/testutil"
	"github.com/pavelpascari/typedrest/pkg/typedrest"
)

// Client executes testutil requests against a router in process, without a
// network listener.
type Client struct {
	router  *typedrest.Router
	baseURL string
	timeout time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the default timeout for requests.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// WithBaseURL sets the base URL for requests.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// NewClient creates a client over a router.
func NewClient(router *typedrest.Router, opts ...Option) *Client {
	client := &Client{
		router:  router,
		timeout: testutil.DefaultTimeout,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Execute performs a request against the router.
func (c *Client) Execute(ctx context.Context, req testutil.Request) (*testutil.Response, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	httpReq, err := c.buildHTTPRequest(ctx, req)
	if err != nil {
		return nil, &testutil.RequestError{
			Method: req.Method,
			Path:   req.Path,
			Err:    fmt.Errorf("building HTTP request: %w", err),
		}
	}

	recorder := httptest.NewRecorder()
	c.router.ServeHTTP(recorder, httpReq)

	body, err := io.ReadAll(recorder.Body)
	if err != nil {
		return nil, &testutil.RequestError{
			Method: req.Method,
			Path:   req.Path,
			Err:    fmt.Errorf("reading response body: %w", err),
		}
	}

	return &testutil.Response{
		StatusCode: recorder.Code,
		Headers:    recorder.Header(),
		Raw:        body,
	}, nil
}

// ExecuteTyped performs a request and decodes a JSON response body.
func ExecuteTyped[T any](c *Client, ctx context.Context, req testutil.Request) (*testutil.TypedResponse[T], error) {
	resp, err := c.Execute(ctx, req)
	if err != nil {
		return nil, err
	}

	var data T
	if len(resp.Raw) > 0 && strings.Contains(resp.Headers.Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(resp.Raw, &data); err != nil {
			return nil, &testutil.RequestError{
				Method: req.Method,
				Path:   req.Path,
				Err:    fmt.Errorf("unmarshaling JSON response: %w", err),
			}
		}
	}

	return &testutil.TypedResponse[T]{Response: resp, Data: data}, nil
}

func (c *Client) buildHTTPRequest(ctx context.Context, req testutil.Request) (*http.Request, error) {
	path := buildRequestPath(req)
	body, contentType, err := buildRequestBody(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("creating HTTP request: %w", err)
	}

	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}
	for name, value := range req.Cookies {
		httpReq.AddCookie(&http.Cookie{Name: name, Value: value})
	}

	return httpReq, nil
}

func buildRequestPath(req testutil.Request) string {
	path := req.Path
	for key, value := range req.PathParams {
		path = strings.ReplaceAll(path, "{"+key+"}", value)
	}

	if len(req.QueryParams) > 0 {
		values := url.Values{}
		for key, value := range req.QueryParams {
			values.Set(key, value)
		}
		path += "?" + values.Encode()
	}

	return path
}

func buildRequestBody(req testutil.Request) (io.Reader, string, error) {
	if req.Body == nil && len(req.Files) == 0 {
		return nil, "", nil
	}
	if len(req.Files) > 0 {
		return buildMultipartBody(req)
	}
	if raw, ok := req.Body.([]byte); ok {
		return bytes.NewReader(raw), "", nil
	}

	jsonData, err := json.Marshal(req.Body)
	if err != nil {
		return nil, "", fmt.Errorf("marshaling request body to JSON: %w", err)
	}
	return bytes.NewReader(jsonData), "application/json", nil
}

func buildMultipartBody(req testutil.Request) (io.Reader, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	if bodyMap, ok := req.Body.(map[string]string); ok {
		for key, value := range bodyMap {
			if err := writer.WriteField(key, value); err != nil {
				return nil, "", fmt.Errorf("writing form field %s: %w", key, err)
			}
		}
	}

	for fieldName, content := range req.Files {
		part, err := writer.CreateFormFile(fieldName, fieldName)
		if err != nil {
			return nil, "", fmt.Errorf("creating form file %s: %w", fieldName, err)
		}
		if _, err := part.Write(content); err != nil {
			return nil, "", fmt.Errorf("writing file content for %s: %w", fieldName, err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("closing multipart writer: %w", err)
	}

	return &buf, writer.FormDataContentType(), nil
}
