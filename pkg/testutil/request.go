package testutil

import "encoding/base64"

// Helper functions for common request patterns, preferring explicit calls
// over method chaining.

// GET creates a GET request with the specified path.
func GET(path string) Request {
	return Request{Method: "GET", Path: path}
}

// POST creates a POST request with the specified path and body.
func POST(path string, body interface{}) Request {
	return Request{Method: "POST", Path: path, Body: body}
}

// PUT creates a PUT request with the specified path and body.
func PUT(path string, body interface{}) Request {
	return Request{Method: "PUT", Path: path, Body: body}
}

// PATCH creates a PATCH request with the specified path and body.
func PATCH(path string, body interface{}) Request {
	return Request{Method: "PATCH", Path: path, Body: body}
}

// DELETE creates a DELETE request with the specified path.
func DELETE(path string) Request {
	return Request{Method: "DELETE", Path: path}
}

// WithAuth adds Bearer token authentication to the request.
func WithAuth(req Request, token string) Request {
	return WithHeader(req, "Authorization", "Bearer "+token)
}

// WithBasicAuth adds Basic authentication to the request.
func WithBasicAuth(req Request, username, password string) Request {
	creds := base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
	return WithHeader(req, "Authorization", "Basic "+creds)
}

// WithHeader adds a single header to the request.
func WithHeader(req Request, key, value string) Request {
	if req.Headers == nil {
		req.Headers = make(map[string]string)
	}
	req.Headers[key] = value
	return req
}

// WithHeaders adds headers to the request.
func WithHeaders(req Request, headers map[string]string) Request {
	for k, v := range headers {
		req = WithHeader(req, k, v)
	}
	return req
}

// WithContentType sets the Content-Type header.
func WithContentType(req Request, contentType string) Request {
	return WithHeader(req, "Content-Type", contentType)
}

// WithAccept sets the Accept header.
func WithAccept(req Request, accept string) Request {
	return WithHeader(req, "Accept", accept)
}

// WithJSON sets the Content-Type to application/json.
func WithJSON(req Request) Request {
	return WithContentType(req, "application/json")
}

// WithPathParam sets a single path parameter.
func WithPathParam(req Request, key, value string) Request {
	if req.PathParams == nil {
		req.PathParams = make(map[string]string)
	}
	req.PathParams[key] = value
	return req
}

// WithQueryParam sets a single query parameter.
func WithQueryParam(req Request, key, value string) Request {
	if req.QueryParams == nil {
		req.QueryParams = make(map[string]string)
	}
	req.QueryParams[key] = value
	return req
}

// WithCookie sets a single cookie.
func WithCookie(req Request, name, value string) Request {
	if req.Cookies == nil {
		req.Cookies = make(map[string]string)
	}
	req.Cookies[name] = value
	return req
}

// WithFile sets a single file upload.
func WithFile(req Request, fieldName string, content []byte) Request {
	if req.Files == nil {
		req.Files = make(map[string][]byte)
	}
	req.Files[fieldName] = content
	return req
}
