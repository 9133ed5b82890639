package testutil_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pavelpascari/typedrest/pkg/testutil"
)

func TestRequestBuilders(t *testing.T) {
	req := testutil.GET("/widgets")
	assert.Equal(t, "GET", req.Method)
	assert.Equal(t, "/widgets", req.Path)

	req = testutil.POST("/widgets", map[string]string{"name": "gear"})
	assert.Equal(t, "POST", req.Method)
	assert.NotNil(t, req.Body)
}

func TestRequestModifiers(t *testing.T) {
	req := testutil.GET("/widgets/{id}")
	req = testutil.WithPathParam(req, "id", "w1")
	req = testutil.WithQueryParam(req, "expand", "true")
	req = testutil.WithHeader(req, "X-Trace-ID", "t1")
	req = testutil.WithCookie(req, "session", "abc")

	assert.Equal(t, "w1", req.PathParams["id"])
	assert.Equal(t, "true", req.QueryParams["expand"])
	assert.Equal(t, "t1", req.Headers["X-Trace-ID"])
	assert.Equal(t, "abc", req.Cookies["session"])
}

func TestWithAuth(t *testing.T) {
	req := testutil.WithAuth(testutil.GET("/"), "token123")
	assert.Equal(t, "Bearer token123", req.Headers["Authorization"])
}

func TestWithBasicAuth(t *testing.T) {
	req := testutil.WithBasicAuth(testutil.GET("/"), "user", "pass")
	// base64("user:pass")
	assert.Equal(t, "Basic dXNlcjpwYXNz", req.Headers["Authorization"])
}

func TestWithAcceptAndContentType(t *testing.T) {
	req := testutil.WithAccept(testutil.GET("/"), "application/yaml")
	assert.Equal(t, "application/yaml", req.Headers["Accept"])

	req = testutil.WithJSON(testutil.POST("/", nil))
	assert.Equal(t, "application/json", req.Headers["Content-Type"])
}
