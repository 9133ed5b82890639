package client_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavelpascari/typedrest/pkg/testutil"
	httpassert "github.com/pavelpascari/typedrest/pkg/testutil/assert"
	"github.com/pavelpascari/typedrest/pkg/testutil/client"
	"github.com/pavelpascari/typedrest/pkg/typedrest"
)

type echoRequest struct {
	ID     string `path:"id" validate:"required"`
	Expand bool   `query:"expand" default:"false"`
}

type echoResponse struct {
	ID     string `json:"id"`
	Expand bool   `json:"expand"`
}

type echoHandler struct{}

func (h *echoHandler) Handle(ctx context.Context, req echoRequest) (echoResponse, error) {
	return echoResponse{ID: req.ID, Expand: req.Expand}, nil
}

func newRouter() *typedrest.Router {
	router := typedrest.NewRouter(typedrest.WithRouterSettings(typedrest.DefaultSettings()))
	typedrest.GET(router, "/widgets/{id}", &echoHandler{})
	return router
}

func TestClient_Execute(t *testing.T) {
	c := client.NewClient(newRouter())

	req := testutil.WithQueryParam(
		testutil.WithPathParam(testutil.GET("/widgets/{id}"), "id", "w1"),
		"expand", "true")

	resp, err := c.Execute(context.Background(), req)
	require.NoError(t, err)

	httpassert.StatusOK(t, resp)
	httpassert.JSONContentType(t, resp)
	httpassert.JSONField(t, resp, "id", "w1")
	httpassert.JSONField(t, resp, "expand", true)
}

func TestClient_ExecuteTyped(t *testing.T) {
	c := client.NewClient(newRouter())

	req := testutil.WithPathParam(testutil.GET("/widgets/{id}"), "id", "w2")
	resp, err := client.ExecuteTyped[echoResponse](c, context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "w2", resp.Data.ID)
}

func TestClient_RequestErrorOnBadMethod(t *testing.T) {
	c := client.NewClient(newRouter())

	_, err := c.Execute(context.Background(), testutil.Request{Method: "BAD METHOD", Path: "/"})
	require.Error(t, err)
	assert.True(t, testutil.IsRequestError(err))
}
