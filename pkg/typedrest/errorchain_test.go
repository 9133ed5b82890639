package typedrest_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavelpascari/typedrest/pkg/typedrest"
)

func probeHandler(name string, calls *[]string, resp *typedrest.Response) typedrest.ErrorHandler {
	return typedrest.ErrorHandlerFunc(
		func(ctx context.Context, r *http.Request, err error) (*typedrest.Response, error) {
			*calls = append(*calls, name)
			return resp, nil
		})
}

func quietLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func TestErrorChain_Ordering(t *testing.T) {
	var calls []string
	chain := typedrest.NewErrorChain(
		probeHandler("endpoint", &calls, nil),
		probeHandler("group", &calls, nil),
		probeHandler("container", &calls, nil),
		func(ctx context.Context, r *http.Request, err error) *typedrest.Response {
			calls = append(calls, "global")
			return typedrest.NewResponse(typedrest.ErrorBody{Detail: "handled"},
				typedrest.WithResponseStatus(http.StatusInternalServerError))
		},
		quietLogger(),
	)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	resp := chain.Resolve(context.Background(), r, errors.New("boom"))

	require.NotNil(t, resp)
	assert.Equal(t, []string{"endpoint", "group", "container", "global"}, calls)
}

func TestErrorChain_FirstResponseWins(t *testing.T) {
	var calls []string
	handled := typedrest.NewResponse(typedrest.ErrorBody{Detail: "by group"},
		typedrest.WithResponseStatus(http.StatusConflict))

	chain := typedrest.NewErrorChain(
		probeHandler("endpoint", &calls, nil),
		probeHandler("group", &calls, handled),
		probeHandler("container", &calls, nil),
		nil,
		quietLogger(),
	)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	resp := chain.Resolve(context.Background(), r, errors.New("boom"))

	assert.Equal(t, http.StatusConflict, resp.Status)
	assert.Equal(t, []string{"endpoint", "group"}, calls)
}

func TestErrorChain_LayerCanTransformError(t *testing.T) {
	transform := typedrest.ErrorHandlerFunc(
		func(ctx context.Context, r *http.Request, err error) (*typedrest.Response, error) {
			return nil, errors.New("transformed: " + err.Error())
		})

	var seen error
	chain := typedrest.NewErrorChain(
		transform, nil, nil,
		func(ctx context.Context, r *http.Request, err error) *typedrest.Response {
			seen = err
			return typedrest.NewResponse(nil, typedrest.WithResponseStatus(500))
		},
		quietLogger(),
	)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	chain.Resolve(context.Background(), r, errors.New("boom"))

	require.Error(t, seen)
	assert.Equal(t, "transformed: boom", seen.Error())
}

func TestErrorChain_APIErrorBypassesLayers(t *testing.T) {
	var calls []string
	chain := typedrest.NewErrorChain(
		probeHandler("endpoint", &calls, nil),
		probeHandler("group", &calls, nil),
		nil, nil,
		quietLogger(),
	)

	apiErr := typedrest.NewAPIError(http.StatusTeapot, map[string]string{"flavor": "earl grey"})
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	resp := chain.Resolve(context.Background(), r, apiErr)

	assert.Equal(t, http.StatusTeapot, resp.Status)
	assert.Empty(t, calls)
}

func TestErrorChain_GlobalPanicFallsBack(t *testing.T) {
	chain := typedrest.NewErrorChain(
		nil, nil, nil,
		func(ctx context.Context, r *http.Request, err error) *typedrest.Response {
			panic("global handler bug")
		},
		quietLogger(),
	)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	resp := chain.Resolve(context.Background(), r, errors.New("boom"))

	require.NotNil(t, resp)
	assert.Equal(t, http.StatusInternalServerError, resp.Status)
}

func TestDefaultGlobalErrorHandler_Taxonomy(t *testing.T) {
	handler := typedrest.DefaultGlobalErrorHandler(http.StatusInternalServerError, quietLogger())
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	ctx := context.Background()

	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{
			name:       "request serialization",
			err:        typedrest.NewRequestSerializationError("bad", nil),
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "response schema",
			err:        typedrest.NewResponseSchemaError("mismatch"),
			wantStatus: http.StatusInternalServerError,
		},
		{
			name:       "not acceptable",
			err:        &typedrest.NotAcceptableError{Accept: "text/html"},
			wantStatus: http.StatusNotAcceptable,
		},
		{
			name:       "not authenticated",
			err:        &typedrest.NotAuthenticatedError{},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "method not allowed",
			err:        &typedrest.MethodNotAllowedError{Method: "TRACE"},
			wantStatus: http.StatusMethodNotAllowed,
		},
		{
			name:       "unknown",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := handler(ctx, r, tt.err)
			require.NotNil(t, resp)
			assert.Equal(t, tt.wantStatus, resp.Status)
		})
	}
}

func TestDefaultGlobalErrorHandler_ConfigurableMismatchStatus(t *testing.T) {
	handler := typedrest.DefaultGlobalErrorHandler(http.StatusUnprocessableEntity, quietLogger())
	r := httptest.NewRequest(http.MethodGet, "/", nil)

	resp := handler(context.Background(), r, typedrest.NewResponseSchemaError("mismatch"))
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Status)
}
