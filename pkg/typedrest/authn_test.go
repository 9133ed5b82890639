package typedrest_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavelpascari/typedrest/pkg/typedrest"
)

func TestPrincipalFrom_EmptyContext(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	_, ok := typedrest.PrincipalFrom(r.Context())
	assert.False(t, ok)
}

func TestAuthenticatorFunc_Adapts(t *testing.T) {
	called := false
	auth := typedrest.AuthenticatorFunc(func(r *http.Request) (interface{}, error) {
		called = true
		return "bob", nil
	})

	principal, err := auth.Authenticate(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.True(t, called)
	assert.Equal(t, "bob", principal)
}

func TestAuthChain_FailClosedThroughRouter(t *testing.T) {
	router := newTestRouter()
	explicitFailure := typedrest.AuthenticatorFunc(func(r *http.Request) (interface{}, error) {
		return nil, errors.New("revoked credentials")
	})
	skipped := typedrest.AuthenticatorFunc(func(r *http.Request) (interface{}, error) {
		t.Fatal("later candidates must not run after an explicit failure")
		return nil, nil
	})

	typedrest.GET(router, "/widgets/{id}", &getWidgetHandler{},
		typedrest.WithAuth(explicitFailure, skipped))

	rec := do(router, httptest.NewRequest(http.MethodGet, "/widgets/w1", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
