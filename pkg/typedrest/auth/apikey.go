package auth

import (
	"crypto/subtle"
	"net/http"

	"github.com/pavelpascari/typedrest/pkg/typedrest"
)

// APIKeyAuthenticator authenticates requests carrying a static API key in a
// header. A request without the header is passed to the next candidate in
// the chain; a present but unknown key fails the request immediately.
type APIKeyAuthenticator struct {
	header string
	keys   map[string]interface{}
}

// NewAPIKey creates an authenticator over a key-to-principal mapping.
func NewAPIKey(header string, keys map[string]interface{}) *APIKeyAuthenticator {
	return &APIKeyAuthenticator{header: header, keys: keys}
}

// Authenticate implements typedrest.Authenticator.
func (a *APIKeyAuthenticator) Authenticate(r *http.Request) (interface{}, error) {
	key := r.Header.Get(a.header)
	if key == "" {
		return nil, nil
	}
	for candidate, principal := range a.keys {
		if subtle.ConstantTimeCompare([]byte(candidate), []byte(key)) == 1 {
			return principal, nil
		}
	}
	return nil, &typedrest.NotAuthenticatedError{Detail: "unknown api key"}
}

// SecurityScheme implements typedrest.SecuritySchemeProvider.
func (a *APIKeyAuthenticator) SecurityScheme() typedrest.SecurityScheme {
	return typedrest.SecurityScheme{
		Name:      "apiKeyAuth",
		Type:      "apiKey",
		In:        "header",
		ParamName: a.header,
	}
}
