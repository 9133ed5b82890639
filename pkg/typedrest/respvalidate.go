package typedrest

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/pavelpascari/typedrest/pkg/backend"
)

// ResponseValidator re-loads rendered response bytes against the model
// bound to the (status, negotiated content type) pair. It is the most
// expensive per-request step and the sanctioned place to trade correctness
// for throughput: callers skip it entirely when response validation is
// disabled.
type ResponseValidator struct {
	endpointID string
	bindings   *BindingSet
	parsers    []Parser
	backend    backend.Backend
	cache      *ArtifactCache
}

// NewResponseValidator builds a validator for one endpoint. parsers is the
// endpoint's declared parser set, reused to load our own response bytes
// back; the first parser is the fallback when none matches the response
// content type.
func NewResponseValidator(
	endpointID string,
	bindings *BindingSet,
	parsers []Parser,
	be backend.Backend,
	cache *ArtifactCache,
) *ResponseValidator {
	return &ResponseValidator{
		endpointID: endpointID,
		bindings:   bindings,
		parsers:    parsers,
		backend:    be,
		cache:      cache,
	}
}

// Validate checks rendered body bytes against the schema bound to
// (status, contentType). Mismatches surface as ResponseSchemaError: the
// handler returned the wrong shape, which is a contract violation inside
// the server, not a client error.
func (v *ResponseValidator) Validate(status int, contentType string, body []byte) error {
	model, ok := v.bindings.Resolve(ResponseSlot(status), contentType)
	if !ok {
		model, ok = v.bindings.Resolve(ErrorSlot(), contentType)
	}
	if !ok {
		return NewResponseSchemaError(
			fmt.Sprintf("no response schema bound for status %d and content type %q", status, contentType))
	}

	artifact, err := v.artifactFor(model)
	if err != nil {
		return NewResponseSchemaError(err.Error())
	}

	fresh := reflect.New(model)
	if err := v.loadStrict(contentType, body, fresh.Interface()); err != nil {
		return NewResponseSchemaError(
			fmt.Sprintf("response body does not match schema %s: %v", model, err))
	}
	if err := artifact.Validator.Validate(fresh.Elem().Interface()); err != nil {
		return NewResponseSchemaError(
			fmt.Sprintf("response body does not match schema %s: %v", model, err))
	}
	return nil
}

func (v *ResponseValidator) artifactFor(model reflect.Type) (*Artifact, error) {
	key := ArtifactKey{Endpoint: v.endpointID, Schema: model.String()}
	return v.cache.GetOrBuild(key, func() (*Artifact, error) {
		validator, err := v.backend.BuildValidator(model)
		if err != nil {
			return nil, err
		}
		return &Artifact{Validator: validator}, nil
	})
}

// loadStrict re-parses our own response body with the parser matching its
// content type, falling back to the first declared parser for responses
// carrying an unexpected Content-Type.
func (v *ResponseValidator) loadStrict(contentType string, body []byte, into interface{}) error {
	parser := v.parserFor(contentType)
	if parser == nil {
		return fmt.Errorf("no parser available for content type %q", contentType)
	}
	if strict, ok := parser.(StrictParser); ok {
		return strict.ParseStrict(body, into)
	}
	return parser.Parse(body, into)
}

func (v *ResponseValidator) parserFor(contentType string) Parser {
	contentType = strings.ToLower(contentType)
	for _, p := range v.parsers {
		if strings.EqualFold(p.MediaRange().String(), contentType) {
			return p
		}
	}
	if len(v.parsers) > 0 {
		return v.parsers[0]
	}
	return nil
}
