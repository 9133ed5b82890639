package typedrest

import (
	"context"
	"net/http"
	"reflect"
	"strings"
)

// Handler is the transport-agnostic business logic interface.
type Handler[TRequest, TResponse any] interface {
	Handle(ctx context.Context, req TRequest) (TResponse, error)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc[TRequest, TResponse any] func(ctx context.Context, req TRequest) (TResponse, error)

func (f HandlerFunc[TRequest, TResponse]) Handle(ctx context.Context, req TRequest) (TResponse, error) {
	return f(ctx, req)
}

// OpenAPIMetadata carries the documentation attributes of one endpoint.
type OpenAPIMetadata struct {
	Summary     string
	Description string
	Tags        []string
	Deprecated  bool
}

// EndpointMetadata aggregates everything declared about one endpoint:
// components, schema bindings, codecs, auth requirements and compliance
// flags. Created once at registration; immutable thereafter; outlives all
// requests.
type EndpointMetadata struct {
	ID     string
	Method string
	Path   string
	Mode   HandlerMode
	Status int

	Parsers   []Parser
	Renderers []Renderer
	Bindings  *BindingSet
	Model     *CompiledModel

	RequestType  reflect.Type
	ResponseType reflect.Type

	Auth []Authenticator
	Docs OpenAPIMetadata

	validateResponses *bool

	reqNeg        *RequestNegotiator
	respNeg       *ResponseNegotiator
	respValidator *ResponseValidator
	chain         *ErrorChain
}

// ValidateResponsesEnabled resolves the per-endpoint flag against the
// process-wide default.
func (e *EndpointMetadata) ValidateResponsesEnabled(s *Settings) bool {
	if e.validateResponses != nil {
		return *e.validateResponses
	}
	return s.ValidateResponses
}

type conditionalBinding struct {
	slot        Slot
	contentType string
	model       reflect.Type
}

type endpointConfig struct {
	status            int
	parsers           []Parser
	renderers         []Renderer
	bindings          []conditionalBinding
	validateResponses *bool
	auth              []Authenticator
	authDisabled      bool
	errorHandler      ErrorHandler
	docs              OpenAPIMetadata
}

// EndpointOption configures an endpoint at registration time.
type EndpointOption func(*endpointConfig)

// WithStatus pins the success status code instead of inferring it from the
// HTTP method.
func WithStatus(status int) EndpointOption {
	return func(cfg *endpointConfig) {
		cfg.status = status
	}
}

// WithParsers declares the endpoint's parser set, overriding group and
// global defaults. Order is the default priority.
func WithParsers(parsers ...Parser) EndpointOption {
	return func(cfg *endpointConfig) {
		cfg.parsers = parsers
	}
}

// WithRenderers declares the endpoint's renderer set, overriding group and
// global defaults. Order is the default priority.
func WithRenderers(renderers ...Renderer) EndpointOption {
	return func(cfg *endpointConfig) {
		cfg.renderers = renderers
	}
}

// WithRequestBinding binds a request body model to one content type,
// making the request schema conditional.
func WithRequestBinding(contentType string, model interface{}) EndpointOption {
	return func(cfg *endpointConfig) {
		cfg.bindings = append(cfg.bindings, conditionalBinding{
			slot:        RequestBodySlot(),
			contentType: contentType,
			model:       reflect.TypeOf(model),
		})
	}
}

// WithResponseBinding binds a response model to (status, content type).
// Use ContentTypeDefault for an unconditional binding.
func WithResponseBinding(status int, contentType string, model interface{}) EndpointOption {
	return func(cfg *endpointConfig) {
		cfg.bindings = append(cfg.bindings, conditionalBinding{
			slot:        ResponseSlot(status),
			contentType: contentType,
			model:       reflect.TypeOf(model),
		})
	}
}

// WithErrorBinding binds the error payload model for one content type.
func WithErrorBinding(contentType string, model interface{}) EndpointOption {
	return func(cfg *endpointConfig) {
		cfg.bindings = append(cfg.bindings, conditionalBinding{
			slot:        ErrorSlot(),
			contentType: contentType,
			model:       reflect.TypeOf(model),
		})
	}
}

// WithValidateResponses overrides the process-wide response validation
// flag for this endpoint.
func WithValidateResponses(enabled bool) EndpointOption {
	return func(cfg *endpointConfig) {
		cfg.validateResponses = &enabled
	}
}

// WithAuth declares the endpoint's auth hook chain, replacing any
// inherited one.
func WithAuth(auth ...Authenticator) EndpointOption {
	return func(cfg *endpointConfig) {
		cfg.auth = auth
	}
}

// WithoutAuth explicitly disables auth inherited from the group or router.
func WithoutAuth() EndpointOption {
	return func(cfg *endpointConfig) {
		cfg.authDisabled = true
		cfg.auth = nil
	}
}

// WithErrorHandler attaches the endpoint-level error handler, the first
// layer of the error protocol.
func WithErrorHandler(h ErrorHandler) EndpointOption {
	return func(cfg *endpointConfig) {
		cfg.errorHandler = h
	}
}

// WithSummary sets the OpenAPI summary.
func WithSummary(summary string) EndpointOption {
	return func(cfg *endpointConfig) {
		cfg.docs.Summary = summary
	}
}

// WithDescription sets the OpenAPI description.
func WithDescription(description string) EndpointOption {
	return func(cfg *endpointConfig) {
		cfg.docs.Description = description
	}
}

// WithTags sets the OpenAPI tags.
func WithTags(tags ...string) EndpointOption {
	return func(cfg *endpointConfig) {
		cfg.docs.Tags = tags
	}
}

// bodylessMethods lists methods for which a body component is rejected by
// the compliance check.
var bodylessMethods = map[string]bool{
	http.MethodGet:     true,
	http.MethodHead:    true,
	http.MethodDelete:  true,
	http.MethodOptions: true,
	http.MethodTrace:   true,
}

var streamingResponseType = reflect.TypeOf(StreamingResponse{})

// validateDeclaration runs every declaration-time check. Errors here are
// fatal: the process should not start serving with an inconsistent
// endpoint.
func (e *EndpointMetadata) validateDeclaration(s *Settings, groupHandler, containerHandler ErrorHandler) error {
	if e.Method == "" || e.Path == "" || !strings.HasPrefix(e.Path, "/") {
		return newMetadataError("endpoint %s %q: method and a /-prefixed path are required", e.Method, e.Path)
	}

	if s.checkEnabled(CheckBodylessMethods) && e.Model.NeedsBody() && bodylessMethods[e.Method] {
		return newMetadataError(
			"endpoint %s %s declares a body component, but %s requests have no body",
			e.Method, e.Path, e.Method)
	}

	if s.checkEnabled(CheckRendererDeclared) && len(e.Renderers) == 0 {
		return newMetadataError("endpoint %s %s declares no renderers", e.Method, e.Path)
	}

	for _, h := range []ErrorHandler{e.chain.endpoint, groupHandler, containerHandler} {
		if h == nil {
			continue
		}
		if !handlerSupportsMode(h, e.Mode) {
			return newMetadataError(
				"endpoint %s %s runs in %s mode, but an attached error handler does not support it",
				e.Method, e.Path, e.Mode)
		}
	}

	return nil
}
