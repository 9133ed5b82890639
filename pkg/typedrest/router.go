package typedrest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// RequestIDHeader is set on every response for log correlation.
const RequestIDHeader = "X-Request-ID"

// Router is the HTTP container. It owns the endpoint registry, the
// compiled-artifact cache and the container-level error handler, and routes
// through chi underneath.
type Router struct {
	mux       *chi.Mux
	settings  *Settings
	cache     *ArtifactCache
	container ErrorHandler
	root      *Group

	mu        sync.RWMutex
	endpoints []*EndpointMetadata
}

// RouterOption configures a Router at construction time.
type RouterOption func(*Router)

// WithContainerErrorHandler attaches the container-level error handler, the
// third layer of the error protocol.
func WithContainerErrorHandler(h ErrorHandler) RouterOption {
	return func(r *Router) {
		r.container = h
	}
}

// WithRouterSettings pins the router to an explicit settings instance
// instead of the process-wide one.
func WithRouterSettings(s *Settings) RouterOption {
	return func(r *Router) {
		r.settings = s
	}
}

// NewRouter creates a router. Settings default to the process-wide ones.
func NewRouter(opts ...RouterOption) *Router {
	r := &Router{mux: chi.NewRouter()}
	for _, opt := range opts {
		opt(r)
	}
	if r.settings == nil {
		r.settings = Current()
	}
	r.cache = NewArtifactCache(r.settings.CacheCapacity)
	r.root = &Group{router: r}
	r.mux.MethodNotAllowed(r.methodNotAllowed)
	r.mux.NotFound(r.notFound)
	return r
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// Endpoints returns every registered endpoint's metadata, for OpenAPI
// generation and introspection.
func (r *Router) Endpoints() []*EndpointMetadata {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*EndpointMetadata, len(r.endpoints))
	copy(out, r.endpoints)
	return out
}

// Settings returns the settings this router was built with.
func (r *Router) Settings() *Settings {
	return r.settings
}

// InvalidateArtifacts drops every compiled artifact, forcing recompilation
// on next use. The entry point for dynamic-settings scenarios.
func (r *Router) InvalidateArtifacts() {
	r.cache.Purge()
}

// Group is a registration scope: endpoints registered through it inherit
// its error handler, auth chain and codec defaults unless they declare
// their own.
type Group struct {
	router       *Router
	prefix       string
	errorHandler ErrorHandler
	auth         []Authenticator
	parsers      []Parser
	renderers    []Renderer
}

// GroupOption configures a Group.
type GroupOption func(*Group)

// WithGroupErrorHandler attaches the grouping-level error handler, the
// second layer of the error protocol.
func WithGroupErrorHandler(h ErrorHandler) GroupOption {
	return func(g *Group) {
		g.errorHandler = h
	}
}

// WithGroupAuth declares the auth chain inherited by the group's endpoints.
func WithGroupAuth(auth ...Authenticator) GroupOption {
	return func(g *Group) {
		g.auth = auth
	}
}

// WithGroupParsers declares the parser set inherited by the group's
// endpoints.
func WithGroupParsers(parsers ...Parser) GroupOption {
	return func(g *Group) {
		g.parsers = parsers
	}
}

// WithGroupRenderers declares the renderer set inherited by the group's
// endpoints.
func WithGroupRenderers(renderers ...Renderer) GroupOption {
	return func(g *Group) {
		g.renderers = renderers
	}
}

// Group creates a registration scope under a path prefix.
func (r *Router) Group(prefix string, opts ...GroupOption) *Group {
	return r.root.Group(prefix, opts...)
}

// Group creates a nested scope. The child inherits the parent's error
// handler, auth and codecs unless the options override them.
func (g *Group) Group(prefix string, opts ...GroupOption) *Group {
	child := &Group{
		router:       g.router,
		prefix:       joinPath(g.prefix, prefix),
		errorHandler: g.errorHandler,
		auth:         g.auth,
		parsers:      g.parsers,
		renderers:    g.renderers,
	}
	for _, opt := range opts {
		opt(child)
	}
	return child
}

func joinPath(prefix, path string) string {
	joined := strings.TrimSuffix(prefix, "/") + "/" + strings.TrimPrefix(path, "/")
	if joined != "/" {
		joined = strings.TrimSuffix(joined, "/")
	}
	return joined
}

// chiPathParams adapts chi's URL parameter lookup to the component model.
func chiPathParams(r *http.Request, name string) string {
	return chi.URLParam(r, name)
}

var responseType = reflect.TypeOf(Response{})

// Register declares one endpoint on a group. Everything knowable at
// declaration time is checked here; an error means the endpoint is
// internally inconsistent and was not registered.
func Register[TRequest, TResponse any](
	g *Group, method, path string, handler Handler[TRequest, TResponse], opts ...EndpointOption,
) (*EndpointMetadata, error) {
	cfg := endpointConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	rt := g.router
	settings := rt.settings

	parsers := cfg.parsers
	if len(parsers) == 0 {
		parsers = g.parsers
	}
	if len(parsers) == 0 {
		parsers = settings.Parsers
	}
	renderers := cfg.renderers
	if len(renderers) == 0 {
		renderers = g.renderers
	}
	if len(renderers) == 0 {
		renderers = settings.Renderers
	}

	reqType := reflect.TypeOf((*TRequest)(nil)).Elem()
	respType := reflect.TypeOf((*TResponse)(nil)).Elem()

	mode := ModeUnary
	if respType == streamingResponseType || respType == reflect.PtrTo(streamingResponseType) {
		mode = ModeStreaming
	}

	fullPath := joinPath(g.prefix, path)
	id := method + " " + fullPath

	artifact, err := rt.cache.GetOrBuild(
		ArtifactKey{Endpoint: id, Schema: reqType.String()},
		func() (*Artifact, error) {
			model, err := CompileModel(reqType, settings.Backend)
			if err != nil {
				return nil, err
			}
			return &Artifact{Model: model}, nil
		})
	if err != nil {
		return nil, err
	}
	model := artifact.Model

	status := cfg.status
	if status == 0 {
		status = InferStatusCode(method)
	}

	bindings, err := buildBindings(&cfg, model, reqType, respType, status, mode)
	if err != nil {
		return nil, err
	}

	var reqNeg *RequestNegotiator
	if model.NeedsBody() {
		reqNeg, err = NewRequestNegotiator(parsers)
		if err != nil {
			return nil, err
		}
	}
	respNeg, err := NewResponseNegotiator(renderers)
	if err != nil {
		return nil, err
	}

	auth := cfg.auth
	if auth == nil && !cfg.authDisabled {
		auth = g.auth
	}

	chain := NewErrorChain(
		cfg.errorHandler, g.errorHandler, rt.container,
		settings.GlobalErrorHandler, settings.Logger)

	ep := &EndpointMetadata{
		ID:                id,
		Method:            method,
		Path:              fullPath,
		Mode:              mode,
		Status:            status,
		Parsers:           parsers,
		Renderers:         renderers,
		Bindings:          bindings,
		Model:             model,
		RequestType:       reqType,
		ResponseType:      respType,
		Auth:              auth,
		Docs:              cfg.docs,
		validateResponses: cfg.validateResponses,
		reqNeg:            reqNeg,
		respNeg:           respNeg,
		respValidator:     NewResponseValidator(id, bindings, parsers, settings.Backend, rt.cache),
		chain:             chain,
	}

	if err := ep.validateDeclaration(settings, g.errorHandler, rt.container); err != nil {
		return nil, err
	}

	invoke := func(ctx context.Context, req interface{}) (interface{}, error) {
		return handler.Handle(ctx, req.(TRequest))
	}
	rt.mux.MethodFunc(method, fullPath, rt.serve(ep, invoke))

	rt.mu.Lock()
	rt.endpoints = append(rt.endpoints, ep)
	rt.mu.Unlock()
	return ep, nil
}

// MustRegister is Register panicking on declaration errors, for static
// wiring at startup.
func MustRegister[TRequest, TResponse any](
	g *Group, method, path string, handler Handler[TRequest, TResponse], opts ...EndpointOption,
) *EndpointMetadata {
	ep, err := Register(g, method, path, handler, opts...)
	if err != nil {
		panic(err)
	}
	return ep
}

// GET registers a GET endpoint on the router's root scope.
func GET[TRequest, TResponse any](
	r *Router, path string, handler Handler[TRequest, TResponse], opts ...EndpointOption,
) *EndpointMetadata {
	return MustRegister(r.root, http.MethodGet, path, handler, opts...)
}

// POST registers a POST endpoint on the router's root scope.
func POST[TRequest, TResponse any](
	r *Router, path string, handler Handler[TRequest, TResponse], opts ...EndpointOption,
) *EndpointMetadata {
	return MustRegister(r.root, http.MethodPost, path, handler, opts...)
}

// PUT registers a PUT endpoint on the router's root scope.
func PUT[TRequest, TResponse any](
	r *Router, path string, handler Handler[TRequest, TResponse], opts ...EndpointOption,
) *EndpointMetadata {
	return MustRegister(r.root, http.MethodPut, path, handler, opts...)
}

// PATCH registers a PATCH endpoint on the router's root scope.
func PATCH[TRequest, TResponse any](
	r *Router, path string, handler Handler[TRequest, TResponse], opts ...EndpointOption,
) *EndpointMetadata {
	return MustRegister(r.root, http.MethodPatch, path, handler, opts...)
}

// DELETE registers a DELETE endpoint on the router's root scope.
func DELETE[TRequest, TResponse any](
	r *Router, path string, handler Handler[TRequest, TResponse], opts ...EndpointOption,
) *EndpointMetadata {
	return MustRegister(r.root, http.MethodDelete, path, handler, opts...)
}

// buildBindings assembles the endpoint's binding set: declared conditional
// bindings first, then the implicit unconditional defaults for any slot
// left unbound.
func buildBindings(
	cfg *endpointConfig, model *CompiledModel,
	reqType, respType reflect.Type, status int, mode HandlerMode,
) (*BindingSet, error) {
	bindings := NewBindingSet()
	boundSlots := make(map[Slot]bool, len(cfg.bindings))
	for _, cb := range cfg.bindings {
		if err := bindings.Bind(cb.slot, cb.contentType, cb.model); err != nil {
			return nil, err
		}
		boundSlots[cb.slot] = true
	}

	if model.NeedsBody() && !boundSlots[RequestBodySlot()] {
		if err := bindings.Bind(RequestBodySlot(), ContentTypeDefault, reqType); err != nil {
			return nil, err
		}
	}
	if mode == ModeUnary && !boundSlots[ResponseSlot(status)] && isBindable(respType) {
		if err := bindings.Bind(ResponseSlot(status), ContentTypeDefault, respType); err != nil {
			return nil, err
		}
	}
	if !boundSlots[ErrorSlot()] {
		if err := bindings.Bind(ErrorSlot(), ContentTypeDefault, reflect.TypeOf(ErrorBody{})); err != nil {
			return nil, err
		}
	}
	return bindings, nil
}

// isBindable reports whether a response type carries a usable static
// schema. Dynamic shapes (Response envelopes, bare interfaces) do not.
func isBindable(t reflect.Type) bool {
	if t == responseType || t == reflect.PtrTo(responseType) {
		return false
	}
	return t.Kind() != reflect.Interface
}

// serve builds the per-request pipeline for one endpoint:
//
//  1. response negotiation, fixing the renderer for success and error paths;
//  2. auth chain, fail closed;
//  3. request negotiation, only when the endpoint declares a body;
//  4. single-pass request validation into the combined model;
//  5. handler invocation;
//  6. render, then response schema validation over the rendered bytes.
func (rt *Router) serve(
	ep *EndpointMetadata, invoke func(context.Context, interface{}) (interface{}, error),
) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set(RequestIDHeader, uuid.NewString())

		renderer, err := ep.respNeg.Negotiate(req.Header.Get("Accept"))
		if err != nil {
			// 406 is rendered with the default renderer since negotiation
			// produced none.
			rt.writeError(w, req, ep, ep.respNeg.Default(), err)
			return
		}

		defer func() {
			if rec := recover(); rec != nil {
				rt.settings.Logger.WithField("panic", rec).Error("handler panicked")
				rt.writeError(w, req, ep, renderer, fmt.Errorf("handler panicked: %v", rec))
			}
		}()

		ctx, err := authenticate(req, ep.Auth)
		if err != nil {
			rt.writeError(w, req, ep, renderer, err)
			return
		}
		req = req.WithContext(ctx)

		var parser Parser
		if ep.Model.NeedsBody() {
			parser, err = ep.reqNeg.Negotiate(req.Header.Get("Content-Type"))
			if err != nil {
				rt.writeError(w, req, ep, renderer, err)
				return
			}
		}

		reqValue, err := ep.Model.ValidateRequest(req, chiPathParams, parser)
		if err != nil {
			rt.writeError(w, req, ep, renderer, err)
			return
		}

		result, err := invoke(req.Context(), reqValue)
		if err != nil {
			rt.writeError(w, req, ep, renderer, err)
			return
		}

		if ep.Mode == ModeStreaming {
			rt.writeStream(w, result)
			return
		}

		resp := asResponse(result)
		if resp.Status == 0 {
			resp.Status = ep.Status
		}

		data, err := renderer.Render(resp.Body)
		if err != nil {
			rt.writeError(w, req, ep, renderer,
				NewResponseSchemaError(fmt.Sprintf("cannot render response body: %v", err)))
			return
		}
		if ep.ValidateResponsesEnabled(rt.settings) {
			if err := ep.respValidator.Validate(resp.Status, renderer.ContentType(), data); err != nil {
				rt.writeError(w, req, ep, renderer, err)
				return
			}
		}

		rt.writeRendered(w, resp, renderer.ContentType(), data)
	}
}

// asResponse normalizes a handler return value into the response envelope.
func asResponse(result interface{}) *Response {
	switch v := result.(type) {
	case *Response:
		if v == nil {
			return NewResponse(nil)
		}
		if v.Headers == nil {
			v.Headers = make(http.Header)
		}
		return v
	case Response:
		if v.Headers == nil {
			v.Headers = make(http.Header)
		}
		return &v
	default:
		return NewResponse(result)
	}
}

// writeError resolves an error through the endpoint's chain and writes the
// resulting response. Error bodies produced by the chain are not re-checked
// against response schemas: the chain's terminal guarantee already covers
// their shape, and re-validating would risk an error loop.
func (rt *Router) writeError(w http.ResponseWriter, req *http.Request, ep *EndpointMetadata, renderer Renderer, err error) {
	resp := ep.chain.Resolve(req.Context(), req, err)
	if resp.Status == 0 {
		resp.Status = http.StatusInternalServerError
	}

	if resp.rendered != nil {
		rt.writeRendered(w, resp, resp.contentType, resp.rendered)
		return
	}

	data, renderErr := renderer.Render(resp.Body)
	if renderErr != nil {
		rt.settings.Logger.WithError(renderErr).Error("cannot render error response")
		fb := fallbackResponse()
		rt.writeRendered(w, fb, fb.contentType, fb.rendered)
		return
	}
	rt.writeRendered(w, resp, renderer.ContentType(), data)
}

func (rt *Router) writeRendered(w http.ResponseWriter, resp *Response, contentType string, data []byte) {
	for name, values := range resp.Headers {
		for _, v := range values {
			w.Header().Add(name, v)
		}
	}
	for _, c := range resp.Cookies {
		http.SetCookie(w, c)
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(resp.Status)
	w.Write(data) //nolint:errcheck
}

// writeStream copies a streaming response body to the client, bypassing
// rendering and response validation.
func (rt *Router) writeStream(w http.ResponseWriter, result interface{}) {
	var sr StreamingResponse
	switch v := result.(type) {
	case StreamingResponse:
		sr = v
	case *StreamingResponse:
		if v != nil {
			sr = *v
		}
	}

	contentType := sr.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	if sr.Filename != "" {
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", sr.Filename))
	}

	status := sr.StatusCode
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)

	if sr.Stream != nil {
		io.Copy(w, sr.Stream) //nolint:errcheck
		if closer, ok := sr.Stream.(io.Closer); ok {
			closer.Close() //nolint:errcheck
		}
	}
}

// methodNotAllowed produces a structured 405 with the allowed method list.
// There is no endpoint metadata to consult here, so it renders with the
// global defaults.
func (rt *Router) methodNotAllowed(w http.ResponseWriter, req *http.Request) {
	var allowed []string
	for _, m := range []string{
		http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut,
		http.MethodPatch, http.MethodDelete, http.MethodOptions,
	} {
		if m == req.Method {
			continue
		}
		rctx := chi.NewRouteContext()
		if rt.mux.Match(rctx, m, req.URL.Path) {
			allowed = append(allowed, m)
		}
	}

	w.Header().Set("Allow", strings.Join(allowed, ", "))
	err := &MethodNotAllowedError{Method: req.Method, Allowed: allowed}
	resp := rt.settings.GlobalErrorHandler(req.Context(), req, err)
	if resp == nil {
		resp = fallbackResponse()
	}
	if resp.Status == 0 {
		resp.Status = http.StatusMethodNotAllowed
	}
	rt.writeDefault(w, resp)
}

// notFound produces a structured 404 in the default wire shape.
func (rt *Router) notFound(w http.ResponseWriter, req *http.Request) {
	resp := NewResponse(
		ErrorBody{Detail: "not found"},
		WithResponseStatus(http.StatusNotFound))
	rt.writeDefault(w, resp)
}

// writeDefault renders a response with the first global renderer, for
// router-level responses that have no endpoint context.
func (rt *Router) writeDefault(w http.ResponseWriter, resp *Response) {
	if resp.rendered != nil {
		rt.writeRendered(w, resp, resp.contentType, resp.rendered)
		return
	}
	renderer := rt.settings.Renderers[0]
	data, err := renderer.Render(resp.Body)
	if err != nil {
		fb := fallbackResponse()
		rt.writeRendered(w, fb, fb.contentType, fb.rendered)
		return
	}
	rt.writeRendered(w, resp, renderer.ContentType(), data)
}
