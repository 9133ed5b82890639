package openapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"gopkg.in/yaml.v3"

	"github.com/pavelpascari/typedrest/pkg/typedrest"
)

// Config holds OpenAPI generation configuration.
type Config struct {
	Info    Info     `json:"info"`
	Servers []Server `json:"servers,omitempty"`
}

// Info represents the OpenAPI info object.
type Info struct {
	Title       string `json:"title"`
	Version     string `json:"version"`
	Description string `json:"description,omitempty"`
}

// Server represents an OpenAPI server object.
type Server struct {
	URL         string `json:"url"`
	Description string `json:"description,omitempty"`
}

// Generator generates OpenAPI specifications from routers. Everything it
// needs is in the registered endpoint metadata: components become
// parameters, schema bindings become request bodies and responses, and
// declared auth hooks become security schemes.
type Generator struct {
	config Config
}

// NewGenerator creates a new OpenAPI generator.
func NewGenerator(config *Config) *Generator {
	return &Generator{config: *config}
}

// Generate creates an OpenAPI specification from a router.
func (g *Generator) Generate(router *typedrest.Router) (*openapi3.T, error) {
	spec := &openapi3.T{
		OpenAPI: "3.0.3",
		Info: &openapi3.Info{
			Title:       g.config.Info.Title,
			Version:     g.config.Info.Version,
			Description: g.config.Info.Description,
		},
		Paths: &openapi3.Paths{},
		Components: &openapi3.Components{
			SecuritySchemes: make(openapi3.SecuritySchemes),
		},
	}

	if len(g.config.Servers) > 0 {
		spec.Servers = make([]*openapi3.Server, len(g.config.Servers))
		for i, server := range g.config.Servers {
			spec.Servers[i] = &openapi3.Server{
				URL:         server.URL,
				Description: server.Description,
			}
		}
	}

	for _, ep := range router.Endpoints() {
		if err := g.processEndpoint(spec, ep); err != nil {
			return nil, fmt.Errorf("failed to process endpoint %s %s: %w", ep.Method, ep.Path, err)
		}
	}

	return spec, nil
}

func (g *Generator) processEndpoint(spec *openapi3.T, ep *typedrest.EndpointMetadata) error {
	path := chiToOpenAPIPath(ep.Path)
	pathItem := spec.Paths.Find(path)
	if pathItem == nil {
		pathItem = &openapi3.PathItem{}
		spec.Paths.Set(path, pathItem)
	}

	operation := &openapi3.Operation{
		Summary:     ep.Docs.Summary,
		Description: ep.Docs.Description,
		Tags:        ep.Docs.Tags,
		Deprecated:  ep.Docs.Deprecated,
		Responses:   &openapi3.Responses{},
	}

	parameters, err := g.extractParameters(ep)
	if err != nil {
		return err
	}
	operation.Parameters = parameters

	if ep.Model.NeedsBody() {
		requestBody, err := g.createRequestBody(ep)
		if err != nil {
			return err
		}
		operation.RequestBody = requestBody
	}

	if err := g.addResponses(operation, ep); err != nil {
		return err
	}
	g.addSecurity(spec, operation, ep)

	switch ep.Method {
	case http.MethodGet:
		pathItem.Get = operation
	case http.MethodPost:
		pathItem.Post = operation
	case http.MethodPut:
		pathItem.Put = operation
	case http.MethodPatch:
		pathItem.Patch = operation
	case http.MethodDelete:
		pathItem.Delete = operation
	case http.MethodHead:
		pathItem.Head = operation
	case http.MethodOptions:
		pathItem.Options = operation
	}

	return nil
}

// chiToOpenAPIPath keeps the {param} syntax shared by chi and OpenAPI.
func chiToOpenAPIPath(path string) string {
	return path
}

// extractParameters maps the endpoint's non-body components onto OpenAPI
// parameters.
func (g *Generator) extractParameters(ep *typedrest.EndpointMetadata) (openapi3.Parameters, error) {
	var parameters openapi3.Parameters

	for _, decl := range ep.Model.Components() {
		var in string
		switch decl.Kind {
		case typedrest.ComponentPath:
			in = "path"
		case typedrest.ComponentQuery:
			in = "query"
		case typedrest.ComponentHeader:
			in = "header"
		case typedrest.ComponentCookie:
			in = "cookie"
		default:
			continue
		}

		schema, err := g.createSchemaFromType(decl.FieldType)
		if err != nil {
			return nil, err
		}
		if decl.DefaultValue != "" {
			schema.Value.Default = parseDefaultValue(decl.DefaultValue, decl.FieldType)
		}

		required := decl.Required
		if in == "path" {
			required = true
		}

		parameters = append(parameters, &openapi3.ParameterRef{
			Value: &openapi3.Parameter{
				Name:     decl.Name,
				In:       in,
				Required: required,
				Schema:   schema,
			},
		})
	}

	return parameters, nil
}

// createRequestBody maps the request body bindings onto content entries,
// one per negotiable parser content type.
func (g *Generator) createRequestBody(ep *typedrest.EndpointMetadata) (*openapi3.RequestBodyRef, error) {
	content := make(map[string]*openapi3.MediaType)
	bindings := ep.Bindings.BindingsFor(typedrest.RequestBodySlot())

	for ct, model := range bindings {
		schema, err := g.createSchemaFromType(model)
		if err != nil {
			return nil, err
		}
		if ct == typedrest.ContentTypeDefault {
			for _, p := range ep.Parsers {
				content[p.MediaRange().String()] = &openapi3.MediaType{Schema: schema}
			}
			continue
		}
		content[ct] = &openapi3.MediaType{Schema: schema}
	}

	return &openapi3.RequestBodyRef{
		Value: &openapi3.RequestBody{
			Required: true,
			Content:  content,
		},
	}, nil
}

// addResponses emits one response per bound status, plus the implied error
// responses every endpoint can produce.
func (g *Generator) addResponses(operation *openapi3.Operation, ep *typedrest.EndpointMetadata) error {
	errorSchema, err := g.errorSchema(ep)
	if err != nil {
		return err
	}

	for _, slot := range ep.Bindings.Slots() {
		if slot.Kind != typedrest.SlotResponse {
			continue
		}
		content := make(map[string]*openapi3.MediaType)
		for ct, model := range ep.Bindings.BindingsFor(slot) {
			schema, err := g.createSchemaFromType(model)
			if err != nil {
				return err
			}
			if ct == typedrest.ContentTypeDefault {
				for _, r := range ep.Renderers {
					content[r.ContentType()] = &openapi3.MediaType{Schema: schema}
				}
				continue
			}
			content[ct] = &openapi3.MediaType{Schema: schema}
		}
		description := http.StatusText(slot.Status)
		operation.Responses.Set(strconv.Itoa(slot.Status), &openapi3.ResponseRef{
			Value: &openapi3.Response{
				Description: &description,
				Content:     content,
			},
		})
	}

	if ep.Mode == typedrest.ModeStreaming {
		description := "Stream"
		operation.Responses.Set(strconv.Itoa(ep.Status), &openapi3.ResponseRef{
			Value: &openapi3.Response{
				Description: &description,
				Content: map[string]*openapi3.MediaType{
					"application/octet-stream": {
						Schema: &openapi3.SchemaRef{
							Value: &openapi3.Schema{
								Type:   &openapi3.Types{"string"},
								Format: "binary",
							},
						},
					},
				},
			},
		})
	}

	if len(ep.Model.Components()) > 0 || ep.Model.NeedsBody() {
		g.setErrorResponse(operation, http.StatusBadRequest, errorSchema, ep)
	}
	g.setErrorResponse(operation, http.StatusNotAcceptable, errorSchema, ep)
	if len(ep.Auth) > 0 {
		g.setErrorResponse(operation, http.StatusUnauthorized, errorSchema, ep)
	}

	return nil
}

func (g *Generator) errorSchema(ep *typedrest.EndpointMetadata) (*openapi3.SchemaRef, error) {
	if model, ok := ep.Bindings.Resolve(typedrest.ErrorSlot(), typedrest.ContentTypeDefault); ok {
		return g.createSchemaFromType(model)
	}
	return g.createSchemaFromType(reflect.TypeOf(typedrest.ErrorBody{}))
}

func (g *Generator) setErrorResponse(
	operation *openapi3.Operation, status int, schema *openapi3.SchemaRef, ep *typedrest.EndpointMetadata,
) {
	content := make(map[string]*openapi3.MediaType)
	for _, r := range ep.Renderers {
		content[r.ContentType()] = &openapi3.MediaType{Schema: schema}
	}
	description := http.StatusText(status)
	operation.Responses.Set(strconv.Itoa(status), &openapi3.ResponseRef{
		Value: &openapi3.Response{
			Description: &description,
			Content:     content,
		},
	})
}

// addSecurity registers security schemes for authenticators that describe
// themselves and references them from the operation.
func (g *Generator) addSecurity(spec *openapi3.T, operation *openapi3.Operation, ep *typedrest.EndpointMetadata) {
	for _, auth := range ep.Auth {
		provider, ok := auth.(typedrest.SecuritySchemeProvider)
		if !ok {
			continue
		}
		scheme := provider.SecurityScheme()
		spec.Components.SecuritySchemes[scheme.Name] = &openapi3.SecuritySchemeRef{
			Value: &openapi3.SecurityScheme{
				Type:         scheme.Type,
				Scheme:       scheme.Scheme,
				BearerFormat: scheme.BearerFormat,
				In:           scheme.In,
				Name:         scheme.ParamName,
			},
		}
		requirement := openapi3.SecurityRequirement{scheme.Name: {}}
		if operation.Security == nil {
			operation.Security = openapi3.NewSecurityRequirements()
		}
		operation.Security.With(requirement)
	}
}

// createSchemaFromType creates an OpenAPI schema from a Go type.
func (g *Generator) createSchemaFromType(t reflect.Type) (*openapi3.SchemaRef, error) {
	schema := &openapi3.Schema{}

	switch t.Kind() {
	case reflect.String:
		schema.Type = &openapi3.Types{"string"}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		schema.Type = &openapi3.Types{"integer"}
	case reflect.Float32, reflect.Float64:
		schema.Type = &openapi3.Types{"number"}
	case reflect.Bool:
		schema.Type = &openapi3.Types{"boolean"}
	case reflect.Struct:
		schema.Type = &openapi3.Types{"object"}
		schema.Properties = make(map[string]*openapi3.SchemaRef)

		for i := 0; i < t.NumField(); i++ {
			field := t.Field(i)
			if !field.IsExported() {
				continue
			}

			jsonName := field.Tag.Get("json")
			if jsonName == "" || jsonName == "-" {
				continue
			}
			parts := strings.Split(jsonName, ",")
			fieldName := parts[0]
			omitempty := len(parts) > 1 && parts[1] == "omitempty"

			fieldSchema, err := g.createSchemaFromType(field.Type)
			if err != nil {
				return nil, err
			}
			g.applyValidationToSchema(fieldSchema, field.Tag.Get("validate"))

			schema.Properties[fieldName] = fieldSchema
			if !omitempty {
				schema.Required = append(schema.Required, fieldName)
			}
		}
	case reflect.Slice, reflect.Array:
		schema.Type = &openapi3.Types{"array"}
		itemSchema, err := g.createSchemaFromType(t.Elem())
		if err != nil {
			return nil, err
		}
		schema.Items = itemSchema
	case reflect.Map:
		schema.Type = &openapi3.Types{"object"}
		trueVal := true
		schema.AdditionalProperties = openapi3.AdditionalProperties{Has: &trueVal}
	case reflect.Ptr:
		return g.createSchemaFromType(t.Elem())
	case reflect.Interface:
		schema.Type = &openapi3.Types{"object"}
	default:
		schema.Type = &openapi3.Types{"string"}
	}

	return &openapi3.SchemaRef{Value: schema}, nil
}

// applyValidationToSchema maps validation tag rules onto schema constraints.
func (g *Generator) applyValidationToSchema(schemaRef *openapi3.SchemaRef, validate string) {
	if validate == "" || schemaRef.Value == nil {
		return
	}
	for _, rule := range strings.Split(validate, ",") {
		applyValidationRule(schemaRef.Value, strings.TrimSpace(rule))
	}
}

func applyValidationRule(schema *openapi3.Schema, rule string) {
	switch {
	case strings.HasPrefix(rule, "min="):
		applyMinValidation(schema, rule)
	case strings.HasPrefix(rule, "max="):
		applyMaxValidation(schema, rule)
	case rule == "email":
		schema.Format = "email"
	case rule == "uuid":
		schema.Format = "uuid"
	}
}

func applyMinValidation(schema *openapi3.Schema, rule string) {
	minVal, err := strconv.Atoi(rule[4:])
	if err != nil || schema.Type == nil || len(*schema.Type) == 0 {
		return
	}
	switch (*schema.Type)[0] {
	case "string":
		if minVal >= 0 {
			schema.MinLength = uint64(minVal)
		}
	case "integer", "number":
		minFloat := float64(minVal)
		schema.Min = &minFloat
	}
}

func applyMaxValidation(schema *openapi3.Schema, rule string) {
	maxVal, err := strconv.Atoi(rule[4:])
	if err != nil || schema.Type == nil || len(*schema.Type) == 0 {
		return
	}
	switch (*schema.Type)[0] {
	case "string":
		if maxVal >= 0 {
			maxPtr := uint64(maxVal)
			schema.MaxLength = &maxPtr
		}
	case "integer", "number":
		maxFloat := float64(maxVal)
		schema.Max = &maxFloat
	}
}

func parseDefaultValue(defaultValue string, t reflect.Type) interface{} {
	switch t.Kind() {
	case reflect.String:
		return defaultValue
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if val, err := strconv.ParseInt(defaultValue, 10, 64); err == nil {
			return val
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if val, err := strconv.ParseUint(defaultValue, 10, 64); err == nil {
			return val
		}
	case reflect.Float32, reflect.Float64:
		if val, err := strconv.ParseFloat(defaultValue, 64); err == nil {
			return val
		}
	case reflect.Bool:
		if val, err := strconv.ParseBool(defaultValue); err == nil {
			return val
		}
	case reflect.Ptr:
		return parseDefaultValue(defaultValue, t.Elem())
	}
	return defaultValue
}

// GenerateJSON serializes a spec as indented JSON.
func (g *Generator) GenerateJSON(spec *openapi3.T) ([]byte, error) {
	data, err := json.MarshalIndent(spec, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal OpenAPI spec to JSON: %w", err)
	}
	return data, nil
}

// GenerateYAML serializes a spec as YAML.
func (g *Generator) GenerateYAML(spec *openapi3.T) ([]byte, error) {
	data, err := yaml.Marshal(spec)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal OpenAPI spec to YAML: %w", err)
	}
	return data, nil
}
