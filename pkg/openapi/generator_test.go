package openapi_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavelpascari/typedrest/pkg/openapi"
	"github.com/pavelpascari/typedrest/pkg/typedrest"
	"github.com/pavelpascari/typedrest/pkg/typedrest/auth"
)

type getWidgetRequest struct {
	ID     string `path:"id" validate:"required"`
	Expand bool   `query:"expand" default:"false"`
	Trace  string `header:"X-Trace-ID"`
}

type widgetResponse struct {
	ID   string `json:"id"`
	Name string `json:"name" validate:"min=1,max=64"`
}

type getWidgetHandler struct{}

func (h *getWidgetHandler) Handle(ctx context.Context, req getWidgetRequest) (widgetResponse, error) {
	return widgetResponse{ID: req.ID, Name: "gear"}, nil
}

type createWidgetRequest struct {
	Name string `json:"name" validate:"required"`
}

type createWidgetHandler struct{}

func (h *createWidgetHandler) Handle(ctx context.Context, req createWidgetRequest) (widgetResponse, error) {
	return widgetResponse{ID: "w-new", Name: req.Name}, nil
}

func newGenerator() *openapi.Generator {
	return openapi.NewGenerator(&openapi.Config{
		Info: openapi.Info{Title: "Widgets API", Version: "1.0.0"},
		Servers: []openapi.Server{
			{URL: "https://api.example.com"},
		},
	})
}

func TestGenerate_ParametersFromComponents(t *testing.T) {
	router := typedrest.NewRouter(typedrest.WithRouterSettings(typedrest.DefaultSettings()))
	typedrest.GET(router, "/widgets/{id}", &getWidgetHandler{})

	spec, err := newGenerator().Generate(router)
	require.NoError(t, err)

	pathItem := spec.Paths.Find("/widgets/{id}")
	require.NotNil(t, pathItem)
	require.NotNil(t, pathItem.Get)

	params := pathItem.Get.Parameters
	require.Len(t, params, 3)

	byName := map[string]string{}
	for _, p := range params {
		byName[p.Value.Name] = p.Value.In
	}
	assert.Equal(t, "path", byName["id"])
	assert.Equal(t, "query", byName["expand"])
	assert.Equal(t, "header", byName["X-Trace-ID"])
}

func TestGenerate_RequestBodyPerParserContentType(t *testing.T) {
	settings := typedrest.DefaultSettings()
	settings.Parsers = []typedrest.Parser{
		typedrest.NewJSONCodec(settings.Backend),
		typedrest.NewYAMLCodec(),
	}
	router := typedrest.NewRouter(typedrest.WithRouterSettings(settings))
	typedrest.POST(router, "/widgets", &createWidgetHandler{})

	spec, err := newGenerator().Generate(router)
	require.NoError(t, err)

	op := spec.Paths.Find("/widgets").Post
	require.NotNil(t, op)
	require.NotNil(t, op.RequestBody)

	content := op.RequestBody.Value.Content
	assert.Contains(t, content, "application/json")
	assert.Contains(t, content, "application/yaml")
}

func TestGenerate_ResponsesPerStatus(t *testing.T) {
	router := typedrest.NewRouter(typedrest.WithRouterSettings(typedrest.DefaultSettings()))
	typedrest.POST(router, "/widgets", &createWidgetHandler{})

	spec, err := newGenerator().Generate(router)
	require.NoError(t, err)

	op := spec.Paths.Find("/widgets").Post
	require.NotNil(t, op)

	assert.NotNil(t, op.Responses.Value("201"))
	// Implied client error responses.
	assert.NotNil(t, op.Responses.Value("400"))
	assert.NotNil(t, op.Responses.Value("406"))
	assert.Nil(t, op.Responses.Value("401"))
}

func TestGenerate_SecuritySchemesFromAuthenticators(t *testing.T) {
	router := typedrest.NewRouter(typedrest.WithRouterSettings(typedrest.DefaultSettings()))
	typedrest.GET(router, "/widgets/{id}", &getWidgetHandler{},
		typedrest.WithAuth(auth.NewJWT([]byte("secret"))))

	spec, err := newGenerator().Generate(router)
	require.NoError(t, err)

	require.Contains(t, spec.Components.SecuritySchemes, "bearerAuth")
	scheme := spec.Components.SecuritySchemes["bearerAuth"].Value
	assert.Equal(t, "http", scheme.Type)
	assert.Equal(t, "bearer", scheme.Scheme)

	op := spec.Paths.Find("/widgets/{id}").Get
	require.NotNil(t, op.Security)
	assert.NotNil(t, op.Responses.Value("401"))
}

func TestGenerate_DocsMetadata(t *testing.T) {
	router := typedrest.NewRouter(typedrest.WithRouterSettings(typedrest.DefaultSettings()))
	typedrest.GET(router, "/widgets/{id}", &getWidgetHandler{},
		typedrest.WithSummary("Fetch one widget"),
		typedrest.WithDescription("Fetches a widget by its identifier."),
		typedrest.WithTags("widgets"))

	spec, err := newGenerator().Generate(router)
	require.NoError(t, err)

	op := spec.Paths.Find("/widgets/{id}").Get
	assert.Equal(t, "Fetch one widget", op.Summary)
	assert.Equal(t, []string{"widgets"}, op.Tags)
}

func TestGenerate_SerializesBothFormats(t *testing.T) {
	router := typedrest.NewRouter(typedrest.WithRouterSettings(typedrest.DefaultSettings()))
	typedrest.GET(router, "/widgets/{id}", &getWidgetHandler{})

	gen := newGenerator()
	spec, err := gen.Generate(router)
	require.NoError(t, err)

	jsonData, err := gen.GenerateJSON(spec)
	require.NoError(t, err)
	assert.Contains(t, string(jsonData), "Widgets API")

	yamlData, err := gen.GenerateYAML(spec)
	require.NoError(t, err)
	assert.NotEmpty(t, yamlData)
}

func TestGenerate_MethodNotAllowedIsNotAnOperation(t *testing.T) {
	router := typedrest.NewRouter(typedrest.WithRouterSettings(typedrest.DefaultSettings()))
	typedrest.GET(router, "/widgets/{id}", &getWidgetHandler{})

	spec, err := newGenerator().Generate(router)
	require.NoError(t, err)

	pathItem := spec.Paths.Find("/widgets/{id}")
	assert.Nil(t, pathItem.Delete)
	assert.Nil(t, pathItem.Post)
}
