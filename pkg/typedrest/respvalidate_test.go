package typedrest_test

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavelpascari/typedrest/pkg/backend/stdjson"
	"github.com/pavelpascari/typedrest/pkg/typedrest"
)

type widgetList struct {
	Items []string `json:"items"`
	Total int      `json:"total"`
}

func newResponseValidator(t *testing.T, bind func(*typedrest.BindingSet)) *typedrest.ResponseValidator {
	t.Helper()

	bindings := typedrest.NewBindingSet()
	bind(bindings)

	be := stdjson.New()
	return typedrest.NewResponseValidator(
		"GET /widgets",
		bindings,
		[]typedrest.Parser{typedrest.NewJSONCodec(be)},
		be,
		typedrest.NewArtifactCache(8),
	)
}

func TestResponseValidator_AcceptsMatchingBody(t *testing.T) {
	v := newResponseValidator(t, func(b *typedrest.BindingSet) {
		require.NoError(t, b.Bind(
			typedrest.ResponseSlot(200), typedrest.ContentTypeDefault, reflect.TypeOf(widgetList{})))
	})

	err := v.Validate(200, "application/json", []byte(`{"items":["a","b"],"total":2}`))
	assert.NoError(t, err)
}

func TestResponseValidator_RejectsWrongElementTypes(t *testing.T) {
	v := newResponseValidator(t, func(b *typedrest.BindingSet) {
		require.NoError(t, b.Bind(
			typedrest.ResponseSlot(200), typedrest.ContentTypeDefault, reflect.TypeOf(widgetList{})))
	})

	// Integers where the schema declares strings.
	err := v.Validate(200, "application/json", []byte(`{"items":[1,2],"total":2}`))

	var respErr *typedrest.ResponseSchemaError
	assert.ErrorAs(t, err, &respErr)
}

func TestResponseValidator_RejectsUnknownFields(t *testing.T) {
	v := newResponseValidator(t, func(b *typedrest.BindingSet) {
		require.NoError(t, b.Bind(
			typedrest.ResponseSlot(200), typedrest.ContentTypeDefault, reflect.TypeOf(widgetList{})))
	})

	err := v.Validate(200, "application/json", []byte(`{"items":[],"total":0,"surprise":true}`))

	var respErr *typedrest.ResponseSchemaError
	assert.ErrorAs(t, err, &respErr)
}

func TestResponseValidator_UnboundStatusFallsBackToErrorSlot(t *testing.T) {
	v := newResponseValidator(t, func(b *typedrest.BindingSet) {
		require.NoError(t, b.Bind(
			typedrest.ErrorSlot(), typedrest.ContentTypeDefault, reflect.TypeOf(typedrest.ErrorBody{})))
	})

	err := v.Validate(404, "application/json", []byte(`{"detail":"not found"}`))
	assert.NoError(t, err)
}

func TestResponseValidator_NoBindingAtAll(t *testing.T) {
	v := newResponseValidator(t, func(b *typedrest.BindingSet) {})

	err := v.Validate(200, "application/json", []byte(`{}`))

	var respErr *typedrest.ResponseSchemaError
	assert.ErrorAs(t, err, &respErr)
}

func TestResponseValidator_RunsDeclaredValidationRules(t *testing.T) {
	type constrained struct {
		Name string `json:"name" validate:"required"`
	}
	v := newResponseValidator(t, func(b *typedrest.BindingSet) {
		require.NoError(t, b.Bind(
			typedrest.ResponseSlot(200), typedrest.ContentTypeDefault, reflect.TypeOf(constrained{})))
	})

	err := v.Validate(200, "application/json", []byte(`{"name":""}`))

	var respErr *typedrest.ResponseSchemaError
	assert.ErrorAs(t, err, &respErr)
}
