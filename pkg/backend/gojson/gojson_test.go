package gojson_test

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavelpascari/typedrest/pkg/backend/gojson"
)

type account struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"required,email"`
}

func TestBackend_RoundTrip(t *testing.T) {
	be := gojson.New()

	data, err := be.Encode(account{Name: "a", Email: "a@example.com"})
	require.NoError(t, err)

	var decoded account
	require.NoError(t, be.Decode(data, &decoded))
	assert.Equal(t, "a@example.com", decoded.Email)
}

func TestBackend_DecodeStrictRejectsUnknownFields(t *testing.T) {
	be := gojson.New()

	var decoded account
	err := be.DecodeStrict([]byte(`{"name":"a","email":"a@example.com","extra":1}`), &decoded)
	assert.Error(t, err)
}

func TestBackend_ValidatorEnforcesRules(t *testing.T) {
	be := gojson.New()

	v, err := be.BuildValidator(reflect.TypeOf(account{}))
	require.NoError(t, err)

	assert.NoError(t, v.Validate(account{Name: "a", Email: "a@example.com"}))
	assert.Error(t, v.Validate(account{Name: "", Email: "a@example.com"}))
}
