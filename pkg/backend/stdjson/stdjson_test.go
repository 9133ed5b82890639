package stdjson_test

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavelpascari/typedrest/pkg/backend/stdjson"
)

type account struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"required,email"`
}

func TestBackend_DecodeAndEncode(t *testing.T) {
	be := stdjson.New()

	data, err := be.Encode(account{Name: "a", Email: "a@example.com"})
	require.NoError(t, err)

	var decoded account
	require.NoError(t, be.Decode(data, &decoded))
	assert.Equal(t, "a", decoded.Name)
}

func TestBackend_DecodeStrictRejectsUnknownFields(t *testing.T) {
	be := stdjson.New()

	var decoded account
	err := be.DecodeStrict([]byte(`{"name":"a","email":"a@example.com","extra":1}`), &decoded)
	assert.Error(t, err)

	err = be.Decode([]byte(`{"name":"a","email":"a@example.com","extra":1}`), &decoded)
	assert.NoError(t, err)
}

func TestBackend_ValidatorEnforcesRules(t *testing.T) {
	be := stdjson.New()

	v, err := be.BuildValidator(reflect.TypeOf(account{}))
	require.NoError(t, err)

	assert.NoError(t, v.Validate(account{Name: "a", Email: "a@example.com"}))
	assert.Error(t, v.Validate(account{Name: "a", Email: "nope"}))
	assert.Error(t, v.Validate(account{}))
}

func TestBackend_ValidatorForSliceOfStructs(t *testing.T) {
	be := stdjson.New()

	v, err := be.BuildValidator(reflect.TypeOf([]account{}))
	require.NoError(t, err)

	assert.NoError(t, v.Validate([]account{{Name: "a", Email: "a@example.com"}}))
	assert.Error(t, v.Validate([]account{{Name: "a", Email: "broken"}}))
}

func TestBackend_ValidatorForScalarsIsNoop(t *testing.T) {
	be := stdjson.New()

	v, err := be.BuildValidator(reflect.TypeOf(""))
	require.NoError(t, err)
	assert.NoError(t, v.Validate("anything"))
}
