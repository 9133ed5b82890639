// Package stdjson implements the backend interface on top of encoding/json
// and go-playground/validator.
package stdjson

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/pavelpascari/typedrest/pkg/backend"
)

var (
	globalValidator     *validator.Validate
	globalValidatorOnce sync.Once
)

func getValidator() *validator.Validate {
	globalValidatorOnce.Do(func() {
		globalValidator = validator.New()
	})
	return globalValidator
}

// Backend is a serializer backend based on the standard library JSON codec.
type Backend struct {
	validate *validator.Validate
}

// New creates a stdjson backend sharing the package-wide validator instance.
func New() *Backend {
	return &Backend{validate: getValidator()}
}

// NewWithValidator creates a stdjson backend with a custom validator,
// useful when applications register custom validation tags.
func NewWithValidator(v *validator.Validate) *Backend {
	return &Backend{validate: v}
}

func (b *Backend) Name() string { return "stdjson" }

func (b *Backend) Decode(data []byte, into interface{}) error {
	if err := json.Unmarshal(data, into); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}

func (b *Backend) DecodeStrict(data []byte, into interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(into); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}

func (b *Backend) Encode(value interface{}) ([]byte, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("failed to encode JSON: %w", err)
	}
	return data, nil
}

// BuildValidator compiles a validator for the model. Struct models run
// through validator tags; slices and arrays of structs validate each
// element; everything else only gets a shape check at decode time.
func (b *Backend) BuildValidator(model reflect.Type) (backend.Validator, error) {
	return buildValidator(b.validate, model)
}

func buildValidator(v *validator.Validate, model reflect.Type) (backend.Validator, error) {
	if model == nil {
		return backend.ValidatorFunc(func(interface{}) error { return nil }), nil
	}

	base := model
	for base.Kind() == reflect.Ptr {
		base = base.Elem()
	}

	switch base.Kind() {
	case reflect.Struct:
		return backend.ValidatorFunc(func(value interface{}) error {
			if value == nil {
				return nil
			}
			return v.Struct(value)
		}), nil
	case reflect.Slice, reflect.Array:
		elem := base.Elem()
		for elem.Kind() == reflect.Ptr {
			elem = elem.Elem()
		}
		if elem.Kind() != reflect.Struct {
			return backend.ValidatorFunc(func(interface{}) error { return nil }), nil
		}
		return backend.ValidatorFunc(func(value interface{}) error {
			if value == nil {
				return nil
			}
			rv := reflect.ValueOf(value)
			for rv.Kind() == reflect.Ptr {
				rv = rv.Elem()
			}
			for i := 0; i < rv.Len(); i++ {
				if err := v.Struct(rv.Index(i).Interface()); err != nil {
					return fmt.Errorf("element %d: %w", i, err)
				}
			}
			return nil
		}), nil
	default:
		return backend.ValidatorFunc(func(interface{}) error { return nil }), nil
	}
}
