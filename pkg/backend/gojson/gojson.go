// Package gojson implements the backend interface on top of goccy/go-json.
//
// It is API-compatible with the stdjson backend and exists to prove the
// core is backend-agnostic, and for deployments where JSON throughput
// dominates request cost.
package gojson

import (
	"bytes"
	"fmt"
	"reflect"
	"sync"

	gojson "github.com/goccy/go-json"
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

// Backend is a serializer backend based on goccy/go-json.
type Backend struct {
	validate *validator.Validate
}

// New creates a gojson backend sharing the package-wide validator instance.
func New() *Backend {
	return &Backend{validate: getValidator()}
}

// NewWithValidator creates a gojson backend with a custom validator.
func NewWithValidator(v *validator.Validate) *Backend {
	return &Backend{validate: v}
}

func (b *Backend) Name() string { return "gojson" }

func (b *Backend) Decode(data []byte, into interface{}) error {
	if err := gojson.Unmarshal(data, into); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}

func (b *Backend) DecodeStrict(data []byte, into interface{}) error {
	dec := gojson.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(into); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}

func (b *Backend) Encode(value interface{}) ([]byte, error) {
	data, err := gojson.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("failed to encode JSON: %w", err)
	}
	return data, nil
}

// BuildValidator mirrors the stdjson compilation rules so compiled
// artifacts behave identically regardless of the chosen backend.
func (b *Backend) BuildValidator(model reflect.Type) (backend.Validator, error) {
	if model == nil {
		return backend.ValidatorFunc(func(interface{}) error { return nil }), nil
	}

	base := model
	for base.Kind() == reflect.Ptr {
		base = base.Elem()
	}

	switch base.Kind() {
	case reflect.Struct:
		v := b.validate
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
		v := b.validate
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
