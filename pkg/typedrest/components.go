package typedrest

import (
	"errors"
	"fmt"
	"mime/multipart"
	"reflect"
	"strconv"
	"time"
)

// ComponentKind names a declared source of request data contributing fields
// to the combined per-endpoint validation model.
type ComponentKind int

const (
	// ComponentHeader reads from the request header map.
	ComponentHeader ComponentKind = iota
	// ComponentQuery reads from the raw query string.
	ComponentQuery
	// ComponentPath reads from already-resolved URL path parameters.
	ComponentPath
	// ComponentCookie reads from the request cookies.
	ComponentCookie
	// ComponentBody reads from the parser-decoded request body.
	ComponentBody
	// ComponentForm reads from parsed form values.
	ComponentForm
	// ComponentFile carries raw multipart file metadata without decoding.
	ComponentFile
)

func (k ComponentKind) String() string {
	switch k {
	case ComponentHeader:
		return "header"
	case ComponentQuery:
		return "query"
	case ComponentPath:
		return "path"
	case ComponentCookie:
		return "cookie"
	case ComponentBody:
		return "body"
	case ComponentForm:
		return "form"
	case ComponentFile:
		return "file"
	default:
		return fmt.Sprintf("component(%d)", int(k))
	}
}

// ComponentDeclaration describes one field of the combined model: where the
// raw value comes from and under which alias. Derived from struct tags at
// registration time.
type ComponentDeclaration struct {
	Kind         ComponentKind
	Name         string
	FieldName    string
	FieldType    reflect.Type
	DefaultValue string
	Required     bool

	index []int
}

// Error variables for static error handling.
var (
	ErrInvalidIntegerValue  = errors.New("invalid integer value")
	ErrInvalidUintegerValue = errors.New("invalid unsigned integer value")
	ErrInvalidFloatValue    = errors.New("invalid float value")
	ErrInvalidBooleanValue  = errors.New("invalid boolean value")
	ErrInvalidTimeValue     = errors.New("invalid time value")
	ErrUnsupportedFieldType = errors.New("unsupported field type")
)

var (
	timeType       = reflect.TypeOf(time.Time{})
	fileHeaderType = reflect.TypeOf((*multipart.FileHeader)(nil))
)

// setFieldValue sets a reflect.Value from a raw string according to the
// field's kind.
func setFieldValue(fieldValue reflect.Value, value string) error {
	if fieldValue.Type() == timeType {
		parsed, err := time.Parse(time.RFC3339, value)
		if err != nil {
			return fmt.Errorf("%w: %s", ErrInvalidTimeValue, value)
		}
		fieldValue.Set(reflect.ValueOf(parsed))
		return nil
	}

	switch fieldValue.Kind() {
	case reflect.String:
		fieldValue.SetString(value)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		intValue, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: %s", ErrInvalidIntegerValue, value)
		}
		fieldValue.SetInt(intValue)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		uintValue, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: %s", ErrInvalidUintegerValue, value)
		}
		fieldValue.SetUint(uintValue)
	case reflect.Float32, reflect.Float64:
		floatValue, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("%w: %s", ErrInvalidFloatValue, value)
		}
		fieldValue.SetFloat(floatValue)
	case reflect.Bool:
		boolValue, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%w: %s", ErrInvalidBooleanValue, value)
		}
		fieldValue.SetBool(boolValue)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFieldType, fieldValue.Kind())
	}

	return nil
}

// setSliceField sets a []T field from multiple raw string values.
func setSliceField(fieldValue reflect.Value, values []string) error {
	slice := reflect.MakeSlice(fieldValue.Type(), len(values), len(values))
	for i, v := range values {
		if err := setFieldValue(slice.Index(i), v); err != nil {
			return err
		}
	}
	fieldValue.Set(slice)
	return nil
}
