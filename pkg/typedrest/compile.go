package typedrest

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/pavelpascari/typedrest/pkg/backend"
)

// MaxFormMemory is the maximum memory used when parsing multipart forms.
const MaxFormMemory = 32 << 20

// PathParams resolves already-decoded URL path parameters for a request.
// Supplied by the routing layer.
type PathParams func(r *http.Request, name string) string

// CompiledModel is the single validation model of one endpoint, combining
// the fields contributed by every declared component. Compiled once at
// registration time; read-only afterwards, shared by concurrent requests.
type CompiledModel struct {
	typ        reflect.Type
	components []ComponentDeclaration
	validator  backend.Validator

	hasBody bool
	hasForm bool
	hasFile bool
}

// CompileModel builds the combined model for a request type by projecting
// its struct tags into component declarations. The request type must be a
// struct; an empty struct compiles to a model with no components.
func CompileModel(typ reflect.Type, be backend.Backend) (*CompiledModel, error) {
	if typ == nil || typ.Kind() != reflect.Struct {
		return nil, newMetadataError("request model must be a struct, got %v", typ)
	}

	m := &CompiledModel{typ: typ}
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		if !field.IsExported() {
			continue
		}

		decl, ok, err := componentForField(field)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		decl.index = field.Index

		switch decl.Kind {
		case ComponentBody:
			m.hasBody = true
		case ComponentForm:
			m.hasForm = true
		case ComponentFile:
			m.hasFile = true
		}
		m.components = append(m.components, decl)
	}

	v, err := be.BuildValidator(typ)
	if err != nil {
		return nil, newMetadataError("cannot build validator for %s: %v", typ, err)
	}
	m.validator = v
	return m, nil
}

// componentForField maps one struct field to a component declaration based
// on its tags. A field may belong to exactly one component.
func componentForField(field reflect.StructField) (ComponentDeclaration, bool, error) {
	tags := []struct {
		name string
		kind ComponentKind
	}{
		{"path", ComponentPath},
		{"query", ComponentQuery},
		{"header", ComponentHeader},
		{"cookie", ComponentCookie},
		{"form", ComponentForm},
		{"file", ComponentFile},
		{"json", ComponentBody},
	}

	var (
		decl  ComponentDeclaration
		found bool
	)
	for _, tag := range tags {
		raw, ok := field.Tag.Lookup(tag.name)
		if !ok {
			continue
		}
		name := strings.Split(raw, ",")[0]
		if name == "-" {
			continue
		}
		if found {
			return ComponentDeclaration{}, false, newMetadataError(
				"field %s declares multiple component sources (%s and %s)",
				field.Name, decl.Kind, tag.kind)
		}
		if name == "" {
			name = strings.ToLower(field.Name)
		}
		decl = ComponentDeclaration{
			Kind:         tag.kind,
			Name:         name,
			FieldName:    field.Name,
			FieldType:    field.Type,
			DefaultValue: field.Tag.Get("default"),
			Required:     strings.Contains(field.Tag.Get("validate"), "required"),
		}
		found = true
	}

	if found && decl.Kind == ComponentFile && field.Type != fileHeaderType {
		return ComponentDeclaration{}, false, newMetadataError(
			"file field %s must be of type *multipart.FileHeader", field.Name)
	}

	return decl, found, nil
}

// Components returns the declared components, for OpenAPI generation.
func (m *CompiledModel) Components() []ComponentDeclaration {
	return m.components
}

// Type returns the combined model's struct type.
func (m *CompiledModel) Type() reflect.Type {
	return m.typ
}

// NeedsBody reports whether the endpoint has at least one component that
// requires body or file parsing. Endpoints without one skip request
// negotiation entirely.
func (m *CompiledModel) NeedsBody() bool {
	return m.hasBody || m.hasForm || m.hasFile
}

// ValidateRequest runs the single validation pass: decode the body through
// the negotiated parser, overlay every non-body component field, then run
// the compiled validator once. Any failure aggregates into one
// RequestSerializationError carrying per-field detail; there is no partial
// success.
func (m *CompiledModel) ValidateRequest(r *http.Request, params PathParams, parser Parser) (interface{}, error) {
	ptr := reflect.New(m.typ)
	target := ptr.Elem()
	fieldErrors := make(map[string]string)

	if m.hasBody && parser != nil && !isFormParser(parser) {
		if err := m.decodeBody(r, parser, ptr.Interface()); err != nil {
			return nil, err
		}
		// Body parsers match exported fields by name even without a json
		// tag. Each non-body component reads only from its own raw source,
		// so anything the body wrote into those fields is discarded.
		m.zeroNonBodyFields(target)
	}
	if (m.hasForm || m.hasFile) && parser != nil && isFormParser(parser) {
		if err := parseRequestForm(r); err != nil {
			return nil, NewRequestSerializationError(
				fmt.Sprintf("cannot parse form body: %v", err), nil)
		}
	}

	for i := range m.components {
		decl := &m.components[i]
		if decl.Kind == ComponentBody {
			continue
		}
		if err := m.applyComponent(r, params, decl, target); err != nil {
			fieldErrors[decl.Name] = err.Error()
		}
	}

	if len(fieldErrors) > 0 {
		return nil, NewRequestSerializationError("request validation failed", fieldErrors)
	}

	if err := m.validator.Validate(target.Interface()); err != nil {
		return nil, NewRequestSerializationError("request validation failed", validatorFields(err))
	}

	return target.Interface(), nil
}

func (m *CompiledModel) zeroNonBodyFields(target reflect.Value) {
	for i := range m.components {
		decl := &m.components[i]
		if decl.Kind == ComponentBody {
			continue
		}
		field := target.FieldByIndex(decl.index)
		field.Set(reflect.Zero(field.Type()))
	}
}

func (m *CompiledModel) decodeBody(r *http.Request, parser Parser, into interface{}) error {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		return NewRequestSerializationError(
			fmt.Sprintf("cannot read request body: %v", err), nil)
	}
	if len(data) == 0 {
		return nil
	}
	if err := parser.Parse(data, into); err != nil {
		return NewRequestSerializationError(
			fmt.Sprintf("cannot parse request body: %v", err), nil)
	}
	return nil
}

func (m *CompiledModel) applyComponent(
	r *http.Request, params PathParams, decl *ComponentDeclaration, target reflect.Value,
) error {
	fieldValue := target.FieldByIndex(decl.index)

	if decl.Kind == ComponentFile {
		if r.MultipartForm == nil {
			return nil
		}
		if headers := r.MultipartForm.File[decl.Name]; len(headers) > 0 {
			fieldValue.Set(reflect.ValueOf(headers[0]))
		}
		return nil
	}

	values := m.rawValues(r, params, decl)
	if len(values) == 0 {
		if decl.DefaultValue == "" {
			return nil
		}
		values = []string{decl.DefaultValue}
	}

	if fieldValue.Kind() == reflect.Slice && fieldValue.Type().Elem().Kind() != reflect.Uint8 {
		return setSliceField(fieldValue, values)
	}
	return setFieldValue(fieldValue, values[0])
}

// rawValues reads the raw string values for one component field. Aliases
// map model field names to raw key names, e.g. X-API-Token onto a token
// field.
func (m *CompiledModel) rawValues(r *http.Request, params PathParams, decl *ComponentDeclaration) []string {
	switch decl.Kind {
	case ComponentHeader:
		return r.Header.Values(decl.Name)
	case ComponentQuery:
		return r.URL.Query()[decl.Name]
	case ComponentPath:
		if params == nil {
			return nil
		}
		if v := params(r, decl.Name); v != "" {
			return []string{v}
		}
		return nil
	case ComponentCookie:
		if c, err := r.Cookie(decl.Name); err == nil {
			return []string{c.Value}
		}
		return nil
	case ComponentForm:
		if r.Form == nil {
			return nil
		}
		return r.Form[decl.Name]
	default:
		return nil
	}
}

func parseRequestForm(r *http.Request) error {
	ct := r.Header.Get("Content-Type")
	if strings.HasPrefix(ct, "multipart/") {
		return r.ParseMultipartForm(MaxFormMemory)
	}
	return r.ParseForm()
}

// validatorFields converts go-playground validation errors into the
// per-field detail map carried by RequestSerializationError.
func validatorFields(err error) map[string]string {
	fields := make(map[string]string)
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, verr := range verrs {
			fields[strings.ToLower(verr.Field())] = verr.Tag()
		}
	} else {
		fields["_"] = err.Error()
	}
	return fields
}
