package typedrest

import (
	"errors"
	"fmt"
	"mime"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/pavelpascari/typedrest/pkg/backend"
)

// ErrInvalidMediaRange is returned when a media range string cannot be parsed.
var ErrInvalidMediaRange = errors.New("invalid media range")

// MediaRange is a content-type pattern with optional wildcard segments, plus
// a quality weight used for ranking. Immutable once declared.
type MediaRange struct {
	Type    string
	Subtype string
	Quality float64
}

// ParseMediaRange parses a media range like "application/json",
// "application/*;q=0.8" or "*/*". Parameters other than q are ignored.
func ParseMediaRange(s string) (MediaRange, error) {
	mediaType, params, err := mime.ParseMediaType(strings.TrimSpace(s))
	if err != nil {
		return MediaRange{}, fmt.Errorf("%w: %q", ErrInvalidMediaRange, s)
	}

	parts := strings.SplitN(mediaType, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return MediaRange{}, fmt.Errorf("%w: %q", ErrInvalidMediaRange, s)
	}

	quality := 1.0
	if q, ok := params["q"]; ok {
		parsed, err := strconv.ParseFloat(q, 64)
		if err == nil && parsed >= 0 && parsed <= 1 {
			quality = parsed
		}
	}

	return MediaRange{Type: parts[0], Subtype: parts[1], Quality: quality}, nil
}

// MustParseMediaRange is ParseMediaRange for static declarations; it panics
// on invalid input, which is a registration-time programmer error.
func MustParseMediaRange(s string) MediaRange {
	m, err := ParseMediaRange(s)
	if err != nil {
		panic(err)
	}
	return m
}

// IsWildcard reports whether the range contains any wildcard segment.
func (m MediaRange) IsWildcard() bool {
	return m.Type == "*" || m.Subtype == "*"
}

// Specificity ranks ranges: exact types beat type wildcards beat full
// wildcards. Used as the primary key when breaking ambiguous matches.
func (m MediaRange) Specificity() int {
	switch {
	case m.Type != "*" && m.Subtype != "*":
		return 2
	case m.Type != "*":
		return 1
	default:
		return 0
	}
}

// Matches reports whether a concrete content type (no wildcards, no
// parameters) falls within this range.
func (m MediaRange) Matches(contentType string) bool {
	parts := strings.SplitN(contentType, "/", 2)
	if len(parts) != 2 {
		return false
	}
	if m.Type != "*" && !strings.EqualFold(m.Type, parts[0]) {
		return false
	}
	if m.Subtype != "*" && !strings.EqualFold(m.Subtype, parts[1]) {
		return false
	}
	return true
}

func (m MediaRange) String() string {
	return m.Type + "/" + m.Subtype
}

// Parser decodes raw request bytes into language-native values. Identity is
// the declared media range.
type Parser interface {
	MediaRange() MediaRange
	Parse(data []byte, into interface{}) error
}

// StrictParser is implemented by parsers that can reject unknown fields and
// shape mismatches. Response validation prefers it when available.
type StrictParser interface {
	ParseStrict(data []byte, into interface{}) error
}

// Renderer encodes a response value into bytes for one concrete content
// type. Like Parser, identity is the declared media range; ContentType is
// the concrete type written to the wire.
type Renderer interface {
	MediaRange() MediaRange
	ContentType() string
	Render(value interface{}) ([]byte, error)
}

// JSONCodec is both a Parser and a Renderer for application/json, delegating
// the byte transforms to a serializer backend.
type JSONCodec struct {
	backend backend.Backend
}

// NewJSONCodec creates a JSON codec over the given backend.
func NewJSONCodec(be backend.Backend) *JSONCodec {
	return &JSONCodec{backend: be}
}

func (c *JSONCodec) MediaRange() MediaRange {
	return MediaRange{Type: "application", Subtype: "json", Quality: 1.0}
}

func (c *JSONCodec) ContentType() string { return "application/json" }

func (c *JSONCodec) Parse(data []byte, into interface{}) error {
	return c.backend.Decode(data, into)
}

func (c *JSONCodec) ParseStrict(data []byte, into interface{}) error {
	return c.backend.DecodeStrict(data, into)
}

func (c *JSONCodec) Render(value interface{}) ([]byte, error) {
	return c.backend.Encode(value)
}

// YAMLCodec is both a Parser and a Renderer for application/yaml.
type YAMLCodec struct{}

// NewYAMLCodec creates a YAML codec.
func NewYAMLCodec() *YAMLCodec {
	return &YAMLCodec{}
}

func (c *YAMLCodec) MediaRange() MediaRange {
	return MediaRange{Type: "application", Subtype: "yaml", Quality: 1.0}
}

func (c *YAMLCodec) ContentType() string { return "application/yaml" }

func (c *YAMLCodec) Parse(data []byte, into interface{}) error {
	if err := yaml.Unmarshal(data, into); err != nil {
		return fmt.Errorf("invalid YAML: %w", err)
	}
	return nil
}

func (c *YAMLCodec) ParseStrict(data []byte, into interface{}) error {
	dec := yaml.NewDecoder(strings.NewReader(string(data)))
	dec.KnownFields(true)
	if err := dec.Decode(into); err != nil {
		return fmt.Errorf("invalid YAML: %w", err)
	}
	return nil
}

func (c *YAMLCodec) Render(value interface{}) ([]byte, error) {
	data, err := yaml.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("failed to encode YAML: %w", err)
	}
	return data, nil
}

// FormParser accepts application/x-www-form-urlencoded and multipart
// request bodies. The actual field extraction happens in the compiled
// component model, which reads the parsed form directly off the request;
// declaring this parser only makes those content types negotiable.
type FormParser struct {
	multipart bool
}

// NewFormParser creates a parser for application/x-www-form-urlencoded.
func NewFormParser() *FormParser {
	return &FormParser{}
}

// NewMultipartParser creates a parser for multipart/form-data. Required for
// endpoints with file components: raw byte streams pass through without
// full decoding.
func NewMultipartParser() *FormParser {
	return &FormParser{multipart: true}
}

func (p *FormParser) MediaRange() MediaRange {
	if p.multipart {
		return MediaRange{Type: "multipart", Subtype: "form-data", Quality: 1.0}
	}
	return MediaRange{Type: "application", Subtype: "x-www-form-urlencoded", Quality: 1.0}
}

// Parse is a no-op: form bodies are consumed through http.Request form
// parsing in the component model, not through the byte pipeline.
func (p *FormParser) Parse(data []byte, into interface{}) error {
	return nil
}

// isFormParser reports whether the parser handles its body via request form
// parsing instead of the byte pipeline.
func isFormParser(p Parser) bool {
	_, ok := p.(*FormParser)
	return ok
}
