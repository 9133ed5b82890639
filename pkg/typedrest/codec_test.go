package typedrest_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavelpascari/typedrest/pkg/backend/stdjson"
	"github.com/pavelpascari/typedrest/pkg/typedrest"
)

func TestParseMediaRange(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantType string
		wantSub  string
		wantQ    float64
		wantErr  bool
	}{
		{name: "exact", input: "application/json", wantType: "application", wantSub: "json", wantQ: 1.0},
		{name: "subtype wildcard", input: "application/*", wantType: "application", wantSub: "*", wantQ: 1.0},
		{name: "full wildcard", input: "*/*", wantType: "*", wantSub: "*", wantQ: 1.0},
		{name: "quality", input: "application/yaml;q=0.8", wantType: "application", wantSub: "yaml", wantQ: 0.8},
		{name: "ignores other params", input: "application/json; charset=utf-8", wantType: "application", wantSub: "json", wantQ: 1.0},
		{name: "out of range quality ignored", input: "application/json;q=7", wantType: "application", wantSub: "json", wantQ: 1.0},
		{name: "garbage", input: "not a type", wantErr: true},
		{name: "missing subtype", input: "application", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mr, err := typedrest.ParseMediaRange(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantType, mr.Type)
			assert.Equal(t, tt.wantSub, mr.Subtype)
			assert.InDelta(t, tt.wantQ, mr.Quality, 0.001)
		})
	}
}

func TestMediaRange_Specificity(t *testing.T) {
	assert.Equal(t, 2, typedrest.MustParseMediaRange("application/json").Specificity())
	assert.Equal(t, 1, typedrest.MustParseMediaRange("application/*").Specificity())
	assert.Equal(t, 0, typedrest.MustParseMediaRange("*/*").Specificity())
}

func TestMediaRange_Matches(t *testing.T) {
	assert.True(t, typedrest.MustParseMediaRange("application/json").Matches("application/json"))
	assert.True(t, typedrest.MustParseMediaRange("application/*").Matches("application/yaml"))
	assert.True(t, typedrest.MustParseMediaRange("*/*").Matches("text/html"))
	assert.False(t, typedrest.MustParseMediaRange("application/json").Matches("application/yaml"))
	assert.False(t, typedrest.MustParseMediaRange("text/*").Matches("application/json"))
}

func TestJSONCodec_StrictRejectsUnknownFields(t *testing.T) {
	codec := typedrest.NewJSONCodec(stdjson.New())

	type payload struct {
		Name string `json:"name"`
	}

	var loose payload
	require.NoError(t, codec.Parse([]byte(`{"name":"a","extra":1}`), &loose))

	var strict payload
	err := codec.ParseStrict([]byte(`{"name":"a","extra":1}`), &strict)
	assert.Error(t, err)
}

func TestYAMLCodec_RoundTrip(t *testing.T) {
	codec := typedrest.NewYAMLCodec()

	type payload struct {
		Name  string `yaml:"name"`
		Count int    `yaml:"count"`
	}

	data, err := codec.Render(payload{Name: "widget", Count: 3})
	require.NoError(t, err)

	var decoded payload
	require.NoError(t, codec.Parse(data, &decoded))
	assert.Equal(t, payload{Name: "widget", Count: 3}, decoded)
}

func TestYAMLCodec_StrictRejectsUnknownFields(t *testing.T) {
	codec := typedrest.NewYAMLCodec()

	type payload struct {
		Name string `yaml:"name"`
	}

	var strict payload
	err := codec.ParseStrict([]byte("name: a\nextra: 1\n"), &strict)
	assert.Error(t, err)
}
