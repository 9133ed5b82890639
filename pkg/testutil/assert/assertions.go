// Package assert provides assertion helpers for HTTP testing with detailed
// error reporting.
package assert

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"testing"

	"github.com/pavelpascari/typedrest/pkg/testutil"
)

const (
	shortTruncateLength  = 200
	mediumTruncateLength = 300
	longTruncateLength   = 500
)

var (
	errFieldNotFound = fmt.Errorf("field not found")
	errInvalidAccess = fmt.Errorf("cannot access field on non-object type")
)

// Status verifies the HTTP status code.
func Status(t *testing.T, resp *testutil.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("Status code mismatch:\n  Expected: %d (%s)\n  Actual:   %d (%s)\n  Response: %s",
			expected, http.StatusText(expected),
			resp.StatusCode, http.StatusText(resp.StatusCode),
			truncateResponse(resp.Raw, shortTruncateLength))
	}
}

// StatusOK verifies the response has 200 OK status.
func StatusOK(t *testing.T, resp *testutil.Response) {
	t.Helper()
	Status(t, resp, http.StatusOK)
}

// StatusCreated verifies the response has 201 Created status.
func StatusCreated(t *testing.T, resp *testutil.Response) {
	t.Helper()
	Status(t, resp, http.StatusCreated)
}

// StatusBadRequest verifies the response has 400 Bad Request status.
func StatusBadRequest(t *testing.T, resp *testutil.Response) {
	t.Helper()
	Status(t, resp, http.StatusBadRequest)
}

// StatusUnauthorized verifies the response has 401 Unauthorized status.
func StatusUnauthorized(t *testing.T, resp *testutil.Response) {
	t.Helper()
	Status(t, resp, http.StatusUnauthorized)
}

// StatusNotAcceptable verifies the response has 406 Not Acceptable status.
func StatusNotAcceptable(t *testing.T, resp *testutil.Response) {
	t.Helper()
	Status(t, resp, http.StatusNotAcceptable)
}

// Header verifies a response header value.
func Header(t *testing.T, resp *testutil.Response, key, expected string) {
	t.Helper()
	actual := resp.Headers.Get(key)
	if actual != expected {
		t.Errorf("Header %q mismatch:\n  Expected: %q\n  Actual:   %q", key, expected, actual)
	}
}

// HeaderExists verifies a response header exists.
func HeaderExists(t *testing.T, resp *testutil.Response, key string) {
	t.Helper()
	if resp.Headers.Get(key) == "" {
		t.Errorf("Expected header %q to exist, but it was not found", key)
	}
}

// HeaderContains verifies a response header contains a substring.
func HeaderContains(t *testing.T, resp *testutil.Response, key, substring string) {
	t.Helper()
	actual := resp.Headers.Get(key)
	if !strings.Contains(actual, substring) {
		t.Errorf("Header %q should contain %q:\n  Actual: %q", key, substring, actual)
	}
}

// ContentType verifies the Content-Type header.
func ContentType(t *testing.T, resp *testutil.Response, expected string) {
	t.Helper()
	Header(t, resp, "Content-Type", expected)
}

// JSONContentType verifies the response has JSON content type.
func JSONContentType(t *testing.T, resp *testutil.Response) {
	t.Helper()
	HeaderContains(t, resp, "Content-Type", "application/json")
}

// BodyContains verifies the response body contains a substring.
func BodyContains(t *testing.T, resp *testutil.Response, substring string) {
	t.Helper()
	if !strings.Contains(string(resp.Raw), substring) {
		t.Errorf("Response body should contain %q:\n  Body: %s",
			substring, truncateResponse(resp.Raw, longTruncateLength))
	}
}

// JSON verifies the response body matches an expected JSON structure.
func JSON(t *testing.T, resp *testutil.Response, expected interface{}) {
	t.Helper()

	JSONContentType(t, resp)

	var actual interface{}
	if err := json.Unmarshal(resp.Raw, &actual); err != nil {
		t.Fatalf("Failed to parse response as JSON: %v\nResponse: %s",
			err, truncateResponse(resp.Raw, longTruncateLength))
	}

	expectedJSON, _ := json.MarshalIndent(expected, "", "  ")
	actualJSON, _ := json.MarshalIndent(actual, "", "  ")

	if !bytes.Equal(expectedJSON, actualJSON) {
		t.Errorf("JSON response mismatch:\n  Expected:\n%s\n  Actual:\n%s",
			string(expectedJSON), string(actualJSON))
	}
}

// JSONField verifies a specific field in a JSON response using dot notation.
func JSONField(t *testing.T, resp *testutil.Response, fieldPath string, expected interface{}) {
	t.Helper()

	var data interface{}
	if err := json.Unmarshal(resp.Raw, &data); err != nil {
		t.Fatalf("Failed to parse response as JSON: %v", err)
	}

	actual, err := getJSONField(data, fieldPath)
	if err != nil {
		t.Fatalf("Failed to get field %q: %v", fieldPath, err)
	}

	if !reflect.DeepEqual(actual, expected) {
		t.Errorf("JSON field %q mismatch:\n  Expected: %v (%T)\n  Actual:   %v (%T)",
			fieldPath, expected, expected, actual, actual)
	}
}

// JSONFieldExists verifies a specific field exists in a JSON response.
func JSONFieldExists(t *testing.T, resp *testutil.Response, fieldPath string) {
	t.Helper()

	var data interface{}
	if err := json.Unmarshal(resp.Raw, &data); err != nil {
		t.Fatalf("Failed to parse response as JSON: %v", err)
	}

	if _, err := getJSONField(data, fieldPath); err != nil {
		t.Errorf("Expected JSON field %q to exist: %v", fieldPath, err)
	}
}

// FieldError verifies per-field detail in a serialization error response.
func FieldError(t *testing.T, resp *testutil.Response, field, expectedError string) {
	t.Helper()

	StatusBadRequest(t, resp)

	var errorResp map[string]interface{}
	if err := json.Unmarshal(resp.Raw, &errorResp); err != nil {
		t.Fatalf("Failed to parse error response as JSON: %v", err)
	}

	fields, ok := errorResp["fields"].(map[string]interface{})
	if !ok {
		t.Fatalf("Expected per-field error detail in response, got: %s",
			truncateResponse(resp.Raw, mediumTruncateLength))
	}

	fieldError, exists := fields[field]
	if !exists {
		t.Fatalf("Expected error for field %q, available fields: %v", field, mapKeys(fields))
	}
	if !strings.Contains(fmt.Sprintf("%v", fieldError), expectedError) {
		t.Errorf("Error for field %q should contain %q, got: %v", field, expectedError, fieldError)
	}
}

// HasFieldError verifies that per-field error detail exists for a field.
func HasFieldError(t *testing.T, resp *testutil.Response, field string) {
	t.Helper()

	StatusBadRequest(t, resp)

	var errorResp map[string]interface{}
	if err := json.Unmarshal(resp.Raw, &errorResp); err != nil {
		t.Fatalf("Failed to parse error response as JSON: %v", err)
	}

	fields, ok := errorResp["fields"].(map[string]interface{})
	if !ok {
		t.Fatalf("Expected per-field error detail in response, got: %s",
			truncateResponse(resp.Raw, mediumTruncateLength))
	}
	if _, exists := fields[field]; !exists {
		t.Errorf("Expected error for field %q, available fields: %v", field, mapKeys(fields))
	}
}

func getJSONField(data interface{}, path string) (interface{}, error) {
	current := data
	for _, part := range strings.Split(path, ".") {
		value, ok := current.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("field %q on type %T: %w", part, current, errInvalidAccess)
		}
		val, ok := value[part]
		if !ok {
			return nil, fmt.Errorf("field %q: %w", part, errFieldNotFound)
		}
		current = val
	}
	return current, nil
}

func truncateResponse(body []byte, maxLen int) string {
	if len(body) <= maxLen {
		return string(body)
	}
	return string(body[:maxLen]) + "... (truncated)"
}

func mapKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}
