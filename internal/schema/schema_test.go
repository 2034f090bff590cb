package schema

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_Valid(t *testing.T) {
	docs := []string{
		`{"status":null,"state":{},"events":{},"errors":{}}`,
		`{"status":"active","state":{"count":1},"events":{"e1":{}},"errors":{"e1":{}}}`,
		`{"status":"active","state":{},` +
			`"events":{"e2":{"transition":"Ship","args":["x"],"changes":{},` +
			`"created_at":"2018-01-01T13:22:00Z","updated_at":"2018-01-01T13:22:01Z","attempts_count":1}},` +
			`"errors":{"e2":{"error":"Timeout","error_message":"upstream timed out","created_at":"2018-01-01T13:22:01Z"}}}`,
		`{"status":"a","state":{},"events":{"e1":{"custom":true}},"errors":{"e1":{"trace":[1,2]}}}`,
	}
	for _, doc := range docs {
		assert.NoError(t, Validate([]byte(doc)), doc)
	}
}

func TestValidate_Violations(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		mention string
	}{
		{"missing keys", `{"status":"x"}`, "state"},
		{"unexpected key", `{"status":null,"state":{},"events":{},"errors":{},"dp_status":"x"}`, "dp_status"},
		{"status type", `{"status":5,"state":{},"events":{},"errors":{}}`, "status"},
		{"state type", `{"status":null,"state":[],"events":{},"errors":{}}`, "state"},
		{"event record type", `{"status":null,"state":{},"events":{"e1":"x"},"errors":{"e1":{}}}`, "e1"},
		{"negative attempts", `{"status":null,"state":{},"events":{"e1":{"attempts_count":-1}},"errors":{"e1":{}}}`, "attempts_count"},
		{"error kind type", `{"status":null,"state":{},"events":{"e1":{}},"errors":{"e1":{"error":42}}}`, "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate([]byte(tt.doc))
			require.Error(t, err)

			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.NotEmpty(t, ve.Issues)
			assert.Contains(t, ve.Error(), tt.mention)
		})
	}
}

func TestValidate_NotJSON(t *testing.T) {
	err := Validate([]byte(`{"status":`))
	require.Error(t, err)

	var ve *ValidationError
	assert.False(t, errors.As(err, &ve))
	assert.Contains(t, err.Error(), "parse document")
}

func TestValidationError_Message(t *testing.T) {
	err := &ValidationError{Issues: []Issue{
		{Path: "events.e1", Message: "conflicting values"},
		{Message: "incomplete value"},
	}}
	assert.Equal(t,
		"document does not match schema: events.e1: conflicting values; incomplete value",
		err.Error())
}
