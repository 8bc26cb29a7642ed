package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const testSchema = `{
	"type": "object",
	"required": ["root-dir"],
	"properties": {
		"root-dir": {"type": "string"},
		"segment-size": {"type": "integer", "minimum": 1}
	}
}`

func TestValidateAcceptsConformingDocument(t *testing.T) {
	err := Validate(testSchema, []byte(`{"root-dir": "/var/lib/clairvoyant", "segment-size": 1000}`))
	require.NoError(t, err)
}

func TestValidateRejectsMissingRequired(t *testing.T) {
	err := Validate(testSchema, []byte(`{"segment-size": 1000}`))
	require.Error(t, err)
}

func TestValidateRejectsWrongType(t *testing.T) {
	err := Validate(testSchema, []byte(`{"root-dir": 5}`))
	require.Error(t, err)
}

func TestValidateRejectsMalformedJSON(t *testing.T) {
	err := Validate(testSchema, []byte(`{not json`))
	require.Error(t, err)
}

func TestValidateRejectsMalformedSchema(t *testing.T) {
	err := Validate(`{not a schema`, []byte(`{}`))
	require.Error(t, err)
}
