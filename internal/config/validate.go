// Package config validates a raw JSON configuration document against an
// embedded JSON Schema before it is decoded into a typed Config. Unlike the
// teacher's cclog.Fatal-based validator (appropriate for a server's
// once-at-startup config load), this engine is an embeddable library: a bad
// config must come back as an error the host application can handle, never
// a process abort.
package config

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Validate compiles schema and checks instance against it, returning a
// descriptive error on either a malformed schema/instance or a validation
// failure.
func Validate(schema string, instance json.RawMessage) error {
	sch, err := jsonschema.CompileString("schema.json", schema)
	if err != nil {
		return fmt.Errorf("config: compile schema: %w", err)
	}

	var v any
	if err := json.Unmarshal(instance, &v); err != nil {
		return fmt.Errorf("config: parse instance: %w", err)
	}

	if err := sch.Validate(v); err != nil {
		return fmt.Errorf("config: validate: %w", err)
	}
	return nil
}
