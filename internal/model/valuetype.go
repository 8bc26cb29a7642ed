package model

import (
	"encoding/json"
	"fmt"
)

// ValueType tags the kind of value a metric stores. It is persisted in the
// catalog as its string form (ValueType.String()) so that reopening a Storage can
// validate that a metric is still being used with the type it was created
// with.
type ValueType struct {
	tag    string
	custom string
}

var (
	Integer         = ValueType{tag: "integer"}
	Double          = ValueType{tag: "double"}
	Boolean         = ValueType{tag: "boolean"}
	String          = ValueType{tag: "string"}
	Bytes           = ValueType{tag: "bytes"}
	Date            = ValueType{tag: "date"}
	Enumeration     = ValueType{tag: "enumeration"}
	ServerStatus    = ValueType{tag: "server-status"}
	SemanticVersion = ValueType{tag: "semantic-version"}
)

// Custom returns the tagged-union variant for a value type the built-in set
// does not cover. name becomes part of the persisted tag.
func Custom(name string) ValueType {
	return ValueType{tag: "custom", custom: name}
}

// String renders the tag the way it is stored in metrics.json.
func (v ValueType) String() string {
	if v.tag == "custom" {
		return fmt.Sprintf("custom(%s)", v.custom)
	}
	return v.tag
}

// Base returns the tag's base kind ("integer", "double", ... or "custom").
// Use CustomName to retrieve the custom variant's name.
func (v ValueType) Base() string {
	return v.tag
}

// CustomName returns the name of a custom value type, or "" if v is not
// the custom variant.
func (v ValueType) CustomName() string {
	return v.custom
}

// Equal reports whether two tags denote the same value type, including the
// custom name for the custom variant.
func (v ValueType) Equal(other ValueType) bool {
	return v.tag == other.tag && v.custom == other.custom
}

// ParseValueType parses the string form produced by String back into a
// ValueType. Used when loading metrics.json.
func ParseValueType(s string) (ValueType, error) {
	switch s {
	case Integer.tag:
		return Integer, nil
	case Double.tag:
		return Double, nil
	case Boolean.tag:
		return Boolean, nil
	case String.tag:
		return String, nil
	case Bytes.tag:
		return Bytes, nil
	case Date.tag:
		return Date, nil
	case Enumeration.tag:
		return Enumeration, nil
	case ServerStatus.tag:
		return ServerStatus, nil
	case SemanticVersion.tag:
		return SemanticVersion, nil
	}
	if name, ok := parseCustomTag(s); ok {
		return Custom(name), nil
	}
	return ValueType{}, fmt.Errorf("model: unknown value type tag %q", s)
}

// MarshalJSON renders the tag as its plain string form, as required by the
// catalog file format.
func (v ValueType) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.String())
}

// UnmarshalJSON parses the tag from its plain string form.
func (v *ValueType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseValueType(s)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

func parseCustomTag(s string) (string, bool) {
	const prefix, suffix = "custom(", ")"
	if len(s) < len(prefix)+len(suffix) || s[:len(prefix)] != prefix || s[len(s)-1:] != suffix {
		return "", false
	}
	return s[len(prefix) : len(s)-1], true
}
