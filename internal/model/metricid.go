// Package model holds the data types shared by the catalog, segment and
// codec packages: the metric key, the value-type tag and the timestamped
// sample. They live below the public package so that those packages can
// depend on them without importing the public API and creating a cycle;
// the public package uses these model types directly in its API.
package model

import (
	"crypto/sha256"
	"encoding/hex"
)

// MetricId is the full key of a metric: a group and an id, unique within
// a Storage instance.
type MetricId struct {
	Group string `json:"group"`
	Id    string `json:"id"`
}

// Path renders the id the way it is used for filesystem and hashing
// purposes: "group/id".
func (m MetricId) Path() string {
	return m.Group + "/" + m.Id
}

func (m MetricId) String() string {
	return m.Path()
}

// Hash returns the lowercase hex of the first 16 bytes of SHA-256 over
// the canonical "group/id" rendering. It is only needed where an opaque,
// filesystem-safe identifier must be handed to something outside the
// storage engine; the engine itself always keys by MetricId.
func (m MetricId) Hash() string {
	sum := sha256.Sum256([]byte(m.Path()))
	return hex.EncodeToString(sum[:16])
}
