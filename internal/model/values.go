package model

import "fmt"

// SemVer is the Go representation of a SemanticVersion-tagged value.
// Grounded in the teacher's node-inventory domain (tracking firmware and
// driver versions on compute nodes over time).
type SemVer struct {
	Major int
	Minor int
	Patch int
	Pre   string
}

func (v SemVer) String() string {
	s := fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
	if v.Pre != "" {
		s += "-" + v.Pre
	}
	return s
}

// CustomValue is the Go representation of a Custom(name)-tagged value: an
// opaque byte payload whose meaning is defined outside the storage engine.
type CustomValue struct {
	Bytes []byte
}
