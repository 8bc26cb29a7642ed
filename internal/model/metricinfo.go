package model

// MetricInfo is the catalog's record for one metric. The catalog keys its
// entries by Id alone; MetricInfo has no Id-only equality of its own, and
// == compares all four fields. Name and Description are mutable metadata,
// ValueType is fixed for the metric's lifetime.
type MetricInfo struct {
	Id          MetricId  `json:"id"`
	ValueType   ValueType `json:"valueType"`
	Name        string    `json:"name,omitempty"`
	Description string    `json:"description,omitempty"`
}
