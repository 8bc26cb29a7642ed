package clairvoyant

import (
	"github.com/chagen/clairvoyant/internal/lineimport"
	"github.com/chagen/clairvoyant/internal/model"
)

// ImportLineProtocol decodes an InfluxDB line-protocol payload and applies
// it as a batch update per metric, creating double-valued metrics on first
// use (§2's Batch Import expansion). It is a convenience layered on top of
// Handle.UpdateMany; it never opens a network connection itself — data
// is assumed to already have been received by some external collaborator.
// It returns the number of distinct metrics touched.
func ImportLineProtocol(s *Storage, data []byte, defaultGroup string) (int, error) {
	samples, err := lineimport.DecodeBatch(data, defaultGroup)
	if err != nil {
		return 0, err
	}

	byMetric := make(map[model.MetricId][]model.Timestamped[float64])
	for _, sample := range samples {
		id := model.MetricId{Group: sample.Group, Id: sample.Id}
		byMetric[id] = append(byMetric[id], model.Timestamped[float64]{Timestamp: sample.Timestamp, Value: sample.Value})
	}

	for id, batch := range byMetric {
		h, err := GetOrCreate[float64](s, id, model.Double, "", "")
		if err != nil {
			return 0, err
		}
		if err := h.UpdateMany(batch); err != nil {
			return 0, err
		}
	}
	return len(byMetric), nil
}
