package clairvoyant

import (
	"time"

	"github.com/chagen/clairvoyant/internal/model"
)

// Handle is the lightweight, strongly-typed value object of §4.1: a cheap,
// copyable façade bound to a (Storage, MetricId, ValueType) triple. The
// Storage reference is non-owning — a Handle outliving its Storage is a
// usage error, never checked for at runtime, matching §9's "owning vs
// non-owning references" guidance.
type Handle[V any] struct {
	storage *Storage
	info    model.MetricInfo
}

// GetOrCreate returns a Handle bound to id, creating the metric (and its
// on-disk directory) on first use. Reopening an id with a different
// valueType than it was created with fails with a TypeMismatch error; for an
// existing metric, a non-empty name/description that differs from the stored
// one replaces it, and empty strings leave it unchanged.
func GetOrCreate[V any](s *Storage, id model.MetricId, valueType model.ValueType, name, description string) (Handle[V], error) {
	info, err := s.getOrCreateInfo(id, valueType, name, description)
	if err != nil {
		return Handle[V]{}, err
	}
	return Handle[V]{storage: s, info: info}, nil
}

// Id returns the handle's metric identity.
func (h Handle[V]) Id() model.MetricId { return h.info.Id }

// Info returns the handle's catalog entry as it was when the handle was
// created; Name/Description may have since been changed via Storage.Update
// on another handle for the same id.
func (h Handle[V]) Info() model.MetricInfo { return h.info }

// Update persists value at the current time, returning true iff it passed
// the dedup/ordering check of §4.4's store contract.
func (h Handle[V]) Update(value V) (bool, error) {
	return h.UpdateAt(value, nowSeconds())
}

// UpdateAt persists value at the given timestamp (seconds since epoch).
func (h Handle[V]) UpdateAt(value V, timestamp float64) (bool, error) {
	return h.storage.store(h.info.Id, h.info.ValueType, model.Timestamped[any]{Timestamp: timestamp, Value: value})
}

// UpdateMany persists a batch of samples per §4.1/§4.4's batch semantics:
// sorted by timestamp, deduped/ordered against the rolling current value,
// with listeners firing only for the final persisted sample.
func (h Handle[V]) UpdateMany(samples []model.Timestamped[V]) error {
	boxed := make([]model.Timestamped[any], len(samples))
	for i, s := range samples {
		boxed[i] = model.Timestamped[any]{Timestamp: s.Timestamp, Value: s.Value}
	}
	return h.storage.storeMany(h.info.Id, h.info.ValueType, boxed)
}

// CurrentValue returns the metric's most recently persisted sample, if any.
func (h Handle[V]) CurrentValue() (model.Timestamped[V], bool, error) {
	raw, ok, err := h.storage.currentValue(h.info.Id, h.info.ValueType)
	if err != nil || !ok {
		return model.Timestamped[V]{}, false, err
	}
	v, err := castValue[V](raw.Value)
	if err != nil {
		return model.Timestamped[V]{}, false, err
	}
	return model.Timestamped[V]{Timestamp: raw.Timestamp, Value: v}, true, nil
}

// History returns values in [from,to] ascending when from<=to, or values in
// [to,from] descending otherwise, bounded by limit (<=0 meaning unlimited).
func (h Handle[V]) History(from, to float64, limit int) ([]model.Timestamped[V], error) {
	raw, err := h.storage.history(h.info.Id, h.info.ValueType, from, to, limit)
	if err != nil {
		return nil, err
	}
	out := make([]model.Timestamped[V], len(raw))
	for i, r := range raw {
		v, err := castValue[V](r.Value)
		if err != nil {
			return nil, err
		}
		out[i] = model.Timestamped[V]{Timestamp: r.Timestamp, Value: v}
	}
	return out, nil
}

// DeleteHistory deletes every record with timestamp strictly less than
// before.
func (h Handle[V]) DeleteHistory(before float64) error {
	return h.storage.deleteHistory(h.info.Id, h.info.ValueType, before)
}

// OnChange registers a listener fired once per persisted sample (for a
// batch, only for the final one), per §4.1.
func (h Handle[V]) OnChange(listener func(model.Timestamped[V])) {
	h.storage.onChange(h.info.Id, func(raw model.Timestamped[any]) {
		v, err := castValue[V](raw.Value)
		if err != nil {
			return
		}
		listener(model.Timestamped[V]{Timestamp: raw.Timestamp, Value: v})
	})
}

// OnDelete registers a listener fired once per DeleteHistory call, with its
// cutoff date, per §4.1.
func (h Handle[V]) OnDelete(listener func(before float64)) {
	h.storage.onDelete(h.info.Id, listener)
}

func castValue[V any](raw any) (V, error) {
	v, ok := raw.(V)
	if !ok {
		var zero V
		return zero, model.NewError(model.DecodeFailure, "cast", model.MetricId{}, nil)
	}
	return v, nil
}

func nowSeconds() float64 {
	return float64(time.Now().UnixNano()) / 1e9
}
