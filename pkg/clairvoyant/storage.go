// Package clairvoyant is the public entry point to the storage engine: the
// Storage facade (§4.4) that coordinates the catalog and per-metric segment
// writers, and the generic Handle (§4.1) bound to a single metric. Callers
// construct a Storage with Open and obtain Handles with GetOrCreate; the
// facade below that is an implementation detail of internal/catalog,
// internal/segment and internal/codec.
package clairvoyant

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/chagen/clairvoyant/internal/catalog"
	"github.com/chagen/clairvoyant/internal/model"
	"github.com/chagen/clairvoyant/internal/segment"
	"github.com/prometheus/client_golang/prometheus"
)

// ChangeListener is invoked synchronously after a sample is persisted.
type ChangeListener func(model.Timestamped[any])

// GlobalChangeListener is the single, storage-wide variant of ChangeListener.
type GlobalChangeListener func(model.MetricId, model.Timestamped[any])

// DeleteListener is invoked synchronously after delete_history runs,
// carrying the cutoff date it was called with.
type DeleteListener func(before float64)

// GlobalDeleteListener is the single, storage-wide variant of DeleteListener.
type GlobalDeleteListener func(model.MetricId, float64)

// Storage is the single-owner coordinator described in §4.4: it owns the
// Catalog and one Writer per metric, serializes every operation behind mu
// (the "cooperative, single-threaded logical actor" of §5), and caches the
// most recently stored sample per metric so repeated stores don't have to
// round-trip through the Writer's last-value file.
type Storage struct {
	mu  sync.Mutex
	cfg Config

	catalog *catalog.Catalog
	writers map[model.MetricId]*segment.Writer
	cache   map[model.MetricId]model.Timestamped[any]

	changeListeners map[model.MetricId][]ChangeListener
	deleteListeners map[model.MetricId][]DeleteListener
	globalChange    GlobalChangeListener
	globalDelete    GlobalDeleteListener

	metrics *instrumentation
}

// Open creates or reopens a Storage rooted at cfg.RootDir, loading the
// catalog and running the §4.7 startup directory scan before returning.
func Open(cfg Config) (*Storage, error) {
	cfg, err := cfg.normalize()
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(cfg.RootDir, 0o755); err != nil {
		return nil, fmt.Errorf("clairvoyant: create root dir %s: %w", cfg.RootDir, err)
	}

	cat, err := catalog.Open(cfg.RootDir)
	if err != nil {
		return nil, err
	}

	s := &Storage{
		cfg:             cfg,
		catalog:         cat,
		writers:         make(map[model.MetricId]*segment.Writer),
		cache:           make(map[model.MetricId]model.Timestamped[any]),
		changeListeners: make(map[model.MetricId][]ChangeListener),
		deleteListeners: make(map[model.MetricId][]DeleteListener),
		metrics:         newInstrumentation(),
	}

	scanMetricDirectories(cfg, cat.List())

	return s, nil
}

// Close releases every open segment handle. It does not delete anything.
func (s *Storage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var firstErr error
	for id, w := range s.writers {
		if err := w.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("clairvoyant: close %s: %w", id, err)
		}
	}
	return firstErr
}

// Collector exposes the engine's operational counters as a
// prometheus.Collector the host application can register with its own
// registry; see instrumentation.go.
func (s *Storage) Collector() prometheus.Collector {
	return s.metrics
}

// List returns every known metric's catalog entry.
func (s *Storage) List() []model.MetricInfo {
	return s.catalog.List()
}

// getOrCreateInfo implements Catalog.GetOrCreate plus the directory
// creation §4.2 requires, used by the package-level generic GetOrCreate.
func (s *Storage) getOrCreateInfo(id model.MetricId, valueType model.ValueType, name, description string) (model.MetricInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	info, err := s.catalog.GetOrCreate(id, valueType, name, description)
	if err != nil {
		return model.MetricInfo{}, err
	}

	if _, err := s.writerFor(id, info); err != nil {
		return model.MetricInfo{}, err
	}
	return info, nil
}

// writerFor returns the Writer for id, opening (and directory-creating) it
// on first use. Callers must hold s.mu.
func (s *Storage) writerFor(id model.MetricId, info model.MetricInfo) (*segment.Writer, error) {
	if w, ok := s.writers[id]; ok {
		return w, nil
	}
	dir := filepath.Join(s.cfg.RootDir, info.Id.Group, info.Id.Id)
	w, err := segment.Open(dir, id, info.ValueType, s.cfg.SegmentSize, s.cfg.Codec)
	if err != nil {
		return nil, err
	}
	s.writers[id] = w
	return w, nil
}

// lookup resolves id to its catalog entry, failing with UnknownMetric when
// absent or TypeMismatch when want doesn't match the registered type.
// Callers must hold s.mu.
func (s *Storage) lookup(op string, id model.MetricId, want model.ValueType) (model.MetricInfo, error) {
	info, ok := s.catalog.Get(id)
	if !ok {
		return model.MetricInfo{}, model.NewError(model.UnknownMetric, op, id, nil)
	}
	if !info.ValueType.Equal(want) {
		return model.MetricInfo{}, model.NewError(model.TypeMismatch, op, id,
			fmt.Errorf("handle type %s, registered type %s", want, info.ValueType))
	}
	return info, nil
}

// lastValue returns the cached last sample for id, querying the Writer and
// populating the cache on a miss. Callers must hold s.mu.
func (s *Storage) lastValue(w *segment.Writer, id model.MetricId) (model.Timestamped[any], bool, error) {
	if v, ok := s.cache[id]; ok {
		return v, true, nil
	}
	v, ok, err := w.LastValue()
	if err != nil {
		return model.Timestamped[any]{}, false, err
	}
	if ok {
		s.cache[id] = v
	}
	return v, ok, nil
}

// store implements the §4.4 single-sample store contract.
func (s *Storage) store(id model.MetricId, want model.ValueType, sample model.Timestamped[any]) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	info, err := s.lookup("store", id, want)
	if err != nil {
		s.metrics.observeWrite(id, false)
		return false, err
	}

	w, err := s.writerFor(id, info)
	if err != nil {
		return false, err
	}

	current, haveCurrent, err := s.lastValue(w, id)
	if err != nil {
		return false, err
	}

	if haveCurrent {
		dup, err := s.sameEncodedValue(info.ValueType, current.Value, sample.Value)
		if err != nil {
			return false, err
		}
		if dup || sample.Timestamp <= current.Timestamp {
			s.metrics.observeWrite(id, false)
			return false, nil
		}
	}

	if err := w.Append(sample.Timestamp, sample.Value); err != nil {
		return false, err
	}
	s.cache[id] = sample
	s.metrics.observeWrite(id, true)
	s.metrics.observeSegments(id, w)
	s.dispatchChange(id, sample)
	return true, nil
}

// storeMany implements the §4.4 batch store contract: sort ascending,
// apply the dedup/order rule against a rolling "current" seeded from the
// cache, write the survivors in one Writer.WriteMany call, and fire
// listeners once for the final persisted sample.
func (s *Storage) storeMany(id model.MetricId, want model.ValueType, samples []model.Timestamped[any]) error {
	if len(samples) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	info, err := s.lookup("store_many", id, want)
	if err != nil {
		return err
	}

	w, err := s.writerFor(id, info)
	if err != nil {
		return err
	}

	sorted := append([]model.Timestamped[any](nil), samples...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Timestamp < sorted[j].Timestamp })

	current, haveCurrent, err := s.lastValue(w, id)
	if err != nil {
		return err
	}

	persisted := make([]model.Timestamped[any], 0, len(sorted))
	for _, sample := range sorted {
		if haveCurrent {
			dup, err := s.sameEncodedValue(info.ValueType, current.Value, sample.Value)
			if err != nil {
				return err
			}
			if dup || sample.Timestamp <= current.Timestamp {
				continue
			}
		}
		persisted = append(persisted, sample)
		current, haveCurrent = sample, true
	}

	if len(persisted) == 0 {
		return nil
	}

	if err := w.WriteMany(persisted); err != nil {
		return err
	}

	last := persisted[len(persisted)-1]
	s.cache[id] = last
	s.metrics.observeWriteN(id, len(persisted), len(sorted)-len(persisted))
	s.metrics.observeSegments(id, w)
	s.dispatchChange(id, last)
	return nil
}

// sameEncodedValue implements the dedup rule's value-equality check: two
// logical values are equal iff their encoded bytes are equal, per §6's
// codec guarantee.
func (s *Storage) sameEncodedValue(tag model.ValueType, a, b any) (bool, error) {
	encA, err := s.cfg.Codec.EncodeValue(tag, a)
	if err != nil {
		return false, model.NewError(model.EncodeFailure, "store", model.MetricId{}, err)
	}
	encB, err := s.cfg.Codec.EncodeValue(tag, b)
	if err != nil {
		return false, model.NewError(model.EncodeFailure, "store", model.MetricId{}, err)
	}
	return string(encA) == string(encB), nil
}

// currentValue returns the cached/last-value-file sample for id.
func (s *Storage) currentValue(id model.MetricId, want model.ValueType) (model.Timestamped[any], bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	info, err := s.lookup("current_value", id, want)
	if err != nil {
		return model.Timestamped[any]{}, false, err
	}
	w, err := s.writerFor(id, info)
	if err != nil {
		return model.Timestamped[any]{}, false, err
	}
	return s.lastValue(w, id)
}

// history implements the forward/reverse range read of §4.1/§4.3.
func (s *Storage) history(id model.MetricId, want model.ValueType, from, to float64, limit int) ([]model.Timestamped[any], error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	info, err := s.lookup("history", id, want)
	if err != nil {
		return nil, err
	}
	w, err := s.writerFor(id, info)
	if err != nil {
		return nil, err
	}

	forward := from <= to
	lo, hi := from, to
	if !forward {
		lo, hi = to, from
	}
	return w.History(lo, hi, forward, limit)
}

// deleteHistory implements delete_history: the Writer performs the
// segment-level rewrite/removal (§4.3's five-step protocol); the facade
// additionally invalidates its in-memory cache when it no longer reflects
// surviving data, and fires delete listeners.
func (s *Storage) deleteHistory(id model.MetricId, want model.ValueType, before float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	info, err := s.lookup("delete_history", id, want)
	if err != nil {
		return err
	}
	w, err := s.writerFor(id, info)
	if err != nil {
		return err
	}

	if err := w.DeleteBefore(before); err != nil {
		return err
	}

	if cached, ok := s.cache[id]; ok && cached.Timestamp < before {
		delete(s.cache, id)
	}
	s.dispatchDelete(id, before)
	return nil
}

// delete implements §4.4's delete(id): removes the Writer (closing its
// handle), deletes the metric directory, removes the catalog entry, and
// clears cache and listener state.
func (s *Storage) delete(id model.MetricId) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	info, ok := s.catalog.Get(id)
	if !ok {
		return model.NewError(model.UnknownMetric, "delete", id, nil)
	}

	w, err := s.writerFor(id, info)
	if err != nil {
		return err
	}
	if err := w.Delete(); err != nil {
		return err
	}
	delete(s.writers, id)

	if err := s.catalog.Delete(id); err != nil {
		return err
	}

	delete(s.cache, id)
	delete(s.changeListeners, id)
	delete(s.deleteListeners, id)
	return nil
}

func (s *Storage) dispatchChange(id model.MetricId, sample model.Timestamped[any]) {
	start := time.Now()
	for _, l := range s.changeListeners[id] {
		l(sample)
	}
	if s.globalChange != nil {
		s.globalChange(id, sample)
	}
	s.metrics.observeDispatch(time.Since(start))
}

func (s *Storage) dispatchDelete(id model.MetricId, before float64) {
	for _, l := range s.deleteListeners[id] {
		l(before)
	}
	if s.globalDelete != nil {
		s.globalDelete(id, before)
	}
}

// onChange registers a per-metric change listener, fired synchronously
// under s.mu after every persisted sample (§4.1's on_change).
func (s *Storage) onChange(id model.MetricId, l ChangeListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.changeListeners[id] = append(s.changeListeners[id], l)
}

// onDelete registers a per-metric delete listener (§4.1's on_delete).
func (s *Storage) onDelete(id model.MetricId, l DeleteListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteListeners[id] = append(s.deleteListeners[id], l)
}

// SetGlobalChangeListener installs the single storage-wide change
// listener, replacing any previous one. Pass nil to clear it.
func (s *Storage) SetGlobalChangeListener(l GlobalChangeListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.globalChange = l
}

// SetGlobalDeleteListener installs the single storage-wide delete
// listener, replacing any previous one. Pass nil to clear it.
func (s *Storage) SetGlobalDeleteListener(l GlobalDeleteListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.globalDelete = l
}

// Update changes a metric's mutable Name/Description. Existing Handles keep
// the Info snapshot they were created with; only freshly created Handles
// observe the change, per §3's lifecycle rule.
func (s *Storage) Update(id model.MetricId, name, description string) (model.MetricInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.catalog.Update(id, name, description)
}

// Delete removes a metric entirely: its catalog entry, its on-disk
// directory, its cached value and its listeners. Any later operation on id
// other than GetOrCreate returns UnknownMetric.
func (s *Storage) Delete(id model.MetricId) error {
	return s.delete(id)
}
