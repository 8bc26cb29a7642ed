// Package catalog implements the directory of known metrics: the on-disk
// metrics.json file listing every metric's identity, value type, and
// mutable metadata. It is the smallest of the storage engine's components,
// but every other component consults it before touching a metric's
// segments.
package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	cclog "github.com/ClusterCockpit/cc-lib/v2/ccLogger"
	"github.com/chagen/clairvoyant/internal/model"
)

const fileName = "metrics.json"

// Catalog is the in-memory mirror of metrics.json, kept consistent with the
// file by rewriting it atomically on every mutation. Every method takes the
// Catalog's own read/write lock, so a Catalog is safe for concurrent use.
type Catalog struct {
	rootDir string
	mu      sync.RWMutex
	byId    map[model.MetricId]model.MetricInfo
}

// Open loads rootDir/metrics.json, creating an empty catalog file if none
// exists yet. rootDir must already exist.
func Open(rootDir string) (*Catalog, error) {
	c := &Catalog{
		rootDir: rootDir,
		byId:    make(map[model.MetricId]model.MetricInfo),
	}

	path := filepath.Join(rootDir, fileName)
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		var entries []model.MetricInfo
		if err := json.Unmarshal(data, &entries); err != nil {
			return nil, fmt.Errorf("catalog: parse %s: %w", path, err)
		}
		for _, info := range entries {
			c.byId[info.Id] = info
		}
	case os.IsNotExist(err):
		if err := c.save(); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}

	return c, nil
}

// List returns every known metric, sorted by group then id for a stable
// iteration order.
func (c *Catalog) List() []model.MetricInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]model.MetricInfo, 0, len(c.byId))
	for _, info := range c.byId {
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Id.Group != out[j].Id.Group {
			return out[i].Id.Group < out[j].Id.Group
		}
		return out[i].Id.Id < out[j].Id.Id
	})
	return out
}

// Get returns the catalog entry for id, if any.
func (c *Catalog) Get(id model.MetricId) (model.MetricInfo, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	info, ok := c.byId[id]
	return info, ok
}

// GetOrCreate returns the existing entry for id, or creates one with the
// given value type, name and description if id is new. The value type of an
// existing metric can never change; an attempt to reuse an id with a
// different type fails with a *model.Error of kind TypeMismatch. For an
// existing metric, a non-empty name or description that differs from the
// stored one replaces it (and the catalog is rewritten); empty strings leave
// the stored metadata unchanged.
func (c *Catalog) GetOrCreate(id model.MetricId, valueType model.ValueType, name, description string) (model.MetricInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.byId[id]; ok {
		if !existing.ValueType.Equal(valueType) {
			return model.MetricInfo{}, model.NewError(model.TypeMismatch, "get_or_create", id,
				fmt.Errorf("existing type %s, requested %s", existing.ValueType, valueType))
		}
		updated := existing
		changed := false
		if name != "" && name != updated.Name {
			updated.Name = name
			changed = true
		}
		if description != "" && description != updated.Description {
			updated.Description = description
			changed = true
		}
		if !changed {
			return existing, nil
		}
		c.byId[id] = updated
		if err := c.save(); err != nil {
			c.byId[id] = existing
			return model.MetricInfo{}, model.NewError(model.WriteFailure, "get_or_create", id, err)
		}
		return updated, nil
	}

	info := model.MetricInfo{Id: id, ValueType: valueType, Name: name, Description: description}
	c.byId[id] = info
	if err := c.save(); err != nil {
		delete(c.byId, id)
		return model.MetricInfo{}, model.NewError(model.WriteFailure, "get_or_create", id, err)
	}
	return info, nil
}

// Update changes the mutable Name and Description of an existing metric.
func (c *Catalog) Update(id model.MetricId, name, description string) (model.MetricInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	info, ok := c.byId[id]
	if !ok {
		return model.MetricInfo{}, model.NewError(model.UnknownMetric, "update", id, nil)
	}
	previous := info
	info.Name, info.Description = name, description
	c.byId[id] = info
	if err := c.save(); err != nil {
		c.byId[id] = previous
		return model.MetricInfo{}, model.NewError(model.WriteFailure, "update", id, err)
	}
	return info, nil
}

// Delete removes id's catalog entry. It does not touch the metric's
// segment directory; the caller (the Storage facade) is responsible for
// ordering the directory removal relative to the catalog rewrite.
func (c *Catalog) Delete(id model.MetricId) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	info, ok := c.byId[id]
	if !ok {
		return nil
	}
	delete(c.byId, id)
	if err := c.save(); err != nil {
		c.byId[id] = info
		return model.NewError(model.WriteFailure, "delete", id, err)
	}
	return nil
}

// save rewrites metrics.json from the current in-memory state. The file is
// written to a temporary name and renamed into place so that a crash mid
// write never leaves a truncated catalog behind.
func (c *Catalog) save() error {
	entries := make([]model.MetricInfo, 0, len(c.byId))
	for _, info := range c.byId {
		entries = append(entries, info)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Id.Group != entries[j].Id.Group {
			return entries[i].Id.Group < entries[j].Id.Group
		}
		return entries[i].Id.Id < entries[j].Id.Id
	})

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("catalog: marshal metrics.json: %w", err)
	}

	path := filepath.Join(c.rootDir, fileName)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("catalog: write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		cclog.Errorf("catalog: rename %s to %s: %s", tmp, path, err.Error())
		return fmt.Errorf("catalog: rename %s to %s: %w", tmp, path, err)
	}
	return nil
}
