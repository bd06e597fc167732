// Package model provides the data sources a view serializes before
// rendering: an attribute bag (Model) and an ordered list of them
// (Collection).
//
// Serialization always returns a deep copy produced by a msgpack round
// trip, so a template can never write through to model state. Numbers come
// back normalised to int64, uint64 or float64, the same way a JSON round
// trip would flatten them.
package model

import (
	"bytes"
	"fmt"
	"sort"
	"sync"

	"github.com/vmihailenco/msgpack/v5"
)

// Serializer is implemented by anything a view can render from.
type Serializer interface {
	ToJSON() map[string]any
}

// ListSerializer is implemented by list-shaped data sources.
type ListSerializer interface {
	ToJSON() []any
}

// Clone deep-copies a serializable value. Structs are encoded using their
// json tags.
func Clone(v any) (any, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("model: encode: %w", err)
	}

	dec := msgpack.NewDecoder(&buf)
	dec.UseLooseInterfaceDecoding(true)
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("model: decode: %w", err)
	}
	return out, nil
}

// CloneMap deep-copies a string keyed map.
func CloneMap(m map[string]any) (map[string]any, error) {
	if m == nil {
		return map[string]any{}, nil
	}
	out, err := Clone(m)
	if err != nil {
		return nil, err
	}
	cloned, ok := out.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("model: unexpected clone type %T", out)
	}
	return cloned, nil
}

// Model is a concurrency-safe attribute bag.
type Model struct {
	mu    sync.RWMutex
	attrs map[string]any
}

// New creates a model with the given attributes.
func New(attrs map[string]any) *Model {
	m := &Model{attrs: make(map[string]any, len(attrs))}
	for k, v := range attrs {
		m.attrs[k] = v
	}
	return m
}

// Get returns an attribute value.
func (m *Model) Get(key string) any {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.attrs[key]
}

// Has reports whether an attribute is set to a non-nil value.
func (m *Model) Has(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.attrs[key] != nil
}

// Set sets an attribute.
func (m *Model) Set(key string, value any) *Model {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attrs[key] = value
	return m
}

// SetAll merges attrs into the model.
func (m *Model) SetAll(attrs map[string]any) *Model {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range attrs {
		m.attrs[k] = v
	}
	return m
}

// Unset removes an attribute.
func (m *Model) Unset(key string) *Model {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.attrs, key)
	return m
}

// Keys returns the attribute names in sorted order.
func (m *Model) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.attrs))
	for k := range m.attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ToJSON returns a deep copy of the attributes. Attributes that cannot be
// encoded are dropped from the copy. A nil model serializes as an empty
// map.
func (m *Model) ToJSON() map[string]any {
	if m == nil {
		return map[string]any{}
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	out, err := CloneMap(m.attrs)
	if err == nil {
		return out
	}
	// Fall back to per-key copies so one bad value doesn't hide the rest.
	out = make(map[string]any, len(m.attrs))
	for k, v := range m.attrs {
		if c, err := Clone(v); err == nil {
			out[k] = c
		}
	}
	return out
}

// Collection is an ordered list of models.
type Collection struct {
	mu     sync.RWMutex
	models []*Model
}

// NewCollection creates a collection from models.
func NewCollection(models ...*Model) *Collection {
	c := &Collection{}
	c.models = append(c.models, models...)
	return c
}

// Add appends models.
func (c *Collection) Add(models ...*Model) *Collection {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.models = append(c.models, models...)
	return c
}

// Reset replaces the contents of the collection.
func (c *Collection) Reset(models ...*Model) *Collection {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.models = append([]*Model(nil), models...)
	return c
}

// At returns the model at index i, or nil when out of range.
func (c *Collection) At(i int) *Model {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if i < 0 || i >= len(c.models) {
		return nil
	}
	return c.models[i]
}

// Len returns the number of models.
func (c *Collection) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.models)
}

// Where returns the models whose attribute key equals value.
func (c *Collection) Where(key string, value any) []*Model {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []*Model
	for _, m := range c.models {
		if m.Get(key) == value {
			out = append(out, m)
		}
	}
	return out
}

// ToJSON serializes every model in order. Nil entries are skipped.
func (c *Collection) ToJSON() []any {
	if c == nil {
		return []any{}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]any, 0, len(c.models))
	for _, m := range c.models {
		if m == nil {
			continue
		}
		out = append(out, m.ToJSON())
	}
	return out
}
