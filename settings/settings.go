// Package settings holds the renderer's runtime configuration: a typed,
// goroutine-safe key/value store addressed by dotted keys such as "hdr.Exposure".
package settings

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/go-gl/mathgl/mgl32"
)

var (
	// ErrUnknownKey is returned when a key has never been set.
	ErrUnknownKey = errors.New("settings: unknown key")
	// ErrType is returned when a value does not match the type already stored under its key.
	ErrType = errors.New("settings: type mismatch")
)

// Keys understood by the renderer.
const (
	WantsFullscreen = "wantsFullscreen"
	IsFullscreen    = "isFullscreen"

	SSAOActive            = "ssao.Active"
	SSAOFilterRadius      = "ssao.FilterRadius"
	SSAODistanceThreshold = "ssao.DistanceThreshold"
	SSAOAlgorithm         = "ssao.Algorithm"

	VRActive     = "vr.Active"
	VRDoAnaglyph = "vr.DoAnaglyph"
	VRIPD        = "vr.IPD"
	VREyeDivisor = "vr.EyeDivisor"

	HDRActive   = "hdr.Active"
	HDRExposure = "hdr.Exposure"
	HDRGamma    = "hdr.Gamma"

	DebugDeferredBuffers = "debug.DebugDeferredBuffers"
)

// Settings is safe for concurrent use. Values are bool, int, float32 or mgl32.Vec2.
type Settings struct {
	mu     sync.RWMutex
	values map[string]any
}

// New returns an empty store.
func New() *Settings {
	return &Settings{values: make(map[string]any)}
}

// Default returns a store populated with the renderer defaults.
func Default() *Settings {
	s := New()
	for k, v := range defaults() {
		s.values[k] = v
	}
	return s
}

func defaults() map[string]any {
	return map[string]any{
		WantsFullscreen: false,
		IsFullscreen:    false,

		SSAOActive:            true,
		SSAOFilterRadius:      mgl32.Vec2{0, 0},
		SSAODistanceThreshold: float32(50.0),
		SSAOAlgorithm:         1,

		VRActive:     false,
		VRDoAnaglyph: false,
		VRIPD:        float32(0.0),
		VREyeDivisor: 1,

		HDRActive:   true,
		HDRExposure: float32(1.0),
		HDRGamma:    float32(2.2),

		DebugDeferredBuffers: false,
	}
}

// Set stores v under key. Numeric values are normalized to the stored type
// (an int written to a float32 key becomes float32); any other mismatch with
// an existing value is ErrType.
func (s *Settings) Set(key string, v any) error {
	nv, err := normalize(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store(key, nv)
}

// store writes a normalized value under key. The caller holds s.mu.
func (s *Settings) store(key string, nv any) error {
	if old, ok := s.values[key]; ok {
		var err error
		nv, err = coerce(nv, old)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	}
	s.values[key] = nv
	return nil
}

// Update replaces the value under key with fn's result while holding the
// store's lock, so concurrent writers cannot interleave. fn receives the
// current value; returning it unchanged leaves the key as is. The stored
// value is returned.
func (s *Settings) Update(key string, fn func(v any) any) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.values[key]
	if !ok {
		return nil, fmt.Errorf("%s: %w", key, ErrUnknownKey)
	}
	nv, err := normalize(fn(old))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}
	if err := s.store(key, nv); err != nil {
		return nil, err
	}
	return s.values[key], nil
}

// Get returns the raw value stored under key.
func (s *Settings) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

// Lookup returns the value under key as T.
func Lookup[T any](s *Settings, key string) (T, error) {
	var zero T
	v, ok := s.Get(key)
	if !ok {
		return zero, fmt.Errorf("%s: %w", key, ErrUnknownKey)
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("%s is %T: %w", key, v, ErrType)
	}
	return t, nil
}

// Bool returns the value under key, or false when missing or not a bool.
func (s *Settings) Bool(key string) bool {
	v, _ := Lookup[bool](s, key)
	return v
}

// Float returns the value under key, or 0.
func (s *Settings) Float(key string) float32 {
	v, _ := Lookup[float32](s, key)
	return v
}

// Int returns the value under key, or 0.
func (s *Settings) Int(key string) int {
	v, _ := Lookup[int](s, key)
	return v
}

// Vec2 returns the value under key, or the zero vector.
func (s *Settings) Vec2(key string) mgl32.Vec2 {
	v, _ := Lookup[mgl32.Vec2](s, key)
	return v
}

// Toggle flips a boolean key and returns the new value.
func (s *Settings) Toggle(key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.values[key]
	if !ok {
		return false, fmt.Errorf("%s: %w", key, ErrUnknownKey)
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("%s is %T: %w", key, v, ErrType)
	}
	s.values[key] = !b
	return !b, nil
}

// Keys returns all keys in sorted order.
func (s *Settings) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Snapshot returns a copy of every key and value.
func (s *Settings) Snapshot() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]any, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

func normalize(v any) (any, error) {
	switch t := v.(type) {
	case bool, int, float32, mgl32.Vec2:
		return t, nil
	case int32:
		return int(t), nil
	case int64:
		return int(t), nil
	case float64:
		return float32(t), nil
	case [2]float32:
		return mgl32.Vec2(t), nil
	case []float32:
		if len(t) == 2 {
			return mgl32.Vec2{t[0], t[1]}, nil
		}
	case []any:
		if len(t) == 2 {
			x, okx := toFloat(t[0])
			y, oky := toFloat(t[1])
			if okx && oky {
				return mgl32.Vec2{x, y}, nil
			}
		}
	}
	return nil, fmt.Errorf("unsupported value %v (%T): %w", v, v, ErrType)
}

func coerce(v, like any) (any, error) {
	switch like.(type) {
	case float32:
		if f, ok := toFloat(v); ok {
			return f, nil
		}
	case int:
		if i, ok := v.(int); ok {
			return i, nil
		}
	case bool:
		if b, ok := v.(bool); ok {
			return b, nil
		}
	case mgl32.Vec2:
		if vec, ok := v.(mgl32.Vec2); ok {
			return vec, nil
		}
	}
	return nil, fmt.Errorf("cannot store %T over %T: %w", v, like, ErrType)
}

func toFloat(v any) (float32, bool) {
	switch t := v.(type) {
	case float32:
		return t, true
	case float64:
		return float32(t), true
	case int:
		return float32(t), true
	case int64:
		return float32(t), true
	}
	return 0, false
}
