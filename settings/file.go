package settings

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	toml "github.com/pelletier/go-toml/v2"
)

// Load reads a TOML file and applies every value in it. Dotted keys map to
// tables, so "hdr.Exposure" is written as
//
//	[hdr]
//	Exposure = 1.2
//
// It returns the keys whose value changed. Values that fail to apply are
// reported in the error; the others are still applied.
func (s *Settings) Load(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}
	return s.Decode(data)
}

// Decode applies TOML-encoded settings. See Load.
func (s *Settings) Decode(data []byte) ([]string, error) {
	var tree map[string]any
	if err := toml.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("decode settings: %w", err)
	}

	flat := make(map[string]any)
	flatten("", tree, flat)

	var changed []string
	var errs []error
	for key, v := range flat {
		old, had := s.Get(key)
		if err := s.Set(key, v); err != nil {
			errs = append(errs, err)
			continue
		}
		if cur, _ := s.Get(key); !had || !reflect.DeepEqual(old, cur) {
			changed = append(changed, key)
		}
	}
	return changed, errors.Join(errs...)
}

// Save writes every setting to path as TOML.
func (s *Settings) Save(path string) error {
	data, err := s.Encode()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	return nil
}

// Encode returns the TOML encoding of the store.
func (s *Settings) Encode() ([]byte, error) {
	tree := make(map[string]any)
	for key, v := range s.Snapshot() {
		if vec, ok := v.(mgl32.Vec2); ok {
			v = []float32{vec[0], vec[1]}
		}
		parts := strings.Split(key, ".")
		node := tree
		for _, p := range parts[:len(parts)-1] {
			child, ok := node[p].(map[string]any)
			if !ok {
				child = make(map[string]any)
				node[p] = child
			}
			node = child
		}
		node[parts[len(parts)-1]] = v
	}
	data, err := toml.Marshal(tree)
	if err != nil {
		return nil, fmt.Errorf("encode settings: %w", err)
	}
	return data, nil
}

func flatten(prefix string, tree map[string]any, out map[string]any) {
	for k, v := range tree {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if sub, ok := v.(map[string]any); ok {
			flatten(key, sub, out)
			continue
		}
		out[key] = v
	}
}
