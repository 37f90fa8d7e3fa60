package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
)

const defaultBaseDir = ".kirpich"

// Paths holds resolved filesystem paths for Kirpich data.
type Paths struct {
	Base   string // ~/.kirpich
	Config string // ~/.kirpich/config.yaml
	Data   string // ~/.kirpich/data
	Logs   string // ~/.kirpich/logs
}

// ResolvePaths computes all standard paths from the home directory.
// If KIRPICH_HOME is set, it overrides the default base directory.
func ResolvePaths() (Paths, error) {
	base := os.Getenv("KIRPICH_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Paths{}, err
		}
		base = filepath.Join(home, defaultBaseDir)
	}

	return Paths{
		Base:   base,
		Config: filepath.Join(base, "config.yaml"),
		Data:   filepath.Join(base, "data"),
		Logs:   filepath.Join(base, "logs"),
	}, nil
}

// Database returns the SQLite path used when cache.path is unset.
func (p Paths) Database() string {
	return filepath.Join(p.Data, "kirpich.db")
}

// EnsureDirs creates all standard directories if they don't exist.
func (p Paths) EnsureDirs() error {
	for _, d := range []string{p.Base, p.Data, p.Logs} {
		if err := os.MkdirAll(d, 0o700); err != nil {
			return err
		}
	}
	return nil
}

// ParseConfigPath splits a dot-separated key such as bridge.auth.mode and
// checks it against the Config schema, so a typo fails instead of writing
// a key the loader would ignore.
func ParseConfigPath(raw string) ([]string, error) {
	if raw == "" {
		return nil, &ConfigError{Message: "empty config path"}
	}
	parts := strings.Split(raw, ".")
	typ := reflect.TypeOf(Config{})
	for i, p := range parts {
		if p == "" {
			return nil, &ConfigError{Message: "config path contains empty segment"}
		}
		if typ == nil {
			return nil, &ConfigError{Message: fmt.Sprintf("%s is not a section", strings.Join(parts[:i], "."))}
		}
		next, ok := yamlField(typ, p)
		if !ok {
			return nil, &ConfigError{Message: fmt.Sprintf("unknown config key %q", strings.Join(parts[:i+1], "."))}
		}
		typ = next
	}
	return parts, nil
}

// yamlField returns the type of the field of struct typ tagged name, or nil
// when that field is a leaf.
func yamlField(typ reflect.Type, name string) (reflect.Type, bool) {
	for i := 0; i < typ.NumField(); i++ {
		f := typ.Field(i)
		tag, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if tag != name {
			continue
		}
		ft := f.Type
		if ft.Kind() == reflect.Pointer {
			ft = ft.Elem()
		}
		if ft.Kind() != reflect.Struct {
			return nil, true
		}
		return ft, true
	}
	return nil, false
}

// GetValueAtPath traverses a nested map using the given path segments.
func GetValueAtPath(root map[string]any, path []string) (any, bool) {
	current := any(root)
	for _, key := range path {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = m[key]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// SetValueAtPath sets a value in a nested map, creating intermediate maps as needed.
func SetValueAtPath(root map[string]any, path []string, value any) {
	current := root
	for _, key := range path[:len(path)-1] {
		next, ok := current[key]
		if !ok {
			next = map[string]any{}
			current[key] = next
		}
		m, ok := next.(map[string]any)
		if !ok {
			m = map[string]any{}
			current[key] = m
		}
		current = m
	}
	current[path[len(path)-1]] = value
}

// UnsetValueAtPath removes a value at the given path. Returns true if removed.
func UnsetValueAtPath(root map[string]any, path []string) bool {
	current := root
	for _, key := range path[:len(path)-1] {
		next, ok := current[key]
		if !ok {
			return false
		}
		m, ok := next.(map[string]any)
		if !ok {
			return false
		}
		current = m
	}
	last := path[len(path)-1]
	if _, ok := current[last]; !ok {
		return false
	}
	delete(current, last)
	return true
}
