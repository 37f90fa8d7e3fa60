package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfigPath(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []string
		wantErr bool
	}{
		{"single segment", "bridge", []string{"bridge"}, false},
		{"two segments", "bridge.port", []string{"bridge", "port"}, false},
		{"three segments", "bridge.auth.mode", []string{"bridge", "auth", "mode"}, false},
		{"empty", "", nil, true},
		{"empty segment", "bridge..port", nil, true},
		{"leading dot", ".bridge", nil, true},
		{"trailing dot", "bridge.", nil, true},
		{"pointer leaf", "remote.realtime", []string{"remote", "realtime"}, false},
		{"list leaf", "bridge.allowedOrigins", []string{"bridge", "allowedOrigins"}, false},
		{"unknown section", "gateway.port", nil, true},
		{"unknown key", "bridge.prot", nil, true},
		{"go field name", "bridge.CustomBindHost", nil, true},
		{"below a leaf", "bridge.port.value", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseConfigPath(tt.input)
			if tt.wantErr {
				var ce *ConfigError
				assert.ErrorAs(t, err, &ce)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGetValueAtPath(t *testing.T) {
	root := map[string]any{
		"bridge": map[string]any{
			"port": 18790,
			"auth": map[string]any{"mode": "token"},
		},
		"simple": "value",
	}

	tests := []struct {
		name string
		path []string
		want any
		ok   bool
	}{
		{"nested value", []string{"bridge", "port"}, 18790, true},
		{"deeply nested", []string{"bridge", "auth", "mode"}, "token", true},
		{"top level", []string{"simple"}, "value", true},
		{"missing key", []string{"nonexistent"}, nil, false},
		{"missing nested", []string{"bridge", "nonexistent"}, nil, false},
		{"non-map intermediate", []string{"simple", "sub"}, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			val, ok := GetValueAtPath(root, tt.path)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, val)
			}
		})
	}
}

func TestSetValueAtPath(t *testing.T) {
	root := map[string]any{
		"bridge": map[string]any{"port": 18790},
		"remote": "string-not-map",
	}

	SetValueAtPath(root, []string{"bridge", "port"}, 9999)
	SetValueAtPath(root, []string{"cache", "store"}, "memory")
	SetValueAtPath(root, []string{"remote", "mode"}, "loopback")

	val, _ := GetValueAtPath(root, []string{"bridge", "port"})
	assert.Equal(t, 9999, val)
	val, _ = GetValueAtPath(root, []string{"cache", "store"})
	assert.Equal(t, "memory", val)
	val, _ = GetValueAtPath(root, []string{"remote", "mode"})
	assert.Equal(t, "loopback", val)
}

func TestUnsetValueAtPath(t *testing.T) {
	root := map[string]any{
		"bridge": map[string]any{"port": 18790, "bind": "lan"},
		"logging": "flat",
	}

	assert.True(t, UnsetValueAtPath(root, []string{"bridge", "port"}))
	_, found := GetValueAtPath(root, []string{"bridge", "port"})
	assert.False(t, found)

	val, found := GetValueAtPath(root, []string{"bridge", "bind"})
	assert.True(t, found)
	assert.Equal(t, "lan", val)

	assert.False(t, UnsetValueAtPath(root, []string{"bridge", "nonexistent"}))
	assert.False(t, UnsetValueAtPath(root, []string{"a", "b", "c"}))
	assert.False(t, UnsetValueAtPath(root, []string{"logging", "level"}))
}

func TestResolvePaths_Default(t *testing.T) {
	t.Setenv("KIRPICH_HOME", "")

	paths, err := ResolvePaths()
	require.NoError(t, err)

	home, _ := os.UserHomeDir()
	base := filepath.Join(home, ".kirpich")
	assert.Equal(t, base, paths.Base)
	assert.Equal(t, filepath.Join(base, "config.yaml"), paths.Config)
	assert.Equal(t, filepath.Join(base, "data"), paths.Data)
	assert.Equal(t, filepath.Join(base, "logs"), paths.Logs)
	assert.Equal(t, filepath.Join(base, "data", "kirpich.db"), paths.Database())
}

func TestResolvePaths_CustomHome(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("KIRPICH_HOME", tmp)

	paths, err := ResolvePaths()
	require.NoError(t, err)
	assert.Equal(t, tmp, paths.Base)
	assert.Equal(t, filepath.Join(tmp, "config.yaml"), paths.Config)
}

func TestEnsureDirs(t *testing.T) {
	t.Setenv("KIRPICH_HOME", filepath.Join(t.TempDir(), "nested"))

	paths, err := ResolvePaths()
	require.NoError(t, err)
	require.NoError(t, paths.EnsureDirs())
	require.NoError(t, paths.EnsureDirs())

	for _, d := range []string{paths.Base, paths.Data, paths.Logs} {
		info, err := os.Stat(d)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}
