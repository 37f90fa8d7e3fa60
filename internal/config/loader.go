package config

import (
	"os"
	"regexp"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// envPrefix is prepended to every override variable, e.g. KIRPICH_BRIDGE_PORT.
const envPrefix = "kirpich"

// envVarPattern matches ${VAR_NAME} patterns in strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// envOverrides lists the environment variables that win over the file.
// Unset variables leave the pointer nil.
type envOverrides struct {
	BridgePort    *int    `envconfig:"BRIDGE_PORT"`
	BridgeBind    *string `envconfig:"BRIDGE_BIND"`
	BridgeToken   *string `envconfig:"BRIDGE_TOKEN"`
	LogLevel      *string `envconfig:"LOG_LEVEL"`
	RemoteMode    *string `envconfig:"REMOTE_MODE"`
	RemoteBaseURL *string `envconfig:"REMOTE_BASE_URL"`
}

// expandEnvVars replaces ${VAR} patterns with environment variable values.
// Unset variables are left unchanged.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]
		if val, ok := os.LookupEnv(varName); ok {
			return val
		}
		return match
	})
}

// expandSensitiveFields processes environment variable references in
// credential fields so secrets can be stored as ${ENV_VAR}.
func expandSensitiveFields(cfg *Config) {
	cfg.Bridge.Auth.Token = expandEnvVars(cfg.Bridge.Auth.Token)
	cfg.Bridge.Auth.Password = expandEnvVars(cfg.Bridge.Auth.Password)
	cfg.Remote.BaseURL = expandEnvVars(cfg.Remote.BaseURL)
	cfg.Remote.MediaBaseURL = expandEnvVars(cfg.Remote.MediaBaseURL)
}

// Load reads the config file, applies environment overrides, and returns
// a merged Config. Missing files produce defaults only.
func Load(path string) (Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return cfg, err
		}
	} else if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, &ConfigError{Message: "failed to parse config: " + err.Error()}
	}

	applyDefaults(&cfg)
	expandSensitiveFields(&cfg)
	if err := applyEnvOverrides(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadRaw reads the config file into a generic map for path-based access.
func LoadRaw(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]any{}, nil
		}
		return nil, err
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &ConfigError{Message: "failed to parse config: " + err.Error()}
	}
	if raw == nil {
		raw = map[string]any{}
	}
	return raw, nil
}

// SaveRaw writes a generic map back to a YAML config file.
func SaveRaw(path string, raw map[string]any) error {
	data, err := yaml.Marshal(raw)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// applyDefaults fills zero-value fields with sensible defaults.
func applyDefaults(cfg *Config) {
	d := Defaults()
	if cfg.Remote.Mode == "" {
		cfg.Remote.Mode = d.Remote.Mode
	}
	if cfg.Remote.BaseURL == "" {
		cfg.Remote.BaseURL = d.Remote.BaseURL
	}
	if cfg.Remote.TimeoutSeconds == 0 {
		cfg.Remote.TimeoutSeconds = d.Remote.TimeoutSeconds
	}
	if cfg.Remote.Retries == nil {
		cfg.Remote.Retries = d.Remote.Retries
	}
	if cfg.Bridge.Port == 0 {
		cfg.Bridge.Port = d.Bridge.Port
	}
	if cfg.Bridge.Bind == "" {
		cfg.Bridge.Bind = d.Bridge.Bind
	}
	if cfg.Bridge.Auth.Mode == "" {
		cfg.Bridge.Auth.Mode = d.Bridge.Auth.Mode
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = d.Logging.Level
	}
	if cfg.Logging.ConsoleStyle == "" {
		cfg.Logging.ConsoleStyle = d.Logging.ConsoleStyle
	}
	if cfg.Cache.Store == "" {
		cfg.Cache.Store = d.Cache.Store
	}
	if cfg.Cache.AuditRetentionDays == 0 {
		cfg.Cache.AuditRetentionDays = d.Cache.AuditRetentionDays
	}
}

// applyEnvOverrides reads KIRPICH_* environment variables and overrides config values.
func applyEnvOverrides(cfg *Config) error {
	var env envOverrides
	if err := envconfig.Process(envPrefix, &env); err != nil {
		return &ConfigError{Message: "invalid environment override: " + err.Error()}
	}

	if env.BridgePort != nil {
		cfg.Bridge.Port = *env.BridgePort
	}
	if env.BridgeBind != nil && *env.BridgeBind != "" {
		cfg.Bridge.Bind = *env.BridgeBind
	}
	if env.BridgeToken != nil && *env.BridgeToken != "" {
		cfg.Bridge.Auth.Token = *env.BridgeToken
	}
	if env.LogLevel != nil && *env.LogLevel != "" {
		cfg.Logging.Level = strings.ToLower(*env.LogLevel)
	}
	if env.RemoteMode != nil && *env.RemoteMode != "" {
		cfg.Remote.Mode = strings.ToLower(*env.RemoteMode)
	}
	if env.RemoteBaseURL != nil && *env.RemoteBaseURL != "" {
		cfg.Remote.BaseURL = *env.RemoteBaseURL
	}
	return nil
}
