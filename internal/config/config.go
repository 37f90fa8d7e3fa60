package config

import "fmt"

// ConfigError represents a configuration error.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s", e.Message)
}

const (
	DefaultBridgePort     = 18790
	DefaultRemoteBaseURL  = "http://localhost:8080"
	DefaultTimeoutSeconds = 30
	DefaultRetries        = 3
	DefaultAuditDays      = 30
)

// Defaults returns a Config with sensible defaults applied.
func Defaults() Config {
	retries := DefaultRetries
	return Config{
		Remote: RemoteConfig{
			Mode:           "http",
			BaseURL:        DefaultRemoteBaseURL,
			TimeoutSeconds: DefaultTimeoutSeconds,
			Retries:        &retries,
		},
		Bridge: BridgeConfig{
			Port: DefaultBridgePort,
			Bind: "loopback",
			Auth: BridgeAuth{
				Mode: "token",
			},
		},
		Logging: LoggingConfig{
			Level:        "info",
			ConsoleStyle: "pretty",
		},
		Cache: CacheConfig{
			Store:              "sqlite",
			AuditRetentionDays: DefaultAuditDays,
		},
	}
}
