package config

// Config is the root configuration for the Kirpich desktop core.
type Config struct {
	Remote  RemoteConfig  `yaml:"remote,omitempty"`
	Bridge  BridgeConfig  `yaml:"bridge,omitempty"`
	Logging LoggingConfig `yaml:"logging,omitempty"`
	Cache   CacheConfig   `yaml:"cache,omitempty"`
	Dev     DevConfig     `yaml:"dev,omitempty"`
}

// RemoteConfig selects and tunes the messaging backend client.
type RemoteConfig struct {
	Mode           string `yaml:"mode,omitempty"` // "http" | "loopback"
	BaseURL        string `yaml:"baseUrl,omitempty"`
	MediaBaseURL   string `yaml:"mediaBaseUrl,omitempty"`
	TimeoutSeconds int    `yaml:"timeoutSeconds,omitempty"`
	Retries        *int   `yaml:"retries,omitempty"`
	Realtime       *bool  `yaml:"realtime,omitempty"` // subscribe to pushed messages; defaults to true
}

// RealtimeEnabled reports whether the realtime subscriber should run.
func (r RemoteConfig) RealtimeEnabled() bool {
	return r.Realtime == nil || *r.Realtime
}

// BridgeConfig controls the local HTTP/WebSocket bridge the UI connects to.
type BridgeConfig struct {
	Port           int        `yaml:"port,omitempty"`
	Bind           string     `yaml:"bind,omitempty"` // "auto" | "lan" | "loopback" | "custom"
	CustomBindHost string     `yaml:"customBindHost,omitempty"`
	Auth           BridgeAuth `yaml:"auth,omitempty"`
	TLS            BridgeTLS  `yaml:"tls,omitempty"`
	AllowedOrigins []string   `yaml:"allowedOrigins,omitempty"`
}

// BridgeAuth configures how UI clients authenticate to the bridge.
type BridgeAuth struct {
	Mode     string `yaml:"mode,omitempty"` // "token" | "password"
	Token    string `yaml:"token,omitempty"`
	Password string `yaml:"password,omitempty"`
}

// BridgeTLS configures TLS for the bridge.
type BridgeTLS struct {
	Enabled  bool   `yaml:"enabled,omitempty"`
	CertPath string `yaml:"certPath,omitempty"`
	KeyPath  string `yaml:"keyPath,omitempty"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level        string `yaml:"level,omitempty"`        // "silent" | "fatal" | "error" | "warn" | "info" | "debug" | "trace"
	ConsoleStyle string `yaml:"consoleStyle,omitempty"` // "pretty" | "compact" | "json"
}

// CacheConfig controls persistence of the chat snapshot and audit log.
type CacheConfig struct {
	Store              string `yaml:"store,omitempty"` // "sqlite" | "memory"
	Path               string `yaml:"path,omitempty"`
	AuditRetentionDays int    `yaml:"auditRetentionDays,omitempty"`
}

// DevConfig holds development conveniences.
type DevConfig struct {
	AutoRestart bool `yaml:"autoRestart,omitempty"`
}
