package config

import (
	"fmt"
	"net/url"
	"slices"
)

// ValidationIssue describes a problem with a config value.
type ValidationIssue struct {
	Path    string
	Message string
}

func (v ValidationIssue) String() string {
	return fmt.Sprintf("%s: %s", v.Path, v.Message)
}

var (
	validRemoteModes   = []string{"http", "loopback"}
	validBinds         = []string{"auto", "lan", "loopback", "custom"}
	validAuthModes     = []string{"token", "password"}
	validLogLevels     = []string{"silent", "fatal", "error", "warn", "info", "debug", "trace"}
	validConsoleStyles = []string{"pretty", "compact", "json"}
	validCacheStores   = []string{"sqlite", "memory"}
)

// Validate checks a Config for issues. Returns nil if valid.
func Validate(cfg *Config) []ValidationIssue {
	var issues []ValidationIssue
	add := func(path, format string, args ...any) {
		issues = append(issues, ValidationIssue{Path: path, Message: fmt.Sprintf(format, args...)})
	}
	oneOf := func(path, value string, valid []string) {
		if value != "" && !slices.Contains(valid, value) {
			add(path, "must be one of %v, got %q", valid, value)
		}
	}

	// Remote
	oneOf("remote.mode", cfg.Remote.Mode, validRemoteModes)
	if cfg.Remote.Mode == "http" {
		if u, err := url.Parse(cfg.Remote.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
			add("remote.baseUrl", "must be an absolute URL, got %q", cfg.Remote.BaseURL)
		}
	}
	if cfg.Remote.MediaBaseURL != "" {
		if u, err := url.Parse(cfg.Remote.MediaBaseURL); err != nil || u.Scheme == "" {
			add("remote.mediaBaseUrl", "must be an absolute URL, got %q", cfg.Remote.MediaBaseURL)
		}
	}
	if cfg.Remote.TimeoutSeconds < 0 {
		add("remote.timeoutSeconds", "must not be negative, got %d", cfg.Remote.TimeoutSeconds)
	}
	if cfg.Remote.Retries != nil && *cfg.Remote.Retries < 0 {
		add("remote.retries", "must not be negative, got %d", *cfg.Remote.Retries)
	}

	// Bridge
	if cfg.Bridge.Port < 0 || cfg.Bridge.Port > 65535 {
		add("bridge.port", "port must be 0-65535, got %d", cfg.Bridge.Port)
	}
	oneOf("bridge.bind", cfg.Bridge.Bind, validBinds)
	if cfg.Bridge.Bind == "custom" && cfg.Bridge.CustomBindHost == "" {
		add("bridge.customBindHost", "required when bind is custom")
	}
	oneOf("bridge.auth.mode", cfg.Bridge.Auth.Mode, validAuthModes)
	if cfg.Bridge.Auth.Mode == "password" && cfg.Bridge.Auth.Password == "" {
		add("bridge.auth.password", "required when auth mode is password")
	}
	if cfg.Bridge.TLS.Enabled && (cfg.Bridge.TLS.CertPath == "" || cfg.Bridge.TLS.KeyPath == "") {
		add("bridge.tls", "certPath and keyPath are required when TLS is enabled")
	}

	// Logging
	oneOf("logging.level", cfg.Logging.Level, validLogLevels)
	oneOf("logging.consoleStyle", cfg.Logging.ConsoleStyle, validConsoleStyles)

	// Cache
	oneOf("cache.store", cfg.Cache.Store, validCacheStores)
	if cfg.Cache.AuditRetentionDays < 0 {
		add("cache.auditRetentionDays", "must not be negative, got %d", cfg.Cache.AuditRetentionDays)
	}

	return issues
}
