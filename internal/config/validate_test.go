package config

import (
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
)

func issuePaths(issues []ValidationIssue) []string {
	return lo.Map(issues, func(i ValidationIssue, _ int) string { return i.Path })
}

func TestValidate_ValidDefaults(t *testing.T) {
	cfg := Defaults()
	assert.Empty(t, Validate(&cfg))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		path   string
	}{
		{"bad remote mode", func(c *Config) { c.Remote.Mode = "grpc" }, "remote.mode"},
		{"relative base url", func(c *Config) { c.Remote.BaseURL = "/api" }, "remote.baseUrl"},
		{"relative media url", func(c *Config) { c.Remote.MediaBaseURL = "media" }, "remote.mediaBaseUrl"},
		{"negative timeout", func(c *Config) { c.Remote.TimeoutSeconds = -1 }, "remote.timeoutSeconds"},
		{"negative retries", func(c *Config) { c.Remote.Retries = lo.ToPtr(-2) }, "remote.retries"},
		{"port too large", func(c *Config) { c.Bridge.Port = 70000 }, "bridge.port"},
		{"port negative", func(c *Config) { c.Bridge.Port = -1 }, "bridge.port"},
		{"bad bind", func(c *Config) { c.Bridge.Bind = "tailnet" }, "bridge.bind"},
		{"custom bind without host", func(c *Config) { c.Bridge.Bind = "custom" }, "bridge.customBindHost"},
		{"bad auth mode", func(c *Config) { c.Bridge.Auth.Mode = "oauth" }, "bridge.auth.mode"},
		{"password mode without password", func(c *Config) { c.Bridge.Auth.Mode = "password" }, "bridge.auth.password"},
		{"tls without cert", func(c *Config) { c.Bridge.TLS.Enabled = true }, "bridge.tls"},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }, "logging.level"},
		{"bad console style", func(c *Config) { c.Logging.ConsoleStyle = "fancy" }, "logging.consoleStyle"},
		{"bad cache store", func(c *Config) { c.Cache.Store = "redis" }, "cache.store"},
		{"negative retention", func(c *Config) { c.Cache.AuditRetentionDays = -5 }, "cache.auditRetentionDays"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)
			assert.Contains(t, issuePaths(Validate(&cfg)), tt.path)
		})
	}
}

func TestValidate_LoopbackIgnoresBaseURL(t *testing.T) {
	cfg := Defaults()
	cfg.Remote.Mode = "loopback"
	cfg.Remote.BaseURL = ""
	assert.Empty(t, Validate(&cfg))
}

func TestValidate_AcceptedValues(t *testing.T) {
	for _, bind := range []string{"auto", "lan", "loopback"} {
		cfg := Defaults()
		cfg.Bridge.Bind = bind
		assert.Empty(t, Validate(&cfg), "bind %q", bind)
	}
	for _, level := range validLogLevels {
		cfg := Defaults()
		cfg.Logging.Level = level
		assert.Empty(t, Validate(&cfg), "level %q", level)
	}

	cfg := Defaults()
	cfg.Bridge.Bind = "custom"
	cfg.Bridge.CustomBindHost = "10.0.0.5"
	cfg.Bridge.Port = 0
	assert.Empty(t, Validate(&cfg))
}

func TestValidationIssueString(t *testing.T) {
	issue := ValidationIssue{Path: "bridge.port", Message: "bad"}
	assert.Equal(t, "bridge.port: bad", issue.String())
}
