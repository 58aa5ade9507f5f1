package config

import "time"

// CLIConfig is the configuration for respd-cli.
type CLIConfig struct {
	Host    string        `yaml:"host"`
	Port    int           `yaml:"port"`
	Output  string        `yaml:"output"` // raw, json, yaml
	Timeout time.Duration `yaml:"timeout"`

	TLS TLSConfig `yaml:"tls"`

	// HistoryFile is the REPL history location. Empty uses
	// ~/.respd/history.
	HistoryFile string `yaml:"history_file"`
}

// TLSConfig configures TLS connections.
type TLSConfig struct {
	Enabled bool `yaml:"enabled"`
	// Insecure skips server certificate verification.
	Insecure bool `yaml:"insecure"`
	// CACert verifies the server instead of the system roots.
	CACert string `yaml:"cacert"`
	// Cert and Key are the client certificate for servers that
	// authenticate clients.
	Cert string `yaml:"cert"`
	Key  string `yaml:"key"`
}

// Default returns the default CLI configuration.
func Default() *CLIConfig {
	return &CLIConfig{
		Host:    "127.0.0.1",
		Port:    6379,
		Output:  "raw",
		Timeout: 5 * time.Second,
	}
}
