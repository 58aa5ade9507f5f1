// Package config provides the respd-server configuration.
//
// This package defines the configuration structure and its checks:
//
//   - spec.go: ServerConfig struct definition
//   - default.go: Default configuration values
//   - sanitize.go: Normalization of user supplied values
//   - verify.go: Validation (addresses, files, enums, limits)
//
// Configuration is loaded via internal/infra/confloader from a YAML file,
// RESPD_ environment variables and command line flags.
package config
