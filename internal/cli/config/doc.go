// Package config provides the respd-cli configuration file.
//
// The file (~/.respd/cli.yaml by default) holds connection defaults and
// the output format. Command line flags override every value.
package config
