// Package confloader provides the configuration loading mechanism.
//
// It uses koanf to merge configuration from several sources into a typed
// struct that already holds the defaults.
//
// Priority (highest to lowest):
//
//  1. Overrides (command line flags)
//  2. Environment variables (RESPD_ prefix, "__" between levels)
//  3. Configuration file (YAML)
//  4. Default values
//
// Watcher reports changes to the configuration file so selected settings
// can be applied without a restart.
package confloader
