// Package config loads the sitevariants YAML configuration: .env loading,
// environment expansion, per-domain defaults, validation and the conversion
// into a build plan.
package config
