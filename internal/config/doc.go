// Package config holds pagelens configuration: defaults, CLI-populated
// settings, validation, and the optional .pagelens YAML file with
// per-site overrides.
package config
