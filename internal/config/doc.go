// Package config defines the launcher settings and provides helpers to load,
// validate and save them in YAML format.
//
// A missing settings file is not an error: Load returns the defaults, which
// point at the public MLOps API and keep all local state under ~/.fedml.
package config
