// Package common holds helpers shared by several services.
//
// It provides a lightweight HTTP client for the MLOps API with timeouts,
// bearer authentication and response envelope decoding, and utilities to
// detect the current system actor (hostname/username) for the user agent.
//
//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common
