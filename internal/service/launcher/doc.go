// Package launcher prepares a job for launch on the MLOps platform.
//
// Manager.PrepareLaunch resolves a job description into files on disk,
// registers the model and applies for an endpoint for serving jobs, writes
// the bootstrap script and app config, and builds the client and server
// packages. Run wires a Manager from the launcher settings for the CLI.
package launcher
