// Package job turns a job description document into a normalized JobConfig
// and derives the on-disk locations (LaunchPaths) used to package it.
//
// Both constructors create the folders they resolve. Filesystem access goes
// through afero so the path rules can be exercised on an in-memory tree.
package job
