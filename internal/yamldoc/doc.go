// Package yamldoc loads and writes free-form YAML documents such as job
// descriptions and generated app configs.
//
// A Document is a plain nested map. Helpers read typed values along a key
// path, and Merge builds a new document instead of mutating a loaded one.
package yamldoc
