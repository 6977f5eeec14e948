// Package updater checks whether a newer mlops-launch release is published.
//
// The release manifest is a small YAML document with the version, the binary
// URL and its SHA-512 checksum. A newer release is reported with a warning;
// when self-update is enabled the binary is downloaded and swapped in place.
package updater
