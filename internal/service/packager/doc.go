// Package packager builds the client and server packages uploaded to MLOps.
//
// A build copies the packaging template tree into a scratch folder, lays the
// job source and config out under it, writes conf/fedml.yaml pointing at the
// entry file and zips the result into <dest>/dist-packages/<label>.zip.
// ZipBuilder does this natively; CommandBuilder delegates to an external
// packaging command. A lock file next to the scratch folder keeps concurrent
// builds apart.
package packager
