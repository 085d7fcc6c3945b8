// Package types defines the library entities, backup snapshot records,
// restore options and reports, configuration, and standard errors shared by
// the librestore packages.
package types
