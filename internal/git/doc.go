// Package git reads version-control metadata for the source tree so build
// reports can record exactly what was built.
package git
