// Package build orchestrates a full site build: the deploy root is prepared
// once, then every variant runs sequentially through its own staging area and
// is mounted into the deploy tree. The outcome is summarised in a Report.
package build
