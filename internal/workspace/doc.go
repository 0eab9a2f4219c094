// Package workspace manages the staging areas variants are built in.
//
// Each variant run gets a fresh, uniquely named directory (for example
// sitevariants-nojs-1234567) under the configured base directory, or the OS
// temp directory when none is set. Areas are removed when released, including
// on error paths; keep mode retains them for inspection after a failed build.
package workspace
