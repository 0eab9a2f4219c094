// Package pipeline runs a variant's build script over a staging area.
//
// A Script is an ordered list of steps. File steps apply to every staged file;
// project steps apply once to the whole staging root. Consecutive file steps
// are grouped into one batch so each file is read, parsed and written back at
// most once per batch, however many actions touch it:
//
//	[render, strip-scripts, noscript-fallback, rewrite-mount-links]
//	  -> batch{render, strip-scripts}, project{noscript-fallback}, batch{rewrite-mount-links}
//
// The Executor drives one script through staging, batching and the final
// mount into the deploy tree.
package pipeline
