// Package route decides which source files enter a variant's staging area and
// under which path.
//
// A Router holds an ordered, immutable list of rules. Each rule carries an
// inbound regular expression that is searched (not anchored) against the
// file's slash-separated path relative to the source root. The first rule
// that matches decides: a discard rule drops the file, a rename rule copies it
// to the path produced by its outbound template. Rules that do not match are
// skipped. A file no rule matches is excluded.
//
// Outbound templates substitute $name$ tokens with the match's capture
// groups: $0$ is the whole match, $1$..$N$ positional groups, $name$ a named
// group, and $$ a literal dollar sign.
//
// Patterns are plain string searches, so a discard rule "^node_modules" also
// drops "node_modules_backup/x". That is the established behaviour of the
// default rule set and is kept as is.
package route
