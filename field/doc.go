// Package field implements the generic RFC822-style field-file parser:
// a case-insensitive field map with per-field source location,
// `${variable}`/`$(expression)` substitution with cyclic-reference
// detection, and sub-package qualification.
//
// Grounded on deb/util.go's parseControlFile (continuation-line folding,
// "#" comments, blank-line-terminated entries) from the teacher
// repository, generalized from "parse exactly the Debian control field
// set" into a generic name/value field map, and on
// manifest/template.go's sortLocals, whose visited/visiting maps ground
// this package's per-resolution cyclic-detection stack (the same shape,
// adapted from a topological pre-pass to a lazy resolve-on-read walk).
package field
