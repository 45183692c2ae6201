// Package control specializes the field package's generic substitution
// model into Debian-style control files: a fixed set of well-known
// fields, each with a verify hook that rejects a malformed value at
// Set time rather than at first use.
//
// Grounded on deb/constants.go's ControlField/ControlFile enums
// (generalized from a flat string-constant table into a per-field
// verify-hook registry) and deb/package.go's Metadata/Set, whose single
// ad hoc Architecture/Depends checks are generalized here into the full
// field table of spec.md §4.4.
package control
