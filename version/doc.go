// Package version implements parsing, canonicalization, and comparison of
// Debian-style package versions: an epoch, an upstream portion, and an
// optional revision, compared by the Debian alternating lexical/numeric-run
// algorithm.
//
// Grounded on deb/util.go's BumpVersion and deb/repository.go's
// compareVersions/splitVersion from the teacher repository, generalized
// from "compare two revision suffixes" to the full epoch/upstream/revision
// comparison spec.md §3.5 and §4.5 describe.
package version
