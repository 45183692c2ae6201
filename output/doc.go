// Package output implements the process-wide pluggable message sink:
// leveled, module-tagged messages with positional-argument formatting,
// an error counter, and debug-bitmask filtering for the rendering path.
//
// Grounded on the teacher's own Printf-to-strings.Builder field
// emission style (deb/util.go's generateControlFile), generalized from
// "build one control-file body" into a standalone structured-message
// type, plus the global-sink pattern spec.md §9 calls out ("Global
// output sink" design note), kept here as one mutex-guarded
// process-wide sink that Install replaces and Release clears.
package output
