// Package progress implements the LIFO progress stack of spec.md §3.9:
// nested (what, current, max) records whose lifetime is paired by a
// scope guard.
//
// Grounded directly on spec.md §3.9/§9 system-overview item 10; no
// teacher component maintains a progress stack, so this is built in
// the teacher's plain small-struct style rather than adapted from an
// existing file. The coupling of Push/Update/Pop to output.Logf mirrors
// original_source/wpkg/libdebpackages/installer/progress_scope.cpp,
// whose add_progess_record/increment_progress/pop_progess_record each
// also emit a wpkg_output::log(...) debug record alongside the stack
// mutation.
package progress
