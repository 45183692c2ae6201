// Package filename implements the canonical URI filename type: scheme,
// authority, ordered path segments, optional MS-DOS drive letter,
// anchor, and query variables, plus a filesystem bridge and glob
// matching.
//
// No teacher component in the retrieval pack implements a URI-filename
// abstraction (the teacher works directly with strings and
// path/filepath); built in the teacher's plain small-struct,
// method-per-operation style and layered over path/filepath and os for
// the filesystem bridge, since no pack library vends a richer
// structured-URI type that also bridges to local paths.
package filename
