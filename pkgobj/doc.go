// Package pkgobj represents one Debian-compatible package: its control
// file, maintainer scripts, and payload file list, however it was
// loaded (a .deb archive on disk, or an unpacked admindir entry).
//
// Grounded directly on deb/package.go's Package/NewPackage/WriteTo/
// Digest, adapted to hold a control.File instead of a flat Metadata
// struct, to read/write through the memfile archive codec instead of
// archive/tar and github.com/blakesmith/ar directly, and to answer
// HasControlFile/IsConffile/ValidateFields per spec.md §4.7.
package pkgobj
