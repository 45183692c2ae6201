// Package memfile implements the in-memory typed byte buffer and
// archive codec: ar, tar, zip, and the proprietary wpkgar index format,
// layered with gzip, bzip2, lzma, and xz compression, plus transparent
// compression-fallback decoding with original-format tracking for
// later re-emission.
//
// Grounded on deb/package.go's buildDataArchive/buildControlArchive
// (tar+gzip assembly via archive/tar and compress/gzip) and NewPackage
// (ar.NewReader walk with per-member compression sniffing by file
// extension), generalized from "build/read exactly a .deb's two tar
// members" to "read/write any of the formats memfile recognizes."
// archive/zip (stdlib), github.com/dsnet/compress/bzip2 (read+write
// bzip2, since stdlib compress/bzip2 is decode-only), and
// github.com/ulikunitz/xz (+xz/lzma) extend the teacher's gzip-only
// compression layer to the full format list spec.md §3.2 names.
package memfile
