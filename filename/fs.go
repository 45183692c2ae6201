package filename

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/m2osw/wpkg-go/wpkgerr"
)

// Exists reports whether the local path named by f exists.
func (f Filename) Exists() bool {
	_, err := os.Lstat(f.FullPath(true))
	return err == nil
}

// IsDir reports whether f names a directory.
func (f Filename) IsDir() bool {
	info, err := os.Stat(f.FullPath(true))
	return err == nil && info.IsDir()
}

// IsReg reports whether f names a regular file.
func (f Filename) IsReg() bool {
	info, err := os.Stat(f.FullPath(true))
	return err == nil && info.Mode().IsRegular()
}

// Stat follows symlinks; Lstat does not. Both wrap filesystem errors as
// wpkgerr.IoError.
func (f Filename) Stat() (os.FileInfo, error) {
	info, err := os.Stat(f.FullPath(true))
	if err != nil {
		return nil, wpkgerr.Wrap(wpkgerr.IoError, "stat", err)
	}
	return info, nil
}

func (f Filename) Lstat() (os.FileInfo, error) {
	info, err := os.Lstat(f.FullPath(true))
	if err != nil {
		return nil, wpkgerr.Wrap(wpkgerr.IoError, "lstat", err)
	}
	return info, nil
}

// MkdirP creates f and any missing parents.
func (f Filename) MkdirP(mode os.FileMode) error {
	if err := os.MkdirAll(f.FullPath(true), mode); err != nil {
		return wpkgerr.Wrap(wpkgerr.IoError, "mkdir_p", err)
	}
	return nil
}

// Unlink removes a single file.
func (f Filename) Unlink() error {
	if err := os.Remove(f.FullPath(true)); err != nil {
		return wpkgerr.Wrap(wpkgerr.IoError, "unlink", err)
	}
	return nil
}

// UnlinkRF removes f recursively, ignoring a not-exists error.
func (f Filename) UnlinkRF() error {
	if err := os.RemoveAll(f.FullPath(true)); err != nil {
		return wpkgerr.Wrap(wpkgerr.IoError, "unlink_rf", err)
	}
	return nil
}

// Symlink creates a symlink at f pointing at target.
func (f Filename) Symlink(target string) error {
	if err := os.Symlink(target, f.FullPath(true)); err != nil {
		return wpkgerr.Wrap(wpkgerr.IoError, "symlink", err)
	}
	return nil
}

// Rename moves f to dest.
func (f Filename) Rename(dest Filename) error {
	if err := os.Rename(f.FullPath(true), dest.FullPath(true)); err != nil {
		return wpkgerr.Wrap(wpkgerr.IoError, "rename", err)
	}
	return nil
}

// OSRealPath canonicalizes f via the underlying OS (resolving symlinks
// and "." / ".." components).
func (f Filename) OSRealPath() (Filename, error) {
	real, err := filepath.EvalSymlinks(f.FullPath(true))
	if err != nil {
		return Filename{}, wpkgerr.Wrap(wpkgerr.IoError, "os_real_path", err)
	}
	out, err := Parse(real)
	if err != nil {
		return Filename{}, wpkgerr.Wrap(wpkgerr.Compatibility, fmt.Sprintf("real path %q not representable", real), err)
	}
	return out, nil
}
