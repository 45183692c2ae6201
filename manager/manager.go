package manager

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/m2osw/wpkg-go/control"
	"github.com/m2osw/wpkg-go/dependency"
	"github.com/m2osw/wpkg-go/field"
	"github.com/m2osw/wpkg-go/filename"
	"github.com/m2osw/wpkg-go/memfile"
	"github.com/m2osw/wpkg-go/pkgobj"
	"github.com/m2osw/wpkg-go/progress"
	"github.com/m2osw/wpkg-go/wpkgerr"
)

// lockFileName and coreCtrlName are the two non-package entries that
// live directly under the database path (spec.md §6.1).
const (
	lockFileName = "lock"
	coreCtrlName = "core.ctrl"
)

// Manager is a single package database: an admindir rooted at
// DatabasePath, the installation target at InstPath, and the target
// root filesystem at RootPath. One Manager is meant to be used from a
// single goroutine at a time, same as the teacher's NewRepositoryFromDir
// callers never share a *Repository across goroutines.
type Manager struct {
	rootPath     string
	instPath     string
	databasePath string

	runner   ScriptRunner
	progress *progress.Stack

	lockPath string
	lockOp   string
}

// New returns a Manager with no paths configured; callers must call the
// Set*Path methods before any operation that touches the filesystem.
func New() *Manager {
	return &Manager{runner: execRunner{}, progress: progress.New()}
}

// Progress returns the manager's transaction progress stack, for UIs
// that want to report file-extraction progress during Unpack.
func (m *Manager) Progress() *progress.Stack { return m.progress }

// SetRootPath records the target root filesystem, returned by RootPath.
// No other Manager operation reads it.
func (m *Manager) SetRootPath(path string) { m.rootPath = path }

// SetInstPath sets the directory packaged files are unpacked under.
func (m *Manager) SetInstPath(path string) { m.instPath = path }

// SetDatabasePath sets the admindir: where the lock file, core.ctrl, and
// per-package directories live.
func (m *Manager) SetDatabasePath(path string) { m.databasePath = path }

// SetScriptRunner overrides the default os/exec-based maintainer script
// runner, e.g. for testing.
func (m *Manager) SetScriptRunner(r ScriptRunner) { m.runner = r }

func (m *Manager) RootPath() string     { return m.rootPath }
func (m *Manager) InstPath() string     { return m.instPath }
func (m *Manager) DatabasePath() string { return m.databasePath }

// dbFilename resolves a child of the database path.
func (m *Manager) dbFilename(children ...string) (filename.Filename, error) {
	f, err := filename.Parse(m.databasePath)
	if err != nil {
		return filename.Filename{}, err
	}
	for _, c := range children {
		f, err = f.AppendChild(c)
		if err != nil {
			return filename.Filename{}, err
		}
	}
	return f, nil
}

func (m *Manager) packageDir(name string) (filename.Filename, error) {
	return m.dbFilename(name)
}

// Lock acquires the database's single exclusive transaction lock,
// recording op as the operation in progress. A second Lock call, by
// this or any other Manager sharing the same database path, fails with
// a wpkgerr.Locked error naming the op already holding it.
func (m *Manager) Lock(op string) error {
	lf, err := m.dbFilename(lockFileName)
	if err != nil {
		return err
	}
	path := lf.FullPath(true)

	if existing, err := os.ReadFile(path); err == nil {
		return wpkgerr.New(wpkgerr.Locked, fmt.Sprintf("database is locked by %q", strings.TrimSpace(string(existing))))
	} else if !os.IsNotExist(err) {
		return wpkgerr.Wrap(wpkgerr.IoError, "reading lock file", err)
	}

	if err := os.MkdirAll(m.databasePath, 0755); err != nil {
		return wpkgerr.Wrap(wpkgerr.IoError, "creating database directory", err)
	}
	if err := os.WriteFile(path, []byte(op), 0644); err != nil {
		return wpkgerr.Wrap(wpkgerr.IoError, "writing lock file", err)
	}
	m.lockPath = path
	m.lockOp = op
	return nil
}

// Unlock releases a lock acquired by Lock. Unlocking when not locked is
// a no-op, matching the teacher's idempotent Close-style cleanup.
func (m *Manager) Unlock() error {
	if m.lockPath == "" {
		return nil
	}
	err := os.Remove(m.lockPath)
	m.lockPath = ""
	m.lockOp = ""
	if err != nil && !os.IsNotExist(err) {
		return wpkgerr.Wrap(wpkgerr.IoError, "removing lock file", err)
	}
	return nil
}

// LoadPackage opens a .deb file from disk and parses it into a
// pkgobj.Package, ready to be passed to Unpack.
func (m *Manager) LoadPackage(path string) (*pkgobj.Package, error) {
	r, err := os.Open(path)
	if err != nil {
		return nil, wpkgerr.Wrap(wpkgerr.IoError, "opening package file", err)
	}
	defer r.Close()
	return pkgobj.LoadFromDeb(r)
}

// ListInstalledPackages returns the names of every package with an
// entry under the database path, in sorted order.
func (m *Manager) ListInstalledPackages() ([]string, error) {
	entries, err := os.ReadDir(m.databasePath)
	if err != nil {
		return nil, wpkgerr.Wrap(wpkgerr.IoError, "scanning database path", err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// PackageStatus reads the recorded state of an installed package.
func (m *Manager) PackageStatus(name string) (State, error) {
	dir, err := m.packageDir(name)
	if err != nil {
		return 0, err
	}
	statusFile, err := dir.AppendChild("wpkg-status")
	if err != nil {
		return 0, err
	}
	data, err := os.ReadFile(statusFile.FullPath(true))
	if err != nil {
		if os.IsNotExist(err) {
			return NotInstalled, nil
		}
		return 0, wpkgerr.Wrap(wpkgerr.IoError, "reading wpkg-status", err)
	}
	ff := field.New()
	if err := field.Parse(strings.NewReader(string(data)), ff); err != nil {
		return 0, err
	}
	raw, err := ff.Get("X-Status")
	if err != nil {
		return 0, err
	}
	st, ok := parseState(raw)
	if !ok {
		return 0, wpkgerr.New(wpkgerr.InvalidField, fmt.Sprintf("unrecognized X-Status %q for %s", raw, name))
	}
	return st, nil
}

// writeStatus records name's current state in its admindir entry.
func (m *Manager) writeStatus(name string, st State) error {
	dir, err := m.packageDir(name)
	if err != nil {
		return err
	}
	if err := dir.MkdirP(0755); err != nil {
		return wpkgerr.Wrap(wpkgerr.IoError, "creating package directory", err)
	}
	statusFile, err := dir.AppendChild("wpkg-status")
	if err != nil {
		return err
	}
	body := fmt.Sprintf("X-Status: %s\n", st.String())
	if err := os.WriteFile(statusFile.FullPath(true), []byte(body), 0644); err != nil {
		return wpkgerr.Wrap(wpkgerr.IoError, "writing wpkg-status", err)
	}
	return nil
}

// CoreControl reads the database's one-time system-wide control fields
// (core.ctrl), if present. A database with no core.ctrl yet returns an
// empty, freshly-verified control.File.
func (m *Manager) CoreControl() (*control.File, error) {
	f, err := m.dbFilename(coreCtrlName)
	if err != nil {
		return nil, err
	}
	cf := control.New()
	data, err := os.ReadFile(f.FullPath(true))
	if err != nil {
		if os.IsNotExist(err) {
			return cf, nil
		}
		return nil, wpkgerr.Wrap(wpkgerr.IoError, "reading core.ctrl", err)
	}
	if err := field.Parse(strings.NewReader(string(data)), cf.File); err != nil {
		return nil, err
	}
	return cf, nil
}

// readControlFile parses the stored control file for an installed
// package.
func (m *Manager) readControlFile(name string) (*control.File, error) {
	dir, err := m.packageDir(name)
	if err != nil {
		return nil, err
	}
	controlPath, err := dir.AppendChild("control")
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(controlPath.FullPath(true))
	if err != nil {
		return nil, wpkgerr.Wrap(wpkgerr.IoError, "reading control file", err)
	}
	cf := control.New()
	if err := field.Parse(strings.NewReader(string(data)), cf.File); err != nil {
		return nil, err
	}
	return cf, nil
}

// GetField returns a single field's resolved value for an installed
// package.
func (m *Manager) GetField(name, fieldName string) (string, error) {
	cf, err := m.readControlFile(name)
	if err != nil {
		return "", err
	}
	return cf.Get(fieldName)
}

// FieldIsDefined reports whether an installed package's control file
// carries fieldName.
func (m *Manager) FieldIsDefined(name, fieldName string) bool {
	cf, err := m.readControlFile(name)
	if err != nil {
		return false
	}
	return cf.HasField(fieldName)
}

// GetDescription splits an installed package's Description field into
// its short (first line) and long (remaining lines) parts.
func (m *Manager) GetDescription(name string) (short, long string, err error) {
	raw, err := m.GetField(name, control.Description)
	if err != nil {
		return "", "", err
	}
	lines := strings.SplitN(raw, "\n", 2)
	short = lines[0]
	if len(lines) > 1 {
		long = lines[1]
	}
	return short, long, nil
}

// GetDependencies parses one of an installed package's dependency
// fields (Depends, Pre-Depends, Conflicts, ...) into an Expression.
func (m *Manager) GetDependencies(name, fieldName string) (dependency.Expression, error) {
	raw, err := m.GetField(name, fieldName)
	if err != nil {
		if !m.FieldIsDefined(name, fieldName) {
			return dependency.Expression{}, nil
		}
		return dependency.Expression{}, err
	}
	if raw == "" {
		return dependency.Expression{}, nil
	}
	return dependency.Parse(raw)
}

// GetControlFile returns one of an installed package's control-tar
// members (e.g. "postinst", "md5sums") as a MemoryFile, optionally
// compressed.
func (m *Manager) GetControlFile(name, dataFilename string, compress bool) (*memfile.MemoryFile, error) {
	dir, err := m.packageDir(name)
	if err != nil {
		return nil, err
	}
	member, err := dir.AppendChild(dataFilename)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(member.FullPath(true))
	if err != nil {
		return nil, wpkgerr.Wrap(wpkgerr.IoError, "reading control member", err)
	}
	mf := memfile.New(memfile.FormatPlain)
	mf.SetBytes(data)
	if compress {
		return mf.Compress(memfile.FormatGz)
	}
	return mf, nil
}

// IsConffile reports whether path is a configuration file belonging to
// the installed package name.
func (m *Manager) IsConffile(name, path string) bool {
	dir, err := m.packageDir(name)
	if err != nil {
		return false
	}
	confPath, err := dir.AppendChild("conffiles")
	if err != nil {
		return false
	}
	data, err := os.ReadFile(confPath.FullPath(true))
	if err != nil {
		return false
	}
	for _, line := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(line) == path {
			return true
		}
	}
	return false
}
