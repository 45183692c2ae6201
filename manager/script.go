package manager

import (
	"context"
	"os"
	"os/exec"

	"github.com/m2osw/wpkg-go/filename"
	"github.com/m2osw/wpkg-go/output"
	"github.com/m2osw/wpkg-go/wpkgerr"
)

// ScriptRunner executes a maintainer script (preinst, postinst, prerm,
// postrm). body is the script's full contents; args are the arguments
// the state machine passes per spec.md §4.8 (e.g. "configure",
// "remove"). An empty body is a no-op success, matching dpkg's
// behavior when a package carries no such script.
type ScriptRunner interface {
	Run(ctx context.Context, pkgName, script, body string, args ...string) error
}

// execRunner is the default ScriptRunner: it writes body to a scoped
// temporary file and executes it with os/exec, the same mechanism the
// teacher's own integration test uses to shell out to dpkg-deb.
type execRunner struct{}

func (execRunner) Run(ctx context.Context, pkgName, script, body string, args ...string) error {
	if body == "" {
		return nil
	}

	output.Logf(output.Debug, output.ModuleRunScript, pkgName, script, "running %1 for %2", script, pkgName)

	tmp, err := os.CreateTemp("", "wpkg-"+script+"-*")
	if err != nil {
		return wpkgerr.Wrap(wpkgerr.IoError, "creating script temp file", err)
	}
	path := tmp.Name()
	tf := filename.NewTemporary(mustParseFilename(path))
	defer tf.Close()

	if _, err := tmp.WriteString(body); err != nil {
		tmp.Close()
		return wpkgerr.Wrap(wpkgerr.IoError, "writing script temp file", err)
	}
	if err := tmp.Close(); err != nil {
		return wpkgerr.Wrap(wpkgerr.IoError, "closing script temp file", err)
	}
	if err := os.Chmod(path, 0755); err != nil {
		return wpkgerr.Wrap(wpkgerr.IoError, "marking script executable", err)
	}

	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Env = append(os.Environ(), "WPKG_PACKAGE="+pkgName)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return wpkgerr.Wrap(wpkgerr.IoError, script+" failed: "+string(out), err)
	}
	return nil
}

// mustParseFilename wraps os.CreateTemp's path, which is always a valid
// absolute OS path, so Parse cannot fail in practice.
func mustParseFilename(path string) filename.Filename {
	f, err := filename.Parse(path)
	if err != nil {
		return filename.Filename{}
	}
	return f
}
