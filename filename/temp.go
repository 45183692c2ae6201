package filename

import "sync/atomic"

// keepTemporary is the global keep-flag: when set, Temporary.Close no
// longer removes the underlying path. Go has no destructors, so the
// "on destruction" lifecycle from spec.md §3.1 is modeled as an
// explicit Close, the idiom the teacher uses for its own io.Closer
// wrappers.
var keepTemporary int32

// SetKeepTemporary controls whether Temporary.Close removes the
// filesystem path it wraps.
func SetKeepTemporary(keep bool) {
	if keep {
		atomic.StoreInt32(&keepTemporary, 1)
	} else {
		atomic.StoreInt32(&keepTemporary, 0)
	}
}

// Temporary wraps a Filename whose backing path is removed on Close
// unless the global keep-flag is set.
type Temporary struct {
	Filename
	closed bool
}

// NewTemporary wraps f as a scoped temporary filename.
func NewTemporary(f Filename) *Temporary {
	return &Temporary{Filename: f}
}

// Close removes the underlying path (recursively) unless the keep-flag
// is set. Idempotent.
func (t *Temporary) Close() error {
	if t.closed {
		return nil
	}
	t.closed = true
	if atomic.LoadInt32(&keepTemporary) != 0 {
		return nil
	}
	return t.Filename.UnlinkRF()
}
