package output

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// Level orders message severity.
type Level int

const (
	Debug Level = iota
	Info
	Warning
	Error
	Fatal
)

func (l Level) String() string {
	switch l {
	case Debug:
		return "debug"
	case Info:
		return "info"
	case Warning:
		return "warning"
	case Error:
		return "error"
	case Fatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Module is a closed set of subsystem tags attached to every message.
type Module string

const (
	ModuleValidateInstallation Module = "validate-installation"
	ModuleUnpackPackage        Module = "unpack-package"
	ModuleConfigurePackage     Module = "configure-package"
	ModuleValidateRemoval      Module = "validate-removal"
	ModuleRemovePackage        Module = "remove-package"
	ModuleDeconfigurePackage   Module = "deconfigure-package"
	ModuleRunScript            Module = "run-script"
	ModuleRepository           Module = "repository"
	ModuleControl              Module = "control"
	ModuleField                Module = "field"
	ModuleTool                 Module = "tool"
)

// Message is one structured log record.
type Message struct {
	Level       Level
	Module      Module
	Package     string
	Action      string
	DebugBits   uint32
	Format      string
	Args        []string
}

// Render interpolates positional arguments (%1, %2, …) into Format.
func (m Message) Render() string {
	var b strings.Builder
	s := m.Format
	for i := 0; i < len(s); i++ {
		if s[i] == '%' && i+1 < len(s) {
			j := i + 1
			for j < len(s) && s[j] >= '0' && s[j] <= '9' {
				j++
			}
			if j > i+1 {
				n, err := strconv.Atoi(s[i+1 : j])
				if err == nil && n >= 1 && n <= len(m.Args) {
					b.WriteString(m.Args[n-1])
					i = j - 1
					continue
				}
			}
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// Sink receives every message regardless of debug filtering; it is
// responsible for archival logging.
type Sink interface {
	Receive(Message)
}

// SinkFunc adapts a plain function to the Sink interface.
type SinkFunc func(Message)

func (f SinkFunc) Receive(m Message) { f(m) }

var (
	mu          sync.Mutex
	sink        Sink
	errorCount  int
	debugBitmask uint32
)

// Install sets the process-wide sink, replacing any previous one.
func Install(s Sink) {
	mu.Lock()
	defer mu.Unlock()
	sink = s
}

// Release removes the process-wide sink.
func Release() {
	mu.Lock()
	defer mu.Unlock()
	sink = nil
}

// SetDebugBitmask controls which debug messages the rendering path
// (as opposed to the archival sink) considers significant.
func SetDebugBitmask(bits uint32) {
	mu.Lock()
	defer mu.Unlock()
	debugBitmask = bits
}

// ErrorCount returns the number of error/fatal messages emitted since
// the process started (or since ResetErrorCount was last called).
func ErrorCount() int {
	mu.Lock()
	defer mu.Unlock()
	return errorCount
}

// ResetErrorCount zeroes the error counter.
func ResetErrorCount() {
	mu.Lock()
	defer mu.Unlock()
	errorCount = 0
}

// Emit delivers m to the installed sink (if any) and updates the error
// counter. The sink receives every message unconditionally; callers
// doing interactive rendering should additionally consult ShouldRender
// for debug-level messages.
func Emit(m Message) {
	mu.Lock()
	s := sink
	if m.Level == Error || m.Level == Fatal {
		errorCount++
	}
	mu.Unlock()

	if s != nil {
		s.Receive(m)
	}
}

// ShouldRender reports whether a debug message with the given bitmask
// passes the current rendering filter. Non-debug messages always render.
func ShouldRender(m Message) bool {
	if m.Level != Debug {
		return true
	}
	mu.Lock()
	bits := debugBitmask
	mu.Unlock()
	if bits == 0 {
		return false
	}
	return m.DebugBits&bits != 0
}

// Logf is a convenience that builds and emits a Message.
func Logf(level Level, module Module, pkg, action, format string, args ...string) {
	Emit(Message{Level: level, Module: module, Package: pkg, Action: action, Format: format, Args: args})
}

// fmtArgs stringifies a list of arbitrary values for use as Message.Args.
func fmtArgs(vals ...interface{}) []string {
	out := make([]string, len(vals))
	for i, v := range vals {
		out[i] = fmt.Sprint(v)
	}
	return out
}
