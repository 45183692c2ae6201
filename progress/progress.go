package progress

import (
	"fmt"
	"sync"

	"github.com/m2osw/wpkg-go/output"
)

// Record is one entry on the progress stack.
type Record struct {
	What    string
	Current uint64
	Max     uint64
}

// Stack is a LIFO sequence of progress records, safe for concurrent use.
type Stack struct {
	mu      sync.Mutex
	records []Record
}

// New returns an empty progress stack.
func New() *Stack {
	return &Stack{}
}

// Scope is a handle returned by Push; calling Pop on it removes exactly
// the record it was given for, regardless of further pushes, as long as
// scopes are popped in LIFO order (a violation panics, since it
// indicates a programming error in the caller, not a representable
// runtime condition).
type Scope struct {
	stack *Stack
	depth int
}

// Push records a new entry and returns a Scope used to pop it.
func (s *Stack) Push(what string, max uint64) *Scope {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, Record{What: what, Max: max})
	output.Logf(output.Debug, output.ModuleTool, "", "progress", "%1", fmt.Sprintf("+%s (0/%d)", what, max))
	return &Scope{stack: s, depth: len(s.records)}
}

// Update sets the current value of the topmost record in this scope.
func (sc *Scope) Update(current uint64) {
	sc.stack.mu.Lock()
	defer sc.stack.mu.Unlock()
	if sc.depth-1 < len(sc.stack.records) {
		r := &sc.stack.records[sc.depth-1]
		r.Current = current
		output.Logf(output.Debug, output.ModuleTool, "", "progress", "%1", fmt.Sprintf("%s (%d/%d)", r.What, current, r.Max))
	}
}

// Pop removes this scope's record. It must be called in LIFO order;
// popping out of order panics.
func (sc *Scope) Pop() {
	sc.stack.mu.Lock()
	defer sc.stack.mu.Unlock()
	if len(sc.stack.records) != sc.depth {
		panic("progress: Pop called out of LIFO order")
	}
	what := sc.stack.records[sc.depth-1].What
	sc.stack.records = sc.stack.records[:sc.depth-1]
	output.Logf(output.Debug, output.ModuleTool, "", "progress", "%1", fmt.Sprintf("-%s", what))
}

// Snapshot returns a copy of the current stack, bottom first.
func (s *Stack) Snapshot() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Record, len(s.records))
	copy(out, s.records)
	return out
}

// Depth returns the number of records currently on the stack.
func (s *Stack) Depth() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}
