package output

import "testing"

func TestRenderPositionalArgs(t *testing.T) {
	m := Message{Format: "copying %1 to %2", Args: []string{"a.txt", "b.txt"}}
	if got, want := m.Render(), "copying a.txt to b.txt"; got != want {
		t.Errorf("Render() = %q, want %q", got, want)
	}
}

func TestRenderOutOfRangeArgLeftLiteral(t *testing.T) {
	m := Message{Format: "value %3", Args: []string{"a"}}
	if got, want := m.Render(), "value %3"; got != want {
		t.Errorf("Render() = %q, want %q", got, want)
	}
}

func TestEmitIncrementsErrorCounter(t *testing.T) {
	ResetErrorCount()
	Emit(Message{Level: Info, Format: "fine"})
	if ErrorCount() != 0 {
		t.Errorf("info message should not count as error")
	}
	Emit(Message{Level: Error, Format: "bad"})
	Emit(Message{Level: Fatal, Format: "worse"})
	if ErrorCount() != 2 {
		t.Errorf("ErrorCount() = %d, want 2", ErrorCount())
	}
	ResetErrorCount()
}

func TestSinkReceivesEveryMessage(t *testing.T) {
	var received []Message
	Install(SinkFunc(func(m Message) { received = append(received, m) }))
	defer Release()

	Emit(Message{Level: Debug, Format: "d"})
	Emit(Message{Level: Info, Format: "i"})
	if len(received) != 2 {
		t.Fatalf("expected 2 messages delivered to sink, got %d", len(received))
	}
}

func TestShouldRenderFiltersDebugByBitmask(t *testing.T) {
	SetDebugBitmask(0x2)
	defer SetDebugBitmask(0)

	if ShouldRender(Message{Level: Debug, DebugBits: 0x1}) {
		t.Errorf("message with non-matching debug bits should not render")
	}
	if !ShouldRender(Message{Level: Debug, DebugBits: 0x2}) {
		t.Errorf("message with matching debug bits should render")
	}
	if !ShouldRender(Message{Level: Info}) {
		t.Errorf("non-debug messages always render")
	}
}
