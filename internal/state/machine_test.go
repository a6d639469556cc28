package state

import "testing"

func TestMachineStartStop(t *testing.T) {
	m := NewMachine(nil)

	if m.Current() != StateIdle {
		t.Fatalf("expected idle, got %s", m.Current())
	}
	if m.Recording() {
		t.Fatal("new machine should not be recording")
	}

	if err := m.Trigger(EventStartTrip); err != nil {
		t.Fatalf("start trip: %v", err)
	}
	if !m.Recording() {
		t.Fatal("expected recording after start")
	}

	if err := m.Trigger(EventStopTrip); err != nil {
		t.Fatalf("stop trip: %v", err)
	}
	if m.Recording() {
		t.Fatal("expected idle after stop")
	}
}

func TestMachineRejectsInvalidTransitions(t *testing.T) {
	m := NewMachine(nil)

	if err := m.Trigger(EventStopTrip); err == nil {
		t.Fatal("stop while idle should fail")
	}

	if err := m.Trigger(EventStartTrip); err != nil {
		t.Fatalf("start trip: %v", err)
	}
	if err := m.Trigger(EventStartTrip); err == nil {
		t.Fatal("start while recording should fail")
	}
}

func TestMachineOnChangeCallback(t *testing.T) {
	var transitions []string
	m := NewMachine(func(from, to string) {
		transitions = append(transitions, from+"->"+to)
	})

	if err := m.Trigger(EventStartTrip); err != nil {
		t.Fatalf("start trip: %v", err)
	}
	if err := m.Trigger(EventStopTrip); err != nil {
		t.Fatalf("stop trip: %v", err)
	}

	if len(transitions) != 2 {
		t.Fatalf("expected 2 transitions, got %v", transitions)
	}
	if transitions[0] != "idle->recording" || transitions[1] != "recording->idle" {
		t.Fatalf("unexpected transitions: %v", transitions)
	}
}

func TestMachineCan(t *testing.T) {
	m := NewMachine(nil)

	if !m.Can(EventStartTrip) {
		t.Fatal("idle machine should allow start")
	}
	if m.Can(EventStopTrip) {
		t.Fatal("idle machine should not allow stop")
	}
}
