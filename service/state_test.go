package service

import "testing"

func TestStateStringRoundTrip(t *testing.T) {
	states := []State{Stopped, Starting, Running, Stopping, Failed}
	for _, s := range states {
		parsed, err := ParseState(s.String())
		if err != nil {
			t.Errorf("ParseState(%q) error = %v", s.String(), err)
			continue
		}
		if parsed != s {
			t.Errorf("ParseState(%q) = %v, want %v", s.String(), parsed, s)
		}
	}
}

func TestFailedRendersAsError(t *testing.T) {
	if Failed.String() != "Error" {
		t.Errorf("Failed.String() = %q, want %q", Failed.String(), "Error")
	}
}

func TestParseStateUnknown(t *testing.T) {
	if _, err := ParseState("Bogus"); err == nil {
		t.Error("ParseState should reject unknown state names")
	}
}
