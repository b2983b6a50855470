package service

import "fmt"

// State is the lifecycle phase of the hub service.
type State int

const (
	// Stopped means no channels are running.
	Stopped State = iota
	// Starting means pre-flight checks and channel launch are in
	// progress.
	Starting
	// Running means at least one channel supervisor is active.
	Running
	// Stopping means a shutdown has been requested.
	Stopping
	// Failed means the last start attempt brought up no channels.
	Failed
)

// String renders the state for the control plane.  Failed reports as
// "Error" so clients see the condition rather than an internal name.
func (s State) String() string {
	switch s {
	case Stopped:
		return "Stopped"
	case Starting:
		return "Starting"
	case Running:
		return "Running"
	case Stopping:
		return "Stopping"
	case Failed:
		return "Error"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// ParseState is the inverse of String.
func ParseState(s string) (State, error) {
	switch s {
	case "Stopped":
		return Stopped, nil
	case "Starting":
		return Starting, nil
	case "Running":
		return Running, nil
	case "Stopping":
		return Stopping, nil
	case "Error":
		return Failed, nil
	default:
		return Stopped, fmt.Errorf("unknown service state %q", s)
	}
}

// Snapshot is a point-in-time view of the service for status queries.
type Snapshot struct {
	State          State
	ActiveChannels int
	TotalChannels  int
}
