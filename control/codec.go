// Package control implements the loopback TCP control plane: a tiny
// line protocol the CLI uses to query or stop a running daemon, plus
// the run files that advertise the daemon's PID and control port.
package control

import (
	"fmt"
	"strconv"
	"strings"

	"sshhub/service"
)

// EncodeStatus renders a status snapshot in the wire format.  Three
// lines, key = value, no trailing newline after the last line.
func EncodeStatus(s service.Snapshot) string {
	return fmt.Sprintf("state = %q\nactive_channels = %d\ntotal_channels = %d",
		s.State.String(), s.ActiveChannels, s.TotalChannels)
}

// DecodeStatus parses a status response.  A trailing newline is
// tolerated.
func DecodeStatus(body string) (service.Snapshot, error) {
	var snap service.Snapshot
	lines := strings.Split(strings.TrimRight(body, "\n"), "\n")
	if len(lines) != 3 {
		return snap, fmt.Errorf("malformed status response: %d lines", len(lines))
	}
	for _, line := range lines {
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return snap, fmt.Errorf("malformed status line %q", line)
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		switch key {
		case "state":
			name, err := strconv.Unquote(value)
			if err != nil {
				return snap, fmt.Errorf("malformed state value %q", value)
			}
			st, err := service.ParseState(name)
			if err != nil {
				return snap, err
			}
			snap.State = st
		case "active_channels":
			n, err := strconv.Atoi(value)
			if err != nil {
				return snap, fmt.Errorf("malformed active_channels value %q", value)
			}
			snap.ActiveChannels = n
		case "total_channels":
			n, err := strconv.Atoi(value)
			if err != nil {
				return snap, fmt.Errorf("malformed total_channels value %q", value)
			}
			snap.TotalChannels = n
		default:
			return snap, fmt.Errorf("unknown status key %q", key)
		}
	}
	return snap, nil
}
