package service

import (
	"errors"
	"fmt"
	"net"
	"syscall"
	"time"

	hberr "sshhub/internal/errors"
	"sshhub/util"
)

const probeTimeout = 2 * time.Second

// PortAvailable reports whether a loopback listener can bind the port.
// Only an address-in-use condition counts as unavailable; permission
// errors and other failures are surfaced as-is so they are not
// mistaken for a conflicting service.
func PortAvailable(port int) (bool, error) {
	l, err := net.Listen("tcp", util.FormatAddr("127.0.0.1", port))
	if err != nil {
		if errors.Is(err, syscall.EADDRINUSE) {
			return false, nil
		}
		return false, hberr.WrapNet("listen", util.FormatAddr("127.0.0.1", port), err)
	}
	l.Close()
	return true, nil
}

// CheckPorts verifies every port can be bound, returning one error per
// conflict.  A non-conflict probe failure aborts the scan.
func CheckPorts(ports []int) []error {
	var errs []error
	for _, p := range ports {
		ok, err := PortAvailable(p)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if !ok {
			errs = append(errs, fmt.Errorf("port %d is already in use", p))
		}
	}
	return errs
}

// TestConnection dials addr with a short timeout.  Used by the
// connectivity test command to probe channel endpoints without
// establishing an SSH session.
func TestConnection(addr string) error {
	conn, err := net.DialTimeout("tcp", addr, probeTimeout)
	if err != nil {
		return hberr.WrapNet("dial", addr, err)
	}
	conn.Close()
	return nil
}
