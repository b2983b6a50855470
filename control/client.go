package control

import (
	"io"
	"net"
	"strings"
	"time"

	hberr "sshhub/internal/errors"
	"sshhub/service"
	"sshhub/util"
)

const dialTimeout = 2 * time.Second

// QueryStatus asks a running daemon for its status.  Returns
// ErrNoDaemon when no run files exist or nothing answers on the
// recorded port.
func QueryStatus(configPath string) (service.Snapshot, error) {
	body, err := roundTrip(configPath, "status\n")
	if err != nil {
		return service.Snapshot{}, err
	}
	snap, err := DecodeStatus(body)
	if err != nil {
		// A malformed response counts as no daemon, same as a
		// missing run file; the caller derives a static status.
		return service.Snapshot{}, hberr.ErrNoDaemon
	}
	return snap, nil
}

// SendStop asks a running daemon to shut down.
func SendStop(configPath string) error {
	body, err := roundTrip(configPath, "stop\n")
	if err != nil {
		return err
	}
	if strings.TrimSpace(body) != "ok" {
		return hberr.Servicef("unexpected stop response %q", body)
	}
	return nil
}

func roundTrip(configPath, request string) (string, error) {
	port, err := ReadPort(configPath)
	if err != nil {
		return "", hberr.ErrNoDaemon
	}
	addr := util.FormatAddr("127.0.0.1", port)
	conn, err := net.DialTimeout("tcp", addr, dialTimeout)
	if err != nil {
		return "", hberr.ErrNoDaemon
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(dialTimeout))

	if _, err := io.WriteString(conn, request); err != nil {
		return "", hberr.WrapNet("write", addr, err)
	}
	if tc, ok := conn.(*net.TCPConn); ok {
		tc.CloseWrite()
	}
	body, err := io.ReadAll(conn)
	if err != nil {
		return "", hberr.WrapNet("read", addr, err)
	}
	return string(body), nil
}
