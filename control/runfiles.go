package control

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	pidFileName  = "sshhub.pid"
	portFileName = "sshhub.port"
)

// PidFilePath returns the PID file location, beside the config file.
func PidFilePath(configPath string) string {
	return filepath.Join(filepath.Dir(configPath), pidFileName)
}

// PortFilePath returns the control port file location, beside the
// config file.
func PortFilePath(configPath string) string {
	return filepath.Join(filepath.Dir(configPath), portFileName)
}

// WriteRunFiles records the daemon's PID and control port next to the
// config file so CLI invocations can find the running instance.
func WriteRunFiles(configPath string, port int) error {
	pid := strconv.Itoa(os.Getpid())
	if err := os.WriteFile(PidFilePath(configPath), []byte(pid), 0o644); err != nil {
		return fmt.Errorf("writing pid file: %w", err)
	}
	if err := os.WriteFile(PortFilePath(configPath), []byte(strconv.Itoa(port)), 0o644); err != nil {
		return fmt.Errorf("writing port file: %w", err)
	}
	return nil
}

// RemoveRunFiles deletes the PID and port files.  Missing files are
// not an error.
func RemoveRunFiles(configPath string) {
	os.Remove(PidFilePath(configPath))
	os.Remove(PortFilePath(configPath))
}

// ReadPort returns the control port recorded by a running daemon.
func ReadPort(configPath string) (int, error) {
	data, err := os.ReadFile(PortFilePath(configPath))
	if err != nil {
		return 0, err
	}
	port, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || port <= 0 || port > 65535 {
		return 0, fmt.Errorf("malformed port file %s", PortFilePath(configPath))
	}
	return port, nil
}

// ReadPid returns the PID recorded by a running daemon.
func ReadPid(configPath string) (int, error) {
	data, err := os.ReadFile(PidFilePath(configPath))
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("malformed pid file %s", PidFilePath(configPath))
	}
	return pid, nil
}
