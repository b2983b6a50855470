package control

import (
	"context"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"sshhub/config"
	hberr "sshhub/internal/errors"
	"sshhub/service"
	"sshhub/util"
)

func startTestServer(t *testing.T) (configPath string, done chan struct{}, cancel context.CancelFunc) {
	t.Helper()
	configPath = filepath.Join(t.TempDir(), "sshhub.toml")

	cfg := &config.AppConfig{
		Channels: []config.ChannelSpec{
			{Name: "a", Hostname: "web"},
			{Name: "b", Hostname: "web"},
		},
	}
	svc := service.New(cfg, zerolog.Nop(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	srv := NewServer(svc, zerolog.Nop(), configPath, cancel)
	if err := srv.Listen(); err != nil {
		cancel()
		t.Fatalf("Listen() = %v", err)
	}

	done = make(chan struct{})
	go func() {
		defer close(done)
		if err := srv.Serve(ctx); err != nil {
			t.Errorf("Serve() = %v", err)
		}
	}()
	return configPath, done, cancel
}

func TestServerWritesRunFiles(t *testing.T) {
	configPath, done, cancel := startTestServer(t)
	defer func() { cancel(); <-done }()

	pid, err := ReadPid(configPath)
	if err != nil {
		t.Fatalf("ReadPid() = %v", err)
	}
	if pid != os.Getpid() {
		t.Errorf("pid file = %d, want %d", pid, os.Getpid())
	}
	if _, err := ReadPort(configPath); err != nil {
		t.Fatalf("ReadPort() = %v", err)
	}
}

func TestServerAnswersStatus(t *testing.T) {
	configPath, done, cancel := startTestServer(t)
	defer func() { cancel(); <-done }()

	snap, err := QueryStatus(configPath)
	if err != nil {
		t.Fatalf("QueryStatus() = %v", err)
	}
	if snap.State != service.Stopped || snap.TotalChannels != 2 {
		t.Errorf("snapshot = %+v, want Stopped 0/2", snap)
	}
}

func TestServerStopRemovesRunFiles(t *testing.T) {
	configPath, done, cancel := startTestServer(t)
	defer cancel()

	if err := SendStop(configPath); err != nil {
		t.Fatalf("SendStop() = %v", err)
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down after stop request")
	}

	// Run files disappear once the accept loop exits.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := os.Stat(PortFilePath(configPath)); os.IsNotExist(err) {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if _, err := os.Stat(PortFilePath(configPath)); !os.IsNotExist(err) {
		t.Error("port file still present after shutdown")
	}
	if _, err := os.Stat(PidFilePath(configPath)); !os.IsNotExist(err) {
		t.Error("pid file still present after shutdown")
	}
}

func TestServerRawProtocol(t *testing.T) {
	configPath, done, cancel := startTestServer(t)
	defer func() { cancel(); <-done }()

	port, err := ReadPort(configPath)
	if err != nil {
		t.Fatal(err)
	}

	// Mixed case and surrounding whitespace are accepted.
	conn, err := net.Dial("tcp", util.FormatAddr("127.0.0.1", port))
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	io.WriteString(conn, "  STATUS  \n")
	conn.(*net.TCPConn).CloseWrite()

	body, err := io.ReadAll(conn)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(body), `state = "`) {
		t.Errorf("response = %q, want status body", body)
	}
	if strings.HasSuffix(string(body), "\n") {
		t.Error("status body must not end with a newline")
	}
}

func TestClientNoDaemon(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "sshhub.toml")
	if _, err := QueryStatus(configPath); !hberr.Is(err, hberr.ErrNoDaemon) {
		t.Errorf("QueryStatus(no run files) = %v, want ErrNoDaemon", err)
	}
	if err := SendStop(configPath); !hberr.Is(err, hberr.ErrNoDaemon) {
		t.Errorf("SendStop(no run files) = %v, want ErrNoDaemon", err)
	}
}

func TestClientNoDaemonStalePortFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "sshhub.toml")
	port, err := util.FindFreePort()
	if err != nil {
		t.Fatal(err)
	}
	if err := WriteRunFiles(configPath, port); err != nil {
		t.Fatal(err)
	}
	// Nothing listens on the recorded port.
	if _, err := QueryStatus(configPath); !hberr.Is(err, hberr.ErrNoDaemon) {
		t.Errorf("QueryStatus(stale port) = %v, want ErrNoDaemon", err)
	}
}
