package channel

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"net"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/ssh"

	"sshhub/internal/retry"
)

func TestGrantedPort(t *testing.T) {
	echo := func(port uint32) []byte {
		return ssh.Marshal(&struct{ Port uint32 }{port})
	}

	tests := []struct {
		name      string
		requested int
		reply     []byte
		want      int
	}{
		{"concrete port ignores reply", 5432, echo(9999), 5432},
		{"zero port takes echoed port", 0, echo(42000), 42000},
		{"zero port with empty reply", 0, nil, 0},
		{"zero port with short reply", 0, []byte{0, 1}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := grantedPort(tt.requested, tt.reply); got != tt.want {
				t.Errorf("grantedPort(%d, %v) = %d, want %d", tt.requested, tt.reply, got, tt.want)
			}
		})
	}
}

// startForwardGrantingServer runs a minimal SSH server that accepts
// any client and answers tcpip-forward requests with the given granted
// port, the way a host answers a port-0 bind.
func startForwardGrantingServer(t *testing.T, grant uint32) *net.TCPAddr {
	t.Helper()

	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	signer, err := ssh.NewSignerFromKey(priv)
	if err != nil {
		t.Fatal(err)
	}
	conf := &ssh.ServerConfig{NoClientAuth: true}
	conf.AddHostKey(signer)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func(c net.Conn) {
				sconn, chans, reqs, err := ssh.NewServerConn(c, conf)
				if err != nil {
					c.Close()
					return
				}
				defer sconn.Close()
				go func() {
					for ch := range chans {
						ch.Reject(ssh.Prohibited, "not supported") //nolint:errcheck
					}
				}()
				for req := range reqs {
					switch req.Type {
					case "tcpip-forward":
						req.Reply(true, ssh.Marshal(&struct{ Port uint32 }{grant})) //nolint:errcheck
					case "cancel-tcpip-forward":
						req.Reply(true, nil) //nolint:errcheck
					default:
						if req.WantReply {
							req.Reply(false, nil) //nolint:errcheck
						}
					}
				}
			}(conn)
		}
	}()
	return ln.Addr().(*net.TCPAddr)
}

func TestRemoteForwardReportsGrantedPort(t *testing.T) {
	const granted = 42007
	addr := startForwardGrantingServer(t, granted)

	cfg := Config{
		Name: "rf",
		Host: "127.0.0.1",
		Port: addr.Port,
		User: "u",
		Auth: Auth{Type: AuthPassword, Password: "x"},
		Kind: RemoteForward{BindPort: 0, LocalHost: "127.0.0.1", LocalPort: 1},
	}
	policy := retry.Backoff{InitialDelay: 10 * time.Millisecond, MaxDelay: 10 * time.Millisecond}

	r := NewRunner(cfg, policy, zerolog.Nop(), nil)
	if err := r.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer r.Stop()

	// The runner must report the host-granted port, not the
	// requested zero.
	deadline := time.Now().Add(5 * time.Second)
	for r.BoundPort() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if got := r.BoundPort(); got != granted {
		t.Fatalf("BoundPort() = %d, want %d", got, granted)
	}
	if r.Phase() != PhaseActive {
		t.Errorf("Phase() = %v, want active", r.Phase())
	}
}

func TestForwardedTCPPayloadDecode(t *testing.T) {
	payload := forwardedTCPPayload{
		Addr:       "0.0.0.0",
		Port:       5432,
		OriginAddr: "192.0.2.7",
		OriginPort: 51000,
	}
	data := ssh.Marshal(&payload)

	var got forwardedTCPPayload
	if err := ssh.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got != payload {
		t.Errorf("round trip = %+v, want %+v", got, payload)
	}
}
