package control

import (
	"bufio"
	"context"
	"io"
	"net"
	"strings"
	"time"

	"github.com/rs/zerolog"

	hberr "sshhub/internal/errors"
	"sshhub/service"
)

const requestTimeout = 5 * time.Second

// Server answers status and stop requests from the CLI over a
// loopback TCP socket.  The protocol is one request line per
// connection: "status" returns the snapshot body, "stop" acknowledges
// with "ok" and triggers daemon shutdown.
type Server struct {
	svc        *service.Service
	log        zerolog.Logger
	configPath string
	shutdown   context.CancelFunc

	ln   net.Listener
	port int
}

// NewServer prepares a control server for the given service.  shutdown
// is invoked when a stop request arrives.
func NewServer(svc *service.Service, log zerolog.Logger, configPath string, shutdown context.CancelFunc) *Server {
	return &Server{
		svc:        svc,
		log:        log.With().Str("component", "control").Logger(),
		configPath: configPath,
		shutdown:   shutdown,
	}
}

// Port returns the bound control port.  Valid after Listen.
func (s *Server) Port() int { return s.port }

// Listen binds a host-chosen loopback port and writes the run files.
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return hberr.WrapNet("listen", "127.0.0.1:0", err)
	}
	s.ln = ln
	s.port = ln.Addr().(*net.TCPAddr).Port
	if err := WriteRunFiles(s.configPath, s.port); err != nil {
		ln.Close()
		return err
	}
	s.log.Info().Int("port", s.port).Msg("control plane listening")
	return nil
}

// Serve accepts requests until ctx is cancelled, then removes the run
// files.  Listen must have been called first.
func (s *Server) Serve(ctx context.Context) error {
	defer RemoveRunFiles(s.configPath)

	go func() {
		<-ctx.Done()
		s.ln.Close()
	}()

	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return hberr.WrapNet("accept", s.ln.Addr().String(), err)
		}
		go s.handleConn(conn)
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(requestTimeout))

	line, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil && err != io.EOF {
		s.log.Debug().Err(err).Msg("control request read")
		return
	}
	cmd := strings.ToLower(strings.TrimSpace(line))

	switch cmd {
	case "stop":
		s.log.Info().Msg("stop requested")
		io.WriteString(conn, "ok\n")
		s.shutdown()
	case "status", "":
		io.WriteString(conn, EncodeStatus(s.svc.Status()))
	default:
		s.log.Debug().Str("command", cmd).Msg("unknown control command")
		io.WriteString(conn, EncodeStatus(s.svc.Status()))
	}
}
