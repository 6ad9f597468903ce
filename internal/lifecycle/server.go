// Package lifecycle owns the listening socket of an application:
// Unbound → Binding → Listening, with Failed as the terminal state of a bind
// error and Closed after shutdown.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/appkit/appkit/internal/config"
	"github.com/appkit/appkit/internal/logging"
)

// State is the position of a Server in its lifecycle.
type State int32

const (
	StateUnbound State = iota
	StateBinding
	StateListening
	StateFailed
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUnbound:
		return "unbound"
	case StateBinding:
		return "binding"
	case StateListening:
		return "listening"
	case StateFailed:
		return "failed"
	case StateClosed:
		return "closed"
	default:
		return "state(" + strconv.Itoa(int(s)) + ")"
	}
}

var (
	// ErrNotServing is returned by Wait before Serve was called.
	ErrNotServing = errors.New("server is not serving")
)

// Options describes where and how to bind.
type Options struct {
	AppName     string
	Environment string
	Host        string
	Port        int
	Secure      bool
	// Transport is used for plain HTTP; nil means TCPTransport.
	Transport Transport
	// SecureTransport is required when Secure is true.
	SecureTransport Transport
	Logger          logrus.FieldLogger
}

// Server binds a listener and serves a fiber app on it.
type Server struct {
	app  *fiber.App
	opts Options

	mu       sync.Mutex
	state    State
	ln       net.Listener
	done     chan struct{}
	serveErr error
}

// New creates an unbound server for app.
func New(app *fiber.App, opts Options) *Server {
	return &Server{app: app, opts: opts}
}

// Start selects the transport and binds. Configuration problems are reported
// before any socket is opened. A failed bind moves the server to Failed and is
// never retried.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateUnbound {
		return fmt.Errorf("start server: state is %s", s.state)
	}
	if s.app == nil {
		return config.NewFieldError("App", "fiber app is required")
	}
	if s.opts.Logger == nil {
		return config.NewFieldError("Logger", "logger is required")
	}
	transport, err := s.transport()
	if err != nil {
		return err
	}

	s.state = StateBinding
	addr := net.JoinHostPort(s.opts.Host, strconv.Itoa(s.opts.Port))
	ln, err := transport.Listen("tcp", addr)
	if err != nil {
		s.state = StateFailed
		err = classifyListenError(addr, err)
		s.opts.Logger.WithFields(logrus.Fields{
			"action": "listen",
			"addr":   addr,
		}).WithError(err).Error("bind failed")
		return err
	}

	s.ln = ln
	s.state = StateListening
	s.opts.Logger.WithFields(logging.ServerFields(s.opts.AppName, s.hostLocked(), s.portLocked(), s.opts.Environment, s.opts.Secure)).
		WithField("action", "listen").
		WithField("status", "running").
		Info("server listening")
	return nil
}

func (s *Server) transport() (Transport, error) {
	if s.opts.Secure {
		if s.opts.SecureTransport == nil {
			return nil, config.NewFieldError("SecureTransport", "https is enabled but no secure transport was provided")
		}
		return s.opts.SecureTransport, nil
	}
	if s.opts.Transport == nil {
		return TCPTransport{}, nil
	}
	return s.opts.Transport, nil
}

// Serve starts accepting connections in the background.
func (s *Server) Serve() error {
	s.mu.Lock()
	if s.state != StateListening {
		state := s.state
		s.mu.Unlock()
		return fmt.Errorf("serve: state is %s", state)
	}
	if s.done != nil {
		s.mu.Unlock()
		return errors.New("serve: already serving")
	}
	ln := s.ln
	done := make(chan struct{})
	s.done = done
	s.mu.Unlock()

	go func() {
		err := s.app.Listener(ln, fiber.ListenConfig{DisableStartupMessage: true})
		s.mu.Lock()
		s.serveErr = err
		s.mu.Unlock()
		close(done)
	}()
	return nil
}

// Wait blocks until serving stops and returns the serve error, if any.
func (s *Server) Wait() error {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done == nil {
		return ErrNotServing
	}
	<-done

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.serveErr
}

// Shutdown stops the app and releases the listener. It is a no-op unless the
// server is listening.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateListening {
		s.mu.Unlock()
		return nil
	}
	ln, done := s.ln, s.done
	s.state = StateClosed
	s.mu.Unlock()

	var err error
	if done != nil {
		err = s.app.ShutdownWithContext(ctx)
	}
	// fasthttp only closes listeners it has already started serving on
	_ = ln.Close()

	s.opts.Logger.WithFields(logrus.Fields{
		"action":   "shutdown",
		"app_name": s.opts.AppName,
	}).Info("server stopped")
	return err
}

// State returns the current lifecycle state.
func (s *Server) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Addr returns the bound address, or nil before a successful bind.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Host returns the resolved bound host.
func (s *Server) Host() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hostLocked()
}

// Port returns the resolved bound port, or 0 before a successful bind.
func (s *Server) Port() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.portLocked()
}

func (s *Server) hostLocked() string {
	if s.ln == nil {
		return ""
	}
	if tcp, ok := s.ln.Addr().(*net.TCPAddr); ok {
		if tcp.IP == nil || tcp.IP.IsUnspecified() {
			return ""
		}
		return tcp.IP.String()
	}
	host, _, _ := net.SplitHostPort(s.ln.Addr().String())
	return host
}

func (s *Server) portLocked() int {
	if s.ln == nil {
		return 0
	}
	if tcp, ok := s.ln.Addr().(*net.TCPAddr); ok {
		return tcp.Port
	}
	_, port, _ := net.SplitHostPort(s.ln.Addr().String())
	p, _ := strconv.Atoi(port)
	return p
}
