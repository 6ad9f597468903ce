package lifecycle

import (
	"errors"
	"fmt"
	"net"
	"syscall"
)

// BindError reports that the listen syscall failed. It is fatal: the server
// never retries a bind.
type BindError struct {
	Addr   string
	Reason string
	Err    error
}

func (e *BindError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("bind %s: %s: %v", e.Addr, e.Reason, e.Err)
	}
	return fmt.Sprintf("bind %s: %v", e.Addr, e.Err)
}

func (e *BindError) Unwrap() error {
	return e.Err
}

// classifyListenError wraps listen-syscall failures in a BindError and
// returns every other error unchanged.
func classifyListenError(addr string, err error) error {
	var opErr *net.OpError
	if !errors.As(err, &opErr) || opErr.Op != "listen" {
		return err
	}
	bindErr := &BindError{Addr: addr, Err: err}
	switch {
	case errors.Is(err, syscall.EACCES):
		bindErr.Reason = "requires elevated privileges"
	case errors.Is(err, syscall.EADDRINUSE):
		bindErr.Reason = "address already in use"
	}
	return bindErr
}
