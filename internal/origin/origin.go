package origin

import (
	"fmt"
	"net"
	"net/url"
	"strings"
	"sync/atomic"

	"golang.org/x/net/http/httpguts"
	"golang.org/x/net/idna"

	"github.com/appkit/appkit/internal/config"
)

var defaultOrigins = [...]string{
	"http://localhost:4000",
	"http://localhost:3000",
	"http://127.0.0.1:4000",
	"http://127.0.0.1:3000",
}

// Defaults returns a copy of the built-in loopback origins.
func Defaults() []string {
	return append([]string(nil), defaultOrigins[:]...)
}

// AllowList is an immutable set of exact origins.
type AllowList struct {
	set     map[string]struct{}
	ordered []string
}

// Merge returns a new AllowList holding the defaults followed by extra.
// Duplicates are dropped; every extra entry must be a valid origin.
func Merge(extra []string) (*AllowList, error) {
	list := &AllowList{
		set:     make(map[string]struct{}, len(defaultOrigins)+len(extra)),
		ordered: make([]string, 0, len(defaultOrigins)+len(extra)),
	}
	for _, o := range defaultOrigins {
		list.add(o)
	}
	for _, o := range extra {
		if err := Validate(o); err != nil {
			return nil, err
		}
		list.add(o)
	}
	return list, nil
}

func (l *AllowList) add(o string) {
	if _, exists := l.set[o]; exists {
		return
	}
	l.set[o] = struct{}{}
	l.ordered = append(l.ordered, o)
}

// Len reports the number of distinct origins.
func (l *AllowList) Len() int {
	if l == nil {
		return 0
	}
	return len(l.ordered)
}

// Contains reports exact membership.
func (l *AllowList) Contains(o string) bool {
	if l == nil {
		return false
	}
	_, ok := l.set[o]
	return ok
}

// List returns the origins in insertion order.
func (l *AllowList) List() []string {
	if l == nil {
		return nil
	}
	return append([]string(nil), l.ordered...)
}

// IsAllowed admits an absent origin and otherwise requires exact membership.
func IsAllowed(origin string, list *AllowList) bool {
	if origin == "" {
		return true
	}
	return list.Contains(origin)
}

// Policy holds the AllowList consulted by the CORS stage.
type Policy struct {
	current atomic.Pointer[AllowList]
}

// NewPolicy creates a Policy that starts with list.
func NewPolicy(list *AllowList) *Policy {
	p := &Policy{}
	p.current.Store(list)
	return p
}

// Allows evaluates IsAllowed against the current snapshot.
func (p *Policy) Allows(origin string) bool {
	return IsAllowed(origin, p.current.Load())
}

// Snapshot returns the AllowList in effect.
func (p *Policy) Snapshot() *AllowList {
	return p.current.Load()
}

// Swap replaces the AllowList; in-flight requests keep the snapshot they loaded.
func (p *Policy) Swap(list *AllowList) {
	p.current.Store(list)
}

// InvalidOriginError reports an unusable allow-list entry.
type InvalidOriginError struct {
	Value  string
	Reason string
}

func (e *InvalidOriginError) Error() string {
	return fmt.Sprintf("invalid allowed origin %q: %s", e.Value, e.Reason)
}

// Is classifies InvalidOriginError as a configuration error.
func (e *InvalidOriginError) Is(target error) bool {
	return target == config.ErrConfiguration
}

// NullOrigin is what browsers send for opaque origins (sandboxed iframes,
// file: pages).
const NullOrigin = "null"

// Validate checks that raw is a serialized origin: any scheme, a host, an
// optional port and nothing else. The literal "null" is accepted as is.
func Validate(raw string) error {
	if raw == "" {
		return &InvalidOriginError{Value: raw, Reason: "empty"}
	}
	if !httpguts.ValidHeaderFieldValue(raw) || strings.ContainsAny(raw, " \t") {
		return &InvalidOriginError{Value: raw, Reason: "not a valid header value"}
	}
	if raw == NullOrigin {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return &InvalidOriginError{Value: raw, Reason: err.Error()}
	}
	if u.Scheme == "" || u.Opaque != "" {
		return &InvalidOriginError{Value: raw, Reason: "must have the form scheme://host[:port]"}
	}
	if u.Host == "" || u.Hostname() == "" {
		return &InvalidOriginError{Value: raw, Reason: "missing host"}
	}
	if u.User != nil || u.Path != "" || u.RawQuery != "" || u.Fragment != "" || strings.HasSuffix(raw, "#") || strings.HasSuffix(raw, "?") {
		return &InvalidOriginError{Value: raw, Reason: "must not contain userinfo, path, query or fragment"}
	}
	if net.ParseIP(u.Hostname()) != nil {
		return nil
	}
	if _, err := idna.Lookup.ToASCII(u.Hostname()); err != nil {
		return &InvalidOriginError{Value: raw, Reason: "invalid host: " + err.Error()}
	}
	return nil
}
