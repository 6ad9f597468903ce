// Package routing registers caller route descriptors on a fiber router and
// terminates the stack with an unconditional not-found handler.
package routing

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v3"

	"github.com/appkit/appkit/internal/config"
)

// Route binds a handler to a method and path. Middleware, when set, runs
// after the global pipeline and before Handler, for this route only.
type Route struct {
	Path       string
	Method     Method
	Handler    fiber.Handler
	Middleware fiber.Handler
}

// ErrSealed is returned when registering after the catch-all is installed.
var ErrSealed = errors.New("route table is sealed")

// Table tracks registrations against a single router.
type Table struct {
	router fiber.Router
	routes []Route
	sealed bool
}

// NewTable creates a table that registers on router.
func NewTable(router fiber.Router) *Table {
	return &Table{router: router}
}

// Register validates route and mounts it.
func (t *Table) Register(route Route) error {
	if t.sealed {
		return ErrSealed
	}
	normalized, err := normalize(route)
	if err != nil {
		return err
	}
	t.mount(normalized)
	return nil
}

// RegisterAll validates every route before mounting any of them, so a bad
// descriptor leaves the table untouched.
func (t *Table) RegisterAll(routes []Route) error {
	if t.sealed {
		return ErrSealed
	}
	normalized := make([]Route, len(routes))
	for i, route := range routes {
		r, err := normalize(route)
		if err != nil {
			var fieldErr config.FieldError
			if errors.As(err, &fieldErr) {
				return config.NewFieldError(config.IndexedField("Routes", i, fieldErr.Field), fieldErr.Reason)
			}
			return err
		}
		normalized[i] = r
	}
	for _, r := range normalized {
		t.mount(r)
	}
	return nil
}

// Seal installs notFound as the last handler of the stack; it matches every
// method and path that no registered route answered.
func (t *Table) Seal(notFound fiber.Handler) error {
	if t.sealed {
		return ErrSealed
	}
	if notFound == nil {
		return config.NewFieldError("NotFound", "handler is required")
	}
	t.router.Use(notFound)
	t.sealed = true
	return nil
}

// Routes returns the registered routes in registration order.
func (t *Table) Routes() []Route {
	return append([]Route(nil), t.routes...)
}

// Sealed reports whether the catch-all has been installed.
func (t *Table) Sealed() bool {
	return t.sealed
}

func (t *Table) mount(route Route) {
	switch {
	case route.Method == MethodAll && route.Middleware != nil:
		t.router.All(route.Path, route.Middleware, route.Handler)
	case route.Method == MethodAll:
		t.router.All(route.Path, route.Handler)
	case route.Middleware != nil:
		t.router.Add(route.Method.verbs(), route.Path, route.Middleware, route.Handler)
	default:
		t.router.Add(route.Method.verbs(), route.Path, route.Handler)
	}
	t.routes = append(t.routes, route)
}

func normalize(route Route) (Route, error) {
	path := strings.TrimSpace(route.Path)
	if path == "" || !strings.HasPrefix(path, "/") {
		return Route{}, config.NewFieldError("Path", "must start with /")
	}
	if route.Handler == nil {
		return Route{}, config.NewFieldError("Handler", "is required")
	}
	method, err := ParseMethod(string(route.Method))
	if err != nil {
		return Route{}, err
	}
	route.Path = path
	route.Method = method
	return route, nil
}
