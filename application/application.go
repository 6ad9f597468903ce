package application

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/appkit/appkit/internal/config"
	"github.com/appkit/appkit/internal/docs"
	"github.com/appkit/appkit/internal/lifecycle"
	"github.com/appkit/appkit/internal/logging"
	"github.com/appkit/appkit/internal/origin"
	"github.com/appkit/appkit/internal/pipeline"
	"github.com/appkit/appkit/internal/routing"
)

type (
	// Route binds a handler, and optionally a route-scoped middleware, to a method and path.
	Route = routing.Route
	// Method is one of the supported HTTP verbs, or MethodAll.
	Method = routing.Method
	// Middleware is a pipeline stage; call c.Next() to continue.
	Middleware = fiber.Handler
	// Transport opens the listening socket.
	Transport     = lifecycle.Transport
	TransportFunc = lifecycle.TransportFunc
	TCPTransport  = lifecycle.TCPTransport
	TLSTransport  = lifecycle.TLSTransport
	// BindError is returned by Init when the listen syscall fails.
	BindError = lifecycle.BindError
	State     = lifecycle.State
	// Document is the API metadata served at DocsPath.
	Document = docs.Document
)

const (
	MethodAll     = routing.MethodAll
	MethodGet     = routing.MethodGet
	MethodPost    = routing.MethodPost
	MethodPut     = routing.MethodPut
	MethodDelete  = routing.MethodDelete
	MethodPatch   = routing.MethodPatch
	MethodOptions = routing.MethodOptions
	MethodHead    = routing.MethodHead

	DefaultPort      = config.DefaultListenPort
	DefaultAppName   = config.DefaultAppName
	DefaultBodyLimit = pipeline.DefaultBodyLimit
	DocsPath         = docs.Path
)

var (
	// ErrConfiguration classifies every assembly-time configuration error.
	ErrConfiguration = config.ErrConfiguration
	// ErrAlreadyInitialized is returned by every Init call after the first.
	ErrAlreadyInitialized = fmt.Errorf("%w: application already initialized", config.ErrConfiguration)
	ErrPayloadTooLarge    = pipeline.ErrPayloadTooLarge
	ErrMalformedBody      = pipeline.ErrMalformedBody
)

// Config is read once by New. Later changes to the caller's copy or its
// slices have no effect.
type Config struct {
	// Port defaults to 8800.
	Port int
	// Host defaults to all interfaces.
	Host    string
	AppName string
	// IsSecureHTTP selects SecureTransport. It is forced on in production.
	IsSecureHTTP bool
	// Environment defaults to the environment / APPKIT_ENVIRONMENT variable.
	Environment string
	// AllowedCorsOrigin is merged into the default loopback origins.
	AllowedCorsOrigin []string
	Middleware        []Middleware
	Routes            []Route
	// CustomErrorHandler observes handler errors; it cannot change the response.
	CustomErrorHandler func(error)
	// Logger is required.
	Logger logrus.FieldLogger
	// Transport defaults to TCPTransport.
	Transport Transport
	// SecureTransport is required when HTTPS is enabled.
	SecureTransport Transport
	// BodyLimit defaults to 100 MB.
	BodyLimit int
	// NotFoundPage is an HTML file served to 404 clients that accept HTML.
	NotFoundPage string
	// Docs, when set, is served at DocsPath.
	Docs *Document
}

// Application is an assembled HTTP application.
type Application struct {
	cfg         Config
	environment string
	secure      bool

	app    *fiber.App
	policy *origin.Policy
	table  *routing.Table
	server *lifecycle.Server

	mu          sync.Mutex
	initialized bool
	errorsReady atomic.Bool
}

// New validates cfg, applies defaults and prepares an application. No socket
// is opened until Init.
func New(cfg Config) (*Application, error) {
	cfg.AllowedCorsOrigin = append([]string(nil), cfg.AllowedCorsOrigin...)
	cfg.Middleware = append([]Middleware(nil), cfg.Middleware...)
	cfg.Routes = append([]Route(nil), cfg.Routes...)
	if cfg.Docs != nil {
		doc := *cfg.Docs
		cfg.Docs = &doc
	}

	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if cfg.Port < 0 || cfg.Port > 65535 {
		return nil, config.NewFieldError("Port", "must be within 1-65535")
	}
	if cfg.AppName == "" {
		cfg.AppName = DefaultAppName
	}
	if cfg.BodyLimit == 0 {
		cfg.BodyLimit = DefaultBodyLimit
	}
	if cfg.BodyLimit < 0 {
		return nil, config.NewFieldError("BodyLimit", "must be positive")
	}

	env := cfg.Environment
	if env == "" {
		env = config.DetectEnvironment()
	}
	env = config.NormalizeEnvironment(env)

	allowList, err := origin.Merge(cfg.AllowedCorsOrigin)
	if err != nil {
		return nil, fmt.Errorf("AllowedCorsOrigin: %w", err)
	}

	a := &Application{
		cfg:         cfg,
		environment: env,
		secure:      cfg.IsSecureHTTP || config.IsProduction(env),
		policy:      origin.NewPolicy(allowList),
	}
	a.app = fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		BodyLimit:    cfg.BodyLimit,
		ErrorHandler: a.dispatchError,
	})
	a.table = routing.NewTable(a.app)
	a.server = lifecycle.New(a.app, lifecycle.Options{
		AppName:         cfg.AppName,
		Environment:     env,
		Host:            cfg.Host,
		Port:            cfg.Port,
		Secure:          a.secure,
		Transport:       cfg.Transport,
		SecureTransport: cfg.SecureTransport,
		Logger:          cfg.Logger,
	})
	return a, nil
}

// Init assembles the pipeline, registers routes and the catch-all, binds the
// server, installs the error handler and then starts serving. It may be
// called once; later calls return ErrAlreadyInitialized and change nothing.
func (a *Application) Init() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.initialized {
		return ErrAlreadyInitialized
	}
	a.initialized = true

	if a.cfg.Logger == nil {
		return config.NewFieldError("Logger", "logger is required")
	}
	notFoundPage, err := routing.LoadNotFoundPage(a.cfg.NotFoundPage)
	if err != nil {
		return config.NewFieldError("NotFoundPage", err.Error())
	}

	if _, err := pipeline.Install(a.app, pipeline.Options{
		Policy:     a.policy,
		Logger:     a.cfg.Logger,
		BodyLimit:  a.cfg.BodyLimit,
		Secure:     a.secure,
		Middleware: a.cfg.Middleware,
	}); err != nil {
		return fmt.Errorf("build middleware: %w", err)
	}

	if err := a.table.RegisterAll(a.cfg.Routes); err != nil {
		return fmt.Errorf("register routes: %w", err)
	}
	if a.cfg.Docs != nil {
		if err := a.table.Register(Route{Path: DocsPath, Method: MethodGet, Handler: docs.Handler(*a.cfg.Docs)}); err != nil {
			return fmt.Errorf("register docs: %w", err)
		}
	}
	if err := a.table.Seal(routing.NotFound(notFoundPage)); err != nil {
		return fmt.Errorf("register catch-all: %w", err)
	}

	if err := a.server.Start(); err != nil {
		return fmt.Errorf("start server: %w", err)
	}

	a.errorsReady.Store(true)

	if err := a.server.Serve(); err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

// dispatchError is fiber's error handler; until Init reaches its last step it
// defers to fiber's default.
func (a *Application) dispatchError(c fiber.Ctx, err error) error {
	if !a.errorsReady.Load() {
		return fiber.DefaultErrorHandler(c, err)
	}
	return a.handleError(c, err)
}

func (a *Application) handleError(c fiber.Ctx, err error) error {
	fields := logging.RequestFields(pipeline.RequestID(c), c.Method(), c.Path(), c.Get(fiber.HeaderOrigin))

	var fiberErr *fiber.Error
	switch {
	case errors.Is(err, pipeline.ErrPayloadTooLarge),
		errors.As(err, &fiberErr) && fiberErr.Code == fiber.StatusRequestEntityTooLarge:
		a.cfg.Logger.WithFields(fields).WithError(err).Warn("payload too large")
		return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{"message": "Payload too large."})
	case errors.Is(err, pipeline.ErrMalformedBody):
		a.cfg.Logger.WithFields(fields).WithError(err).Warn("malformed request body")
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Malformed request body."})
	}

	a.notifyCustomHandler(err, fields)
	a.cfg.Logger.WithFields(fields).WithError(err).Error("request failed")
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Internal server error."})
}

func (a *Application) notifyCustomHandler(err error, fields logrus.Fields) {
	if a.cfg.CustomErrorHandler == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			a.cfg.Logger.WithFields(fields).WithField("panic", fmt.Sprint(r)).Error("custom error handler panicked")
		}
	}()
	a.cfg.CustomErrorHandler(err)
}

// App exposes the underlying fiber app, e.g. for app.Test in tests.
func (a *Application) App() *fiber.App {
	return a.app
}

// Secure reports whether the application uses the secure transport.
func (a *Application) Secure() bool {
	return a.secure
}

// Environment returns the resolved runtime environment.
func (a *Application) Environment() string {
	return a.environment
}

// State returns the server lifecycle state.
func (a *Application) State() State {
	return a.server.State()
}

// Addr returns the bound address, or nil before Init succeeds.
func (a *Application) Addr() net.Addr {
	return a.server.Addr()
}

// Port returns the bound port, or 0 before Init succeeds.
func (a *Application) Port() int {
	return a.server.Port()
}

// Routes returns the registered routes, including the docs route.
func (a *Application) Routes() []Route {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.table.Routes()
}

// AllowedOrigins returns the origins currently admitted by the CORS stage.
func (a *Application) AllowedOrigins() []string {
	return a.policy.Snapshot().List()
}

// SetAllowedOrigins replaces the caller-supplied origins. The defaults are
// always kept; requests already past the CORS stage are unaffected.
func (a *Application) SetAllowedOrigins(extra []string) error {
	list, err := origin.Merge(extra)
	if err != nil {
		return fmt.Errorf("AllowedCorsOrigin: %w", err)
	}
	a.policy.Swap(list)
	if a.cfg.Logger != nil {
		a.cfg.Logger.WithFields(logrus.Fields{
			"action":          "cors_reconfigure",
			"allowed_origins": list.Len(),
		}).Info("allowed origins replaced")
	}
	return nil
}

// Wait blocks until the server stops serving.
func (a *Application) Wait() error {
	return a.server.Wait()
}

// Shutdown gracefully stops the server.
func (a *Application) Shutdown(ctx context.Context) error {
	return a.server.Shutdown(ctx)
}
