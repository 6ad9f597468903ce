// Package pipeline builds the ordered middleware stages every application runs
// before route dispatch.
package pipeline

import (
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/helmet"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/sirupsen/logrus"

	"github.com/appkit/appkit/internal/config"
	"github.com/appkit/appkit/internal/origin"
)

// DefaultBodyLimit is the JSON / URL-encoded body ceiling (100 MB).
const DefaultBodyLimit = config.DefaultBodyLimit

// hstsMaxAge is one year, only emitted by helmet over HTTPS.
const hstsMaxAge = 31536000

// Stage names, in execution order.
const (
	StageRecover         = "recover"
	StageRequestID       = "request_id"
	StageSecurityHeaders = "security_headers"
	StageBodyParser      = "body_parser"
	StageCORS            = "cors"
	StageCustom          = "custom"
)

// Stage is one named handler of the pipeline.
type Stage struct {
	Name    string
	Handler fiber.Handler
}

// Options configures Build. Policy and Logger are required.
type Options struct {
	Policy     *origin.Policy
	Logger     logrus.FieldLogger
	BodyLimit  int
	Secure     bool
	Middleware []fiber.Handler
}

// Build returns the fixed stage sequence: request context, security headers,
// body parsing, CORS, then caller middleware in the given order.
func Build(opts Options) ([]Stage, error) {
	if opts.Policy == nil {
		return nil, config.NewFieldError("AllowedCorsOrigin", "origin policy is required")
	}
	if opts.Logger == nil {
		return nil, config.NewFieldError("Logger", "logger is required")
	}
	for i, mw := range opts.Middleware {
		if mw == nil {
			return nil, config.NewFieldError(config.IndexedField("Middleware", i, ""), "must not be nil")
		}
	}

	limit := opts.BodyLimit
	if limit <= 0 {
		limit = DefaultBodyLimit
	}

	helmetCfg := helmet.Config{
		// left empty: no Content-Security-Policy header
		ContentSecurityPolicy: "",
	}
	if opts.Secure {
		helmetCfg.HSTSMaxAge = hstsMaxAge
	}

	stages := []Stage{
		{Name: StageRecover, Handler: recover.New()},
		{Name: StageRequestID, Handler: requestIDMiddleware()},
		{Name: StageSecurityHeaders, Handler: helmet.New(helmetCfg)},
		{Name: StageBodyParser, Handler: bodyParser(limit)},
		{Name: StageCORS, Handler: corsMiddleware(opts.Policy, opts.Logger)},
	}
	for _, mw := range opts.Middleware {
		stages = append(stages, Stage{Name: StageCustom, Handler: mw})
	}
	return stages, nil
}

// Install builds the pipeline and mounts every stage on router in order.
func Install(router fiber.Router, opts Options) ([]Stage, error) {
	if router == nil {
		return nil, errors.New("router is required")
	}
	stages, err := Build(opts)
	if err != nil {
		return nil, err
	}
	for _, stage := range stages {
		router.Use(stage.Handler)
	}
	return stages, nil
}
