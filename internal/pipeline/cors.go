package pipeline

import (
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/sirupsen/logrus"

	"github.com/appkit/appkit/internal/logging"
	"github.com/appkit/appkit/internal/origin"
)

// corsMiddleware rejects requests whose Origin the policy refuses, before any
// caller middleware or route runs. Admitted requests get the CORS response
// headers from fiber's cors middleware, which also answers preflights.
func corsMiddleware(policy *origin.Policy, logger logrus.FieldLogger) fiber.Handler {
	headers := cors.New(cors.Config{
		AllowOriginsFunc: policy.Allows,
		ExposeHeaders:    []string{fiber.HeaderXRequestID},
	})

	return func(c fiber.Ctx) error {
		requestOrigin := c.Get(fiber.HeaderOrigin)
		if !policy.Allows(requestOrigin) {
			logger.WithFields(logging.RequestFields(RequestID(c), c.Method(), c.Path(), requestOrigin)).
				WithField("action", "cors").
				Warn(ErrCORSRejected.Error())
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"message": "Not allowed by CORS.",
			})
		}
		return headers(c)
	}
}
