package pipeline

import (
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
)

const (
	localsRequestID = "_appkit_request_id"
	localsBody      = "_appkit_body"
	localsForm      = "_appkit_form"
)

// requestIDMiddleware 为每个请求生成 ID，写入 locals 与 X-Request-ID 响应头。
func requestIDMiddleware() fiber.Handler {
	return func(c fiber.Ctx) error {
		reqID := uuid.NewString()
		c.Locals(localsRequestID, reqID)
		c.Set(fiber.HeaderXRequestID, reqID)
		return c.Next()
	}
}

// RequestID returns the identifier stored by the request-id stage.
func RequestID(c fiber.Ctx) string {
	if value := c.Locals(localsRequestID); value != nil {
		if reqID, ok := value.(string); ok {
			return reqID
		}
	}
	return ""
}
