package pipeline

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v3"
)

// bodyParser decodes JSON and URL-encoded bodies into locals so handlers and
// later stages can read them via Body / Form. Other content types pass through.
func bodyParser(limit int) fiber.Handler {
	return func(c fiber.Ctx) error {
		raw := c.Request().Body()
		if len(raw) > limit {
			return fmt.Errorf("%w: %d bytes exceeds %d", ErrPayloadTooLarge, len(raw), limit)
		}
		if len(raw) == 0 {
			return c.Next()
		}

		switch mediaType(c) {
		case fiber.MIMEApplicationJSON:
			var payload any
			if err := c.App().Config().JSONDecoder(raw, &payload); err != nil {
				return fmt.Errorf("%w: %v", ErrMalformedBody, err)
			}
			c.Locals(localsBody, payload)
		case fiber.MIMEApplicationForm:
			values := url.Values{}
			c.Request().PostArgs().VisitAll(func(key, value []byte) {
				values.Add(string(key), string(value))
			})
			c.Locals(localsForm, values)
		}
		return c.Next()
	}
}

// mediaType returns the lower-cased media type without parameters; any
// "+json" structured suffix is reported as application/json.
func mediaType(c fiber.Ctx) string {
	ctype := strings.ToLower(string(c.Request().Header.ContentType()))
	if idx := strings.IndexByte(ctype, ';'); idx >= 0 {
		ctype = ctype[:idx]
	}
	ctype = strings.TrimSpace(ctype)
	if strings.HasSuffix(ctype, "+json") {
		return fiber.MIMEApplicationJSON
	}
	return ctype
}

// Body returns the decoded JSON body, or nil when the request had none.
func Body(c fiber.Ctx) any {
	return c.Locals(localsBody)
}

// Form returns the parsed URL-encoded body, or nil when the request had none.
func Form(c fiber.Ctx) url.Values {
	if value := c.Locals(localsForm); value != nil {
		if form, ok := value.(url.Values); ok {
			return form
		}
	}
	return nil
}
