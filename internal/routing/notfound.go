package routing

import (
	"fmt"
	"os"

	"github.com/gofiber/fiber/v3"
)

const defaultNotFoundPage = `<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>404 Not Found</title></head>
<body><h1>404 Not Found</h1><p>The requested resource could not be found.</p></body>
</html>
`

// LoadNotFoundPage reads the HTML body served to clients that accept HTML.
// An empty path selects the built-in page.
func LoadNotFoundPage(path string) ([]byte, error) {
	if path == "" {
		return []byte(defaultNotFoundPage), nil
	}
	page, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read not-found page: %w", err)
	}
	return page, nil
}

// NotFound answers with 404, negotiating HTML, then JSON, then plain text.
func NotFound(page []byte) fiber.Handler {
	if len(page) == 0 {
		page = []byte(defaultNotFoundPage)
	}
	return func(c fiber.Ctx) error {
		c.Status(fiber.StatusNotFound)
		switch {
		case c.Accepts("html") != "":
			return c.Type("html").Send(page)
		case c.Accepts("json") != "":
			return c.JSON(fiber.Map{"message": "Not found."})
		default:
			return c.Type("txt").SendString("404 Not Found")
		}
	}
}
