// Package docs serves static API documentation metadata.
package docs

import (
	"github.com/gofiber/fiber/v3"
)

// Path is where the document is served.
const Path = "/-/docs"

// Contact identifies the API maintainer.
type Contact struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	URL   string `json:"url,omitempty"`
}

// Info is the OpenAPI info object.
type Info struct {
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	Version     string  `json:"version"`
	Contact     Contact `json:"contact,omitempty"`
}

// Document is the subset of an OpenAPI document this library publishes.
type Document struct {
	OpenAPI string `json:"openapi"`
	Info    Info   `json:"info"`
}

// New returns a document for the given title and version using OpenAPI 3.0.3.
func New(title, description, version string, contact Contact) Document {
	return Document{
		OpenAPI: "3.0.3",
		Info: Info{
			Title:       title,
			Description: description,
			Version:     version,
			Contact:     contact,
		},
	}
}

// Handler returns the document as JSON.
func Handler(doc Document) fiber.Handler {
	return func(c fiber.Ctx) error {
		return c.JSON(doc)
	}
}
