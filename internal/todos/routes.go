package todos

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/appkit/appkit/internal/docs"
	"github.com/appkit/appkit/internal/pipeline"
	"github.com/appkit/appkit/internal/routing"
)

// Document describes the API for the docs route.
func Document(version string) docs.Document {
	return docs.New("Simple Todos API", "A simple todos API", version, docs.Contact{URL: "/"})
}

// Routes returns the todos endpoints bound to store.
func Routes(store *Store) []routing.Route {
	h := &handlers{store: store}
	return []routing.Route{
		{Path: "/todos", Method: routing.MethodGet, Handler: h.list},
		{Path: "/todos", Method: routing.MethodPost, Middleware: requireJSON, Handler: h.create},
		{Path: "/todos/:id", Method: routing.MethodGet, Handler: h.get},
		{Path: "/todos/:id", Method: routing.MethodPut, Middleware: requireJSON, Handler: h.replace},
		{Path: "/todos/:id", Method: routing.MethodPatch, Middleware: requireJSON, Handler: h.patch},
	}
}

type handlers struct {
	store *Store
}

type todoInput struct {
	Title     *string `json:"title"`
	Completed *bool   `json:"completed"`
}

// requireJSON rejects writes that do not carry a JSON body.
func requireJSON(c fiber.Ctx) error {
	if pipeline.Body(c) == nil {
		return c.Status(fiber.StatusUnsupportedMediaType).JSON(fiber.Map{"message": "Expected a JSON body."})
	}
	return c.Next()
}

func (h *handlers) list(c fiber.Ctx) error {
	todos, err := h.store.List(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(todos)
}

func (h *handlers) get(c fiber.Ctx) error {
	todo, err := h.store.Get(c.Context(), c.Params("id"))
	if errors.Is(err, ErrNotFound) {
		return notFound(c)
	}
	if err != nil {
		return err
	}
	return c.JSON(todo)
}

func (h *handlers) create(c fiber.Ctx) error {
	input, err := decodeInput(c)
	if err != nil {
		return badRequest(c, "Body must be a JSON object.")
	}
	if input.Title == nil || strings.TrimSpace(*input.Title) == "" {
		return badRequest(c, "Title is required.")
	}

	todo, err := h.store.Create(c.Context(), strings.TrimSpace(*input.Title))
	if err != nil {
		return err
	}
	h.store.logger.WithFields(logrus.Fields{
		"action":     "todo_create",
		"todo_id":    todo.ID,
		"request_id": pipeline.RequestID(c),
	}).Info("todo created")
	return c.Status(fiber.StatusCreated).JSON(todo)
}

func (h *handlers) replace(c fiber.Ctx) error {
	input, err := decodeInput(c)
	if err != nil {
		return badRequest(c, "Body must be a JSON object.")
	}
	if input.Title == nil || strings.TrimSpace(*input.Title) == "" {
		return badRequest(c, "Title is required.")
	}
	completed := input.Completed != nil && *input.Completed

	todo, err := h.store.Replace(c.Context(), c.Params("id"), strings.TrimSpace(*input.Title), completed)
	if errors.Is(err, ErrNotFound) {
		return notFound(c)
	}
	if err != nil {
		return err
	}
	return c.JSON(todo)
}

func (h *handlers) patch(c fiber.Ctx) error {
	input, err := decodeInput(c)
	if err != nil {
		return badRequest(c, "Body must be a JSON object.")
	}
	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return badRequest(c, "Title must not be empty.")
		}
		input.Title = &title
	}

	todo, err := h.store.Update(c.Context(), c.Params("id"), Patch{Title: input.Title, Completed: input.Completed})
	if errors.Is(err, ErrNotFound) {
		return notFound(c)
	}
	if err != nil {
		return err
	}
	return c.JSON(todo)
}

// decodeInput re-reads the body the pipeline already validated as JSON.
func decodeInput(c fiber.Ctx) (todoInput, error) {
	var input todoInput
	if _, ok := pipeline.Body(c).(map[string]any); !ok {
		return input, errors.New("body is not a JSON object")
	}
	err := c.App().Config().JSONDecoder(c.Body(), &input)
	return input, err
}

func badRequest(c fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": message})
}

func notFound(c fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "Todo not found."})
}
