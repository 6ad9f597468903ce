package routing

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v3"

	"github.com/appkit/appkit/internal/config"
)

// Method is the closed set of verbs a Route may be bound to.
type Method string

const (
	MethodAll     Method = "ALL"
	MethodGet     Method = fiber.MethodGet
	MethodPost    Method = fiber.MethodPost
	MethodPut     Method = fiber.MethodPut
	MethodDelete  Method = fiber.MethodDelete
	MethodPatch   Method = fiber.MethodPatch
	MethodOptions Method = fiber.MethodOptions
	MethodHead    Method = fiber.MethodHead
)

var supportedMethods = map[Method]struct{}{
	MethodAll:     {},
	MethodGet:     {},
	MethodPost:    {},
	MethodPut:     {},
	MethodDelete:  {},
	MethodPatch:   {},
	MethodOptions: {},
	MethodHead:    {},
}

const supportedMethodList = "all|get|post|put|delete|patch|options|head"

// ParseMethod normalizes raw case-insensitively. Unknown verbs are a
// configuration error; there is no fallback verb.
func ParseMethod(raw string) (Method, error) {
	m := Method(strings.ToUpper(strings.TrimSpace(raw)))
	if _, ok := supportedMethods[m]; !ok {
		return "", config.NewFieldError("Method", fmt.Sprintf("unsupported method %q, expected %s", raw, supportedMethodList))
	}
	return m, nil
}

func (m Method) String() string {
	return string(m)
}

// verbs returns the HTTP methods a route is mounted on; GET routes also
// answer HEAD.
func (m Method) verbs() []string {
	if m == MethodGet {
		return []string{fiber.MethodGet, fiber.MethodHead}
	}
	return []string{m.String()}
}
