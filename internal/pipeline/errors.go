package pipeline

import "errors"

var (
	// ErrPayloadTooLarge is returned when a request body exceeds the ceiling.
	ErrPayloadTooLarge = errors.New("payload too large")
	// ErrMalformedBody is returned when a JSON or URL-encoded body cannot be parsed.
	ErrMalformedBody = errors.New("malformed request body")
	// ErrCORSRejected marks a request refused by the origin policy. It is only
	// logged; the CORS stage writes the response itself.
	ErrCORSRejected = errors.New("not allowed by CORS")
)
