// Package origin decides whether a request's Origin header is admitted.
//
// An AllowList is an immutable set built once from the loopback defaults plus
// caller-supplied entries. IsAllowed is the pure admission predicate: a missing
// Origin (same-origin or non-browser client) is always admitted, anything else
// must match an entry byte for byte. Policy wraps the current AllowList in an
// atomic pointer so it can be replaced wholesale while requests are in flight.
package origin
