// Package ankiconnect is a client for the AnkiConnect JSON API. Every call
// is a POST of {action, version, params}; every reply must be an object
// with exactly the keys result and error. Failures are classified as
// connectivity, timeout, protocol or application errors, and repeated
// connectivity failures open a circuit breaker.
package ankiconnect
