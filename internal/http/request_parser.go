// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request
// data: form field extraction with decimal parsing, method guards and the
// shared ID parameter convention.
package http

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"ricarica/internal/core"
)

// formValue returns a sanitized, trimmed form field.
func formValue(form url.Values, key string) string {
	return sanitizeInput(form.Get(key))
}

// decimalField parses a required decimal form field, accepting both comma
// and dot separators.
func decimalField(form url.Values, key string) (float64, error) {
	v := strings.TrimSpace(form.Get(key))
	if v == "" {
		return 0, core.Invalid(key, "missing value")
	}
	f, err := core.ParseDecimal(v)
	if err != nil {
		return 0, core.Invalid(key, "not a number")
	}
	return f, nil
}

// optionalDecimalField parses an optional decimal form field. An empty or
// absent field yields nil.
func optionalDecimalField(form url.Values, key string) (*float64, error) {
	v := strings.TrimSpace(form.Get(key))
	f, err := core.ParseOptionalDecimal(v)
	if err != nil {
		return nil, core.Invalid(key, "not a number")
	}
	return f, nil
}

// idField parses a positive integer ID from a form field.
func idField(form url.Values, key string) (int64, error) {
	v := strings.TrimSpace(form.Get(key))
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil || id <= 0 {
		return 0, core.Invalid(key, "invalid id")
	}
	return id, nil
}

// queryID parses the id query parameter used by delete endpoints. It
// falls back to the form body so both ?id= and form posts work.
func queryID(r *http.Request) (int64, error) {
	v := strings.TrimSpace(r.URL.Query().Get("id"))
	if v == "" {
		v = strings.TrimSpace(r.Form.Get("id"))
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil || id <= 0 {
		return 0, core.Invalid("id", "invalid id")
	}
	return id, nil
}

// RequireMethod checks if the request method matches the expected method(s).
// Returns an error response builder if the method doesn't match.
func RequireMethod(r *http.Request, methods ...string) *HTMXResponseBuilder {
	for _, m := range methods {
		if r.Method == m {
			return nil
		}
	}
	return MethodNotAllowedError(strings.Join(methods, ", "))
}

// RequirePOST is a convenience function for POST-only handlers.
func RequirePOST(r *http.Request) *HTMXResponseBuilder {
	return RequireMethod(r, http.MethodPost)
}

// RequireDeleteOrPOST is a convenience function for DELETE/POST handlers.
func RequireDeleteOrPOST(r *http.Request) *HTMXResponseBuilder {
	return RequireMethod(r, http.MethodDelete, http.MethodPost)
}

// ParseFormOrFail parses the request form and returns an error response on failure.
// Returns nil on success.
func ParseFormOrFail(r *http.Request) *HTMXResponseBuilder {
	if err := r.ParseForm(); err != nil {
		return BadRequestError("Formato richiesta non valido")
	}
	return nil
}
