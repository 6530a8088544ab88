package http

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"ricarica/internal/core"
)

// serviceError maps a domain error to the matching HTTP error response.
// A missing-tables remote error carries a setup hint so the operator knows
// to run the schema tool before retrying.
func serviceError(err error) *HTMXResponseBuilder {
	switch {
	case core.IsValidation(err):
		return UnprocessableEntityError(err.Error())
	case core.IsConflict(err):
		return ConflictError(err.Error())
	case core.IsNotFound(err):
		return NotFoundError(err.Error())
	case core.IsMissingTables(err):
		return ErrorResponse(http.StatusServiceUnavailable,
			"Tabelle remote mancanti: eseguire ricarica-setup")
	case core.IsRemote(err):
		return ErrorResponse(http.StatusBadGateway, "Backend remoto non raggiungibile")
	default:
		return InternalServerError("Errore interno")
	}
}

// parseDate parses a date string in YYYY-MM-DD format.
func parseDate(dateStr string) (time.Time, error) {
	return time.Parse("2006-01-02", dateStr)
}

// formatEuro renders a euro amount with two decimals, comma separated.
func formatEuro(v float64) string {
	s := strconv.FormatFloat(v, 'f', 2, 64)
	return "€" + strings.Replace(s, ".", ",", 1)
}

// formatFloat renders a value with one decimal place.
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}

// sanitizeInput removes potentially dangerous characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	result := strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
	return result
}

// generateRequestID creates a unique request ID for tracing.
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}
