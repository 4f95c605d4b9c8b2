package validators

import (
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/tombamento-backend/pkg/errors"
)

// SanitizeString trims input, drops invalid UTF-8 and cuts it to at most
// maxLen bytes without splitting a character. maxLen <= 0 disables the cut.
func SanitizeString(input string, maxLen int) string {
	clean := strings.TrimSpace(strings.ToValidUTF8(input, ""))
	if maxLen <= 0 || len(clean) <= maxLen {
		return clean
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(clean[cut]) {
		cut--
	}
	return strings.TrimSpace(clean[:cut])
}

// QueryString returns the sanitized query parameter key.
func QueryString(r *http.Request, key string, maxLen int) string {
	return SanitizeString(r.URL.Query().Get(key), maxLen)
}

// ParseQueryInt reads an optional integer query parameter bounded by min and max.
func ParseQueryInt(r *http.Request, key string, defaultVal, min, max int) (int, error) {
	raw := QueryString(r, key, 0)
	if raw == "" {
		return defaultVal, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fieldError("query parameter must be numeric", key, nil)
	}
	if value < min || value > max {
		return 0, fieldError("query parameter out of range", key, map[string]any{"min": min, "max": max})
	}
	return value, nil
}

// ParseUUIDParam reads a UUID route parameter.
func ParseUUIDParam(r *http.Request, name string) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, name))
	if raw == "" {
		return uuid.Nil, fieldError("missing path parameter", name, nil)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fieldError("invalid path parameter", name, nil)
	}
	return id, nil
}

func fieldError(message, field string, extra map[string]any) *pkgerrors.Error {
	details := map[string]any{"field": field}
	for k, v := range extra {
		details[k] = v
	}
	return pkgerrors.New(pkgerrors.CodeValidation, message).WithDetails(details)
}
