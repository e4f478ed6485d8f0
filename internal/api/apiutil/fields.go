package apiutil

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

func ParseNonNegativeInt64Field(raw string, field string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, fmt.Errorf("%s is required", field)
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || value < 0 {
		return 0, fmt.Errorf("%s must be 0 or greater", field)
	}
	return value, nil
}

func ParsePositiveInt64Field(raw string, field string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, fmt.Errorf("%s is required", field)
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || value <= 0 {
		return 0, fmt.Errorf("%s must be greater than 0", field)
	}
	return value, nil
}

// PositiveInt64Query parses a required positive integer query parameter.
func PositiveInt64Query(r *http.Request, key string) (int64, error) {
	return ParsePositiveInt64Field(r.URL.Query().Get(key), key)
}

// OptionalPositiveInt64Query parses an optional positive integer query
// parameter, returning 0 when absent.
func OptionalPositiveInt64Query(r *http.Request, key string) (int64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return 0, nil
	}
	return ParsePositiveInt64Field(raw, key)
}

// PathID parses the trailing path segment after prefix as a positive id,
// e.g. PathID(r, "/api/v1/reservations/") for "/api/v1/reservations/42".
func PathID(r *http.Request, prefix string) (int64, error) {
	rest := strings.TrimPrefix(r.URL.Path, prefix)
	rest = strings.Trim(rest, "/")
	if idx := strings.IndexByte(rest, '/'); idx != -1 {
		rest = rest[:idx]
	}
	return ParsePositiveInt64Field(rest, "id")
}

func FormatPriceCents(cents int64) string {
	return fmt.Sprintf("$%.2f", float64(cents)/100)
}
