package server

import (
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

const dateOnlyLayout = "2006-01-02"

func parseOptionalBool(field, value string) (*bool, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}

	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return nil, newValidationError(field, "must be a boolean")
	}
	return &parsed, nil
}

func parseOptionalInt64(field, value string) (*int64, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}

	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return nil, newValidationError(field, "must be an integer")
	}
	return &parsed, nil
}

func parseOptionalSnowflakeID(field, value string) (*snowflake.ID, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}

	parsed, err := snowflake.ParseString(value)
	if err != nil {
		return nil, newValidationError(field, "must be a valid identifier")
	}
	return &parsed, nil
}

func parseSnowflakeID(field, value string) (snowflake.ID, error) {
	parsed, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil {
		return 0, newValidationError(field, "must be a valid identifier")
	}
	return parsed, nil
}

// parseOptionalTime accepts RFC 3339 timestamps or bare dates. A bare date
// resolves to the start of the day, or the last instant of it when endOfDay
// is set so range filters cover the whole day.
func parseOptionalTime(field, value string, endOfDay bool) (*time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}

	if parsed, err := time.Parse(time.RFC3339, trimmed); err == nil {
		utc := parsed.UTC()
		return &utc, nil
	}

	parsed, err := time.Parse(dateOnlyLayout, trimmed)
	if err != nil {
		return nil, newValidationError(field, "must be an RFC 3339 timestamp or YYYY-MM-DD date")
	}

	parsed = parsed.UTC()
	if endOfDay {
		parsed = parsed.Add(24*time.Hour - time.Nanosecond)
	}
	return &parsed, nil
}
