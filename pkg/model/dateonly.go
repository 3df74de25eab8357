package model

import (
	"errors"
	"regexp"
	"strings"
	"time"
)

var dateOnlyPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

var ErrInvalidDate = errors.New("dueDate is not a valid date")

// layouts tried when the input is not already a plain calendar date.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// NormalizeDateOnly converts a due-date input to a plain "YYYY-MM-DD" string.
// Empty or blank input clears the date (nil, nil). A value already in the
// exact form passes through unchanged, so normalization is idempotent. Any
// other parsable timestamp is converted to its UTC calendar date. Unparseable
// input returns ErrInvalidDate.
func NormalizeDateOnly(input string) (*string, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return nil, nil
	}

	if dateOnlyPattern.MatchString(s) {
		return &s, nil
	}

	for _, layout := range dateLayouts {
		parsed, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		normalized := parsed.UTC().Format("2006-01-02")
		return &normalized, nil
	}

	return nil, ErrInvalidDate
}
