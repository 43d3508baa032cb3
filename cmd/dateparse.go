package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/tj/go-naturaldate"
)

var isoLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// parseDateTime turns a --modified-since value into a point in time relative
// to now. Accepted, in order:
//   - "today", "yesterday" (local midnight)
//   - ISO 8601 dates and datetimes
//   - day counts such as "7d"
//   - Go durations such as "36h"
//   - natural language via go-naturaldate ("last week", "3 days ago")
func parseDateTime(value string, now time.Time) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("empty date string")
	}

	switch strings.ToLower(value) {
	case "today":
		return midnight(now), nil
	case "yesterday":
		return midnight(now.AddDate(0, 0, -1)), nil
	}

	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}

	if days, ok := strings.CutSuffix(value, "d"); ok {
		if n, err := strconv.Atoi(days); err == nil && n >= 0 {
			return now.AddDate(0, 0, -n), nil
		}
	}

	if d, err := time.ParseDuration(value); err == nil {
		return now.Add(-d), nil
	}

	return parseNaturalDate(value, now)
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// parseNaturalDate falls back to go-naturaldate, which returns now unchanged
// for input it does not understand.
func parseNaturalDate(value string, now time.Time) (time.Time, error) {
	t, err := naturaldate.Parse(value, now)
	if err != nil || (t.Equal(now) && !strings.EqualFold(value, "now")) {
		return time.Time{}, fmt.Errorf("unable to parse date %q: use ISO 8601 (2006-01-02), a duration (7d, 24h), today, yesterday or natural language (last week)", value)
	}

	return t, nil
}
