// Package timespan converts between human-friendly time spans ("100 years",
// "5 days", "90 s") and plain seconds. Values are float64 seconds so that
// simulation clocks can use them directly.
package timespan

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
)

const (
	Second = 1.0
	Minute = 60 * Second
	Hour   = 60 * Minute
	Day    = 24 * Hour
	Week   = 7 * Day
	Year   = 365 * Day
)

var units = map[string]float64{
	"ms": Second / 1000, "millisecond": Second / 1000, "milliseconds": Second / 1000,
	"s": Second, "sec": Second, "secs": Second, "second": Second, "seconds": Second,
	"m": Minute, "min": Minute, "mins": Minute, "minute": Minute, "minutes": Minute,
	"h": Hour, "hour": Hour, "hours": Hour,
	"d": Day, "day": Day, "days": Day,
	"w": Week, "week": Week, "weeks": Week,
	"y": Year, "year": Year, "years": Year,
}

// Parse converts a time span to seconds. Accepted forms: a bare number
// (seconds), "inf"/"infinity", or one or more number-unit terms such as
// "100 years", "1.5h" or "1 week 2 days".
func Parse(s string) (float64, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return 0, fmt.Errorf("empty time span")
	}

	switch strings.ToLower(trimmed) {
	case "inf", "infinity":
		return math.Inf(1), nil
	}

	if v, err := strconv.ParseFloat(trimmed, 64); err == nil {
		if v < 0 {
			return 0, fmt.Errorf("negative time span %q", s)
		}
		return v, nil
	}

	total := 0.0
	rest := trimmed
	for rest != "" {
		value, unit, tail, err := nextTerm(rest)
		if err != nil {
			return 0, fmt.Errorf("invalid time span %q: %w", s, err)
		}

		factor, ok := units[strings.ToLower(unit)]
		if !ok {
			return 0, fmt.Errorf("invalid time span %q: unknown unit %q", s, unit)
		}
		if value < 0 {
			return 0, fmt.Errorf("negative time span %q", s)
		}

		total += value * factor
		rest = tail
	}

	return total, nil
}

// nextTerm splits one leading "<number> <unit>" pair off s. Separators
// between terms (spaces, commas, "and") are skipped, so Format output
// parses back.
func nextTerm(s string) (value float64, unit, tail string, err error) {
	s = strings.TrimLeft(s, " \t,")
	if len(s) > 4 && strings.EqualFold(s[:4], "and ") {
		s = strings.TrimLeft(s[4:], " \t")
	}

	i := 0
	for i < len(s) && (unicode.IsDigit(rune(s[i])) || s[i] == '.' || s[i] == '+' || s[i] == '-') {
		i++
	}
	if i == 0 {
		return 0, "", "", fmt.Errorf("expected a number at %q", s)
	}

	value, err = strconv.ParseFloat(s[:i], 64)
	if err != nil {
		return 0, "", "", err
	}

	rest := strings.TrimLeft(s[i:], " \t")
	j := 0
	for j < len(rest) && unicode.IsLetter(rune(rest[j])) {
		j++
	}
	if j == 0 {
		return 0, "", "", fmt.Errorf("missing unit after %q", s[:i])
	}

	return value, rest[:j], rest[j:], nil
}

// Format renders seconds as a human-friendly span, largest units first:
// "1 year, 2 weeks and 3 days". Sub-minute remainders keep up to two
// decimals.
func Format(seconds float64) string {
	if math.IsInf(seconds, 1) {
		return "infinity"
	}
	if seconds < 0 {
		return "-" + Format(-seconds)
	}

	type unit struct {
		name   string
		length float64
	}
	ladder := []unit{
		{"year", Year}, {"week", Week}, {"day", Day},
		{"hour", Hour}, {"minute", Minute},
	}

	var parts []string
	rem := seconds
	for _, u := range ladder {
		if count := math.Floor(rem / u.length); count >= 1 {
			parts = append(parts, plural(count, u.name))
			rem -= count * u.length
		}
	}
	if rem > 0 || len(parts) == 0 {
		parts = append(parts, formatSeconds(rem))
	}

	switch len(parts) {
	case 1:
		return parts[0]
	default:
		return strings.Join(parts[:len(parts)-1], ", ") + " and " + parts[len(parts)-1]
	}
}

func plural(count float64, name string) string {
	if count == 1 {
		return "1 " + name
	}
	return fmt.Sprintf("%g %ss", count, name)
}

func formatSeconds(s float64) string {
	rounded := math.Round(s*100) / 100
	if rounded == 1 {
		return "1 second"
	}
	return fmt.Sprintf("%g seconds", rounded)
}
