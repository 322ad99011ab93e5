// Package scheduler validates agent cron expressions and describes when they
// would next run. Nothing here fires jobs.
package scheduler

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidSchedule wraps every parse failure.
var ErrInvalidSchedule = errors.New("invalid schedule")

// CronExpr represents a parsed 5-field cron expression.
// Fields: minute, hour, day-of-month, month, day-of-week.
type CronExpr struct {
	Minute     []int
	Hour       []int
	DayOfMonth []int
	Month      []int
	DayOfWeek  []int

	raw string
}

type fieldSpec struct {
	name     string
	min, max int
}

var fieldSpecs = [5]fieldSpec{
	{"minute", 0, 59},
	{"hour", 0, 23},
	{"day-of-month", 1, 31},
	{"month", 1, 12},
	{"day-of-week", 0, 6},
}

// ParseCron parses a standard 5-field cron expression.
// Supports: *, */N, N, N-M, N-M/S and comma-separated lists.
func ParseCron(expr string) (*CronExpr, error) {
	fields := strings.Fields(expr)
	if len(fields) != 5 {
		return nil, fmt.Errorf("%w: expected 5 fields, got %d", ErrInvalidSchedule, len(fields))
	}

	var parsed [5][]int
	for i, f := range fields {
		vals, err := parseField(f, fieldSpecs[i].min, fieldSpecs[i].max)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidSchedule, fieldSpecs[i].name, err)
		}
		parsed[i] = vals
	}
	return &CronExpr{
		Minute:     parsed[0],
		Hour:       parsed[1],
		DayOfMonth: parsed[2],
		Month:      parsed[3],
		DayOfWeek:  parsed[4],
		raw:        strings.Join(fields, " "),
	}, nil
}

// String returns the normalized expression.
func (c *CronExpr) String() string { return c.raw }

// Matches returns true if t falls within the cron expression.
func (c *CronExpr) Matches(t time.Time) bool {
	return slices.Contains(c.Minute, t.Minute()) &&
		slices.Contains(c.Hour, t.Hour()) &&
		slices.Contains(c.DayOfMonth, t.Day()) &&
		slices.Contains(c.Month, int(t.Month())) &&
		slices.Contains(c.DayOfWeek, int(t.Weekday()))
}

// Next returns the next time after t that matches the cron expression.
// Searches up to 2 years ahead; returns zero time if not found.
func (c *CronExpr) Next(t time.Time) time.Time {
	candidate := t.Truncate(time.Minute).Add(time.Minute)
	limit := t.AddDate(2, 0, 0)
	loc := candidate.Location()

	for candidate.Before(limit) {
		y, m, d := candidate.Date()
		switch {
		case !slices.Contains(c.Month, int(m)):
			candidate = time.Date(y, m+1, 1, 0, 0, 0, 0, loc)
		case !slices.Contains(c.DayOfMonth, d) || !slices.Contains(c.DayOfWeek, int(candidate.Weekday())):
			candidate = time.Date(y, m, d+1, 0, 0, 0, 0, loc)
		case !slices.Contains(c.Hour, candidate.Hour()):
			candidate = time.Date(y, m, d, candidate.Hour()+1, 0, 0, 0, loc)
		case !slices.Contains(c.Minute, candidate.Minute()):
			candidate = candidate.Add(time.Minute)
		default:
			return candidate
		}
	}
	return time.Time{}
}

// parseField parses a single cron field into a sorted list of integers.
func parseField(field string, min, max int) ([]int, error) {
	var out []int
	for _, part := range strings.Split(field, ",") {
		vals, err := parsePart(part, min, max)
		if err != nil {
			return nil, err
		}
		out = append(out, vals...)
	}
	slices.Sort(out)
	return slices.Compact(out), nil
}

// parsePart parses a single part: *, */N, N, N-M, N-M/S.
func parsePart(part string, min, max int) ([]int, error) {
	rng, stepStr, hasStep := strings.Cut(part, "/")
	step := 1
	if hasStep {
		s, err := strconv.Atoi(stepStr)
		if err != nil || s <= 0 {
			return nil, fmt.Errorf("invalid step %q", part)
		}
		step = s
	}

	lo, hi := min, max
	switch {
	case rng == "*":
	case strings.Contains(rng, "-"):
		loStr, hiStr, _ := strings.Cut(rng, "-")
		var err error
		if lo, err = strconv.Atoi(loStr); err != nil {
			return nil, fmt.Errorf("invalid range start %q", loStr)
		}
		if hi, err = strconv.Atoi(hiStr); err != nil {
			return nil, fmt.Errorf("invalid range end %q", hiStr)
		}
		if lo < min || hi > max || lo > hi {
			return nil, fmt.Errorf("range %d-%d out of bounds [%d,%d]", lo, hi, min, max)
		}
	default:
		if hasStep {
			return nil, fmt.Errorf("step needs a range in %q", part)
		}
		val, err := strconv.Atoi(rng)
		if err != nil {
			return nil, fmt.Errorf("invalid value %q", part)
		}
		if val < min || val > max {
			return nil, fmt.Errorf("value %d out of bounds [%d,%d]", val, min, max)
		}
		return []int{val}, nil
	}

	out := make([]int, 0, (hi-lo)/step+1)
	for i := lo; i <= hi; i += step {
		out = append(out, i)
	}
	return out, nil
}
