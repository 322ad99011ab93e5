package scheduler

import (
	"fmt"
	"strings"
	"time"
)

// Plan is the descriptive form of an agent schedule.
type Plan struct {
	Expr        string
	Description string
	Next        time.Time
}

// PlanFor validates expr and computes its next run after now.
func PlanFor(expr string, now time.Time) (Plan, error) {
	c, err := ParseCron(expr)
	if err != nil {
		return Plan{}, err
	}
	return Plan{Expr: c.String(), Description: Describe(c), Next: c.Next(now)}, nil
}

var weekdayNames = [7]string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}

// Describe renders the common shapes as plain English and falls back to the
// raw expression for anything else.
func Describe(c *CronExpr) string {
	allDays := len(c.DayOfMonth) == 31 && len(c.Month) == 12
	allWeek := len(c.DayOfWeek) == 7
	fields := strings.Fields(c.raw)

	switch {
	case fields[0] == "*" && fields[1] == "*" && allDays && allWeek:
		return "every minute"
	case strings.HasPrefix(fields[0], "*/") && fields[1] == "*" && allDays && allWeek:
		return fmt.Sprintf("every %s minutes", fields[0][2:])
	case len(c.Minute) == 1 && fields[1] == "*" && allDays && allWeek:
		return fmt.Sprintf("every hour at minute %d", c.Minute[0])
	case len(c.Minute) == 1 && strings.HasPrefix(fields[1], "*/") && allDays && allWeek:
		return fmt.Sprintf("every %s hours at minute %d", fields[1][2:], c.Minute[0])
	}
	if len(c.Minute) != 1 || len(c.Hour) != 1 {
		return c.raw
	}
	at := fmt.Sprintf("%02d:%02d", c.Hour[0], c.Minute[0])
	switch {
	case allDays && allWeek:
		return "every day at " + at
	case allDays && fields[4] == "1-5":
		return "weekdays at " + at
	case allDays && len(c.DayOfWeek) == 1:
		return fmt.Sprintf("every %s at %s", weekdayNames[c.DayOfWeek[0]], at)
	case len(c.DayOfMonth) == 1 && len(c.Month) == 12 && allWeek:
		return fmt.Sprintf("monthly on day %d at %s", c.DayOfMonth[0], at)
	}
	return c.raw
}
