package domain

import (
	"fmt"
	"math"
	"time"
)

const (
	day   = 24 * time.Hour
	month = 30 * day
	year  = 365 * day
)

// HumanizeAge renders elapsed as a whole number of its largest unit, from
// seconds up to years. Months are 30 days and years 365 days.
func HumanizeAge(elapsed time.Duration) string {
	if elapsed < 0 {
		elapsed = 0
	}

	var (
		unit time.Duration
		name string
	)
	switch {
	case elapsed < time.Minute:
		unit, name = time.Second, "seconds"
	case elapsed < time.Hour:
		unit, name = time.Minute, "minutes"
	case elapsed < day:
		unit, name = time.Hour, "hours"
	case elapsed < month:
		unit, name = day, "days"
	case elapsed < year:
		unit, name = month, "months"
	default:
		unit, name = year, "years"
	}
	return fmt.Sprintf("%d %s", int64(math.Round(float64(elapsed)/float64(unit))), name)
}
