package services

import (
	"regexp"
	"time"

	"github.com/dmitrijs2005/filedrop/internal/server/models"
)

// durationSpec matches share lifetimes like "30minute", "1hour", "3day",
// "2week", "6month", "1year".
var durationSpec = regexp.MustCompile(`^(\d+)(minute|hour|day|week|month|year)$`)

// ResolveDueDate converts a share duration spec into an absolute due date.
// "never" maps to the far-future sentinel; anything unparseable falls back
// to one hour, matching the upload form's default.
func ResolveDueDate(now time.Time, spec string) time.Time {
	if spec == "never" {
		return models.NeverExpires
	}

	n, unit := 1, "hour"
	if m := durationSpec.FindStringSubmatch(spec); m != nil {
		unit = m[2]
		n = atoi(m[1])
	}

	switch unit {
	case "minute":
		return now.Add(time.Duration(n) * time.Minute)
	case "day":
		return now.AddDate(0, 0, n)
	case "week":
		return now.AddDate(0, 0, 7*n)
	case "month":
		return now.AddDate(0, n, 0)
	case "year":
		return now.AddDate(n, 0, 0)
	default:
		return now.Add(time.Duration(n) * time.Hour)
	}
}

// atoi is strconv.Atoi for digit-only strings already vetted by the regexp.
func atoi(s string) int {
	n := 0
	for _, r := range s {
		n = n*10 + int(r-'0')
	}
	return n
}
