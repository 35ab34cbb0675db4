// Package query selects the todo records that make up a listing or an export.
package query

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/phrazzld/taskoverflow-api/internal/domain"
)

// Criteria narrows a record scan. A nil field places no constraint.
type Criteria struct {
	// Completed keeps only records whose completion flag equals the value.
	Completed *bool
	// WindowDays keeps only records with a deadline no later than now plus
	// this many days. Records without a deadline are dropped. May be negative.
	WindowDays *int
}

// IsZero reports whether c places no constraint at all.
func (c Criteria) IsZero() bool {
	return c.Completed == nil && c.WindowDays == nil
}

// Filter returns the records of todos matching c, in their input order.
// The input slice is not modified; the returned slice is newly allocated and
// shares the record pointers of the input.
func Filter(todos []*domain.Todo, c Criteria, now time.Time) []*domain.Todo {
	var limit time.Time
	if c.WindowDays != nil {
		limit = now.Add(time.Duration(*c.WindowDays) * 24 * time.Hour)
	}

	out := make([]*domain.Todo, 0, len(todos))
	for _, t := range todos {
		if c.Completed != nil && t.Completed != *c.Completed {
			continue
		}
		if c.WindowDays != nil {
			if t.DeadlineAt == nil || t.DeadlineAt.After(limit) {
				continue
			}
		}
		out = append(out, t)
	}
	return out
}

// ParseCriteria builds Criteria from raw query-string values. Empty values mean
// "no constraint". completed must be exactly "true" or "false"; window must be
// a base-10 integer. Anything else is a domain.ErrValidation.
func ParseCriteria(completed, window string) (Criteria, error) {
	var c Criteria

	switch completed {
	case "":
	case "true":
		v := true
		c.Completed = &v
	case "false":
		v := false
		c.Completed = &v
	default:
		return Criteria{}, fmt.Errorf("%w: completed must be true or false", domain.ErrValidation)
	}

	if window = strings.TrimSpace(window); window != "" {
		days, err := strconv.Atoi(window)
		if err != nil {
			return Criteria{}, fmt.Errorf("%w: window must be an integer number of days", domain.ErrValidation)
		}
		c.WindowDays = &days
	}

	return c, nil
}
