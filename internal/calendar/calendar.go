// Package calendar renders todo snapshots as iCalendar documents.
package calendar

import (
	"fmt"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"

	"github.com/phrazzld/taskoverflow-api/internal/domain"
)

const (
	// ProductID identifies the generator in the PRODID property.
	ProductID = "-//Taskoverflow Calendar//mxm.dk//"
	// Version is the iCalendar version emitted in every document.
	Version = "2.0"
	// ContentType is the media type of a rendered document.
	ContentType = "text/calendar; charset=utf-8"
)

// Event is one parsed VEVENT.
type Event struct {
	UID         string
	Summary     string
	Description string
	// Start is nil when the event carries no DTSTART.
	Start *time.Time
}

// Build renders one VEVENT per snapshot, in input order.
//
// Deadlines must use domain.DeadlineLayout and are read as UTC. A snapshot
// without a deadline produces an event without DTSTART. DESCRIPTION is always
// written, empty or not. The first malformed
// deadline aborts the whole build with an error wrapping domain.ErrInvalidDeadline.
func Build(todos []domain.TodoSnapshot, stamp time.Time) (string, error) {
	cal := ics.NewCalendar()
	cal.SetProductId(ProductID)
	cal.SetVersion(Version)

	stamp = stamp.UTC()
	for i, t := range todos {
		event := cal.AddEvent(t.UID())
		event.SetDtStampTime(stamp)
		event.SetSummary(t.Title)
		event.SetDescription(t.Description)

		if t.DeadlineAt == "" {
			continue
		}
		start, err := time.ParseInLocation(domain.DeadlineLayout, t.DeadlineAt, time.UTC)
		if err != nil {
			return "", fmt.Errorf("todo %d (position %d): %w: %q",
				t.ID, i, domain.ErrInvalidDeadline, t.DeadlineAt)
		}
		event.SetStartAt(start)
	}

	return cal.Serialize(), nil
}

// Parse reads a document produced by Build (or any iCalendar text) and returns
// its events in document order.
func Parse(doc string) ([]Event, error) {
	cal, err := ics.ParseCalendar(strings.NewReader(doc))
	if err != nil {
		return nil, fmt.Errorf("parse calendar: %w", err)
	}

	vevents := cal.Events()
	events := make([]Event, 0, len(vevents))
	for _, ve := range vevents {
		e := Event{
			UID:         ve.Id(),
			Summary:     propertyText(ve, ics.ComponentPropertySummary),
			Description: propertyText(ve, ics.ComponentPropertyDescription),
		}
		if ve.GetProperty(ics.ComponentPropertyDtStart) != nil {
			start, err := ve.GetStartAt()
			if err != nil {
				return nil, fmt.Errorf("event %s: dtstart: %w", e.UID, err)
			}
			start = start.UTC()
			e.Start = &start
		}
		events = append(events, e)
	}
	return events, nil
}

func propertyText(ve *ics.VEvent, prop ics.ComponentProperty) string {
	p := ve.GetProperty(prop)
	if p == nil {
		return ""
	}
	return unescapeText(p.Value)
}

var textUnescaper = strings.NewReplacer(
	`\\`, `\`,
	`\;`, `;`,
	`\,`, `,`,
	`\n`, "\n",
	`\N`, "\n",
)

func unescapeText(s string) string {
	return textUnescaper.Replace(s)
}
