// Package ics renders a participant's decrypted meetings as an iCalendar
// feed so external calendar applications can subscribe to them read-only.
package ics

import (
	"fmt"

	ical "github.com/arran4/golang-ical"

	"github.com/example/meetingsync/internal/application"
	"github.com/example/meetingsync/internal/meeting"
)

// ProductID identifies the generator in emitted calendars.
const ProductID = "-//meetingsync//EN"

// Export renders the given meetings into a serialized VCALENDAR. Each slot
// becomes one VEVENT keyed by its physical record id, so re-exports update
// rather than duplicate events in subscribing clients.
func Export(meetings []application.Meeting) (string, error) {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(ProductID)

	for _, m := range meetings {
		if m.Slot.ID == "" {
			return "", fmt.Errorf("ics: meeting without slot id")
		}
		event := cal.AddEvent(m.Slot.ID)
		event.SetStartAt(m.Slot.Start)
		event.SetEndAt(m.Slot.End)
		event.SetSummary(m.Envelope.Title)
		if m.Envelope.Content != "" {
			event.SetDescription(m.Envelope.Content)
		}
		if m.Envelope.MeetingURL != "" {
			event.SetURL(m.Envelope.MeetingURL)
			event.SetLocation(m.Envelope.MeetingURL)
		}
		addAttendees(event, m.Envelope.Participants)
	}

	return cal.Serialize(), nil
}

// addAttendees renders each participant as an ATTENDEE property. Guests are
// addressed by email; registered participants by their account address.
func addAttendees(event *ical.VEvent, participants []meeting.ParticipantInfo) {
	for _, participant := range participants {
		address := participant.GuestEmail
		if address == "" {
			address = participant.AccountAddress
		}
		if address == "" {
			continue
		}
		if participant.Name != "" {
			event.AddAttendee(address, ical.WithCN(participant.Name))
			continue
		}
		event.AddAttendee(address)
	}
}
