package application

import (
	"strings"
	"time"

	"github.com/example/meetingsync/internal/envelope"
	"github.com/example/meetingsync/internal/meeting"
)

// Actor identifies the account or guest invoking a service method, together
// with the key material used to open its own slot records.
type Actor struct {
	AccountAddress string
	GuestEmail     string
	Keys           envelope.KeyMaterial
}

// Identity returns the actor's normalized identity key.
func (a Actor) Identity() string {
	if a.AccountAddress != "" {
		return strings.ToLower(a.AccountAddress)
	}
	return strings.ToLower(a.GuestEmail)
}

// IsGuest reports whether the actor has no registered account.
func (a Actor) IsGuest() bool {
	return a.AccountAddress == "" && a.GuestEmail != ""
}

// MeetingInput captures caller provided meeting fields.
type MeetingInput struct {
	Title        string
	Content      string
	MeetingURL   string
	Provider     string
	Start        time.Time
	End          time.Time
	Repeat       meeting.Repeat
	Permissions  []meeting.Permission
	Reminders    []int
	Participants []meeting.ParticipantInfo
}

// ScheduleMeetingParams wraps the data required to schedule a new meeting.
type ScheduleMeetingParams struct {
	Actor Actor
	Input MeetingInput
}

// UpdateMeetingParams wraps the data required to update an existing meeting.
// SlotID addresses the actor's own physical record; Version is the version
// the caller last observed.
type UpdateMeetingParams struct {
	Actor   Actor
	SlotID  string
	Version int64
	Input   MeetingInput
}

// UpdateInstanceParams wraps the data required to update one occurrence of a
// recurring meeting without mutating the parent series.
type UpdateInstanceParams struct {
	Actor           Actor
	SeriesID        string
	OccurrenceStart time.Time
	Version         int64
	Input           MeetingInput
}

// CancelMeetingParams wraps the data required to cancel a meeting.
type CancelMeetingParams struct {
	Actor   Actor
	SlotID  string
	Version int64
}

// CancelInstanceParams wraps the data required to cancel a single occurrence
// of a recurring meeting. The occurrence is materialized as a cancelled
// instance; the parent series is untouched.
type CancelInstanceParams struct {
	Actor           Actor
	SeriesID        string
	OccurrenceStart time.Time
	Version         int64
}

// ListMeetingsParams bounds a meeting listing for the acting participant.
type ListMeetingsParams struct {
	Actor       Actor
	WindowStart time.Time
	WindowEnd   time.Time
}

// Meeting is the decrypted view of one slot record returned to callers.
type Meeting struct {
	Slot     meeting.Slot
	Envelope meeting.MeetingEnvelope
	SeriesID string
	Ghost    bool
}

// MutationResult reports the outcome of a successful mutation. ToAdd and
// GuestsToAdd are threaded through so the caller's persistence layer can
// materialize per-occurrence slots on the update-instance path.
type MutationResult struct {
	MeetingID      string
	Version        int64
	Slots          []meeting.Slot
	ToAdd          []string
	GuestsToAdd    []string
	RemovedSlotIDs []string
}

// CancelResult reports the physical records removed by a cancellation.
type CancelResult struct {
	RemovedSlotIDs []string
}

// Account is a directory entry resolved for a participant address.
type Account struct {
	Address     string
	DisplayName string
	PublicKey   string
}

// SlotWindow bundles the records a store returns for a listing window.
type SlotWindow struct {
	Slots     []meeting.Slot
	Series    []meeting.SlotSeries
	Instances []meeting.SlotInstance
}

// ValidationError captures field level validation issues that callers can
// surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	return "validation failed"
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}
