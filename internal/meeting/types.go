// Package meeting defines the domain model shared by the scheduling engine:
// participants, encrypted slot records, recurring series, and the closed error
// taxonomy surfaced to callers.
package meeting

import (
	"fmt"
	"strings"
	"time"
)

// ParticipantType identifies the role a participant plays in a meeting.
type ParticipantType string

const (
	// ParticipantTypeScheduler marks the participant who created the meeting.
	// Exactly one participant per meeting carries this type.
	ParticipantTypeScheduler ParticipantType = "scheduler"
	// ParticipantTypeOwner marks the account the meeting was scheduled with.
	ParticipantTypeOwner ParticipantType = "owner"
	// ParticipantTypeInvitee marks any other attendee.
	ParticipantTypeInvitee ParticipantType = "invitee"
)

// ParticipationStatus tracks a participant's response to the invitation.
type ParticipationStatus string

const (
	// StatusPending indicates no response yet.
	StatusPending ParticipationStatus = "pending"
	// StatusAccepted indicates the participant accepted.
	StatusAccepted ParticipationStatus = "accepted"
	// StatusRejected indicates the participant declined.
	StatusRejected ParticipationStatus = "rejected"
)

// ParticipantInfo describes one attendee of a logical meeting. A participant
// is identified by account address when registered, by guest email otherwise,
// and by display name as a last resort.
type ParticipantInfo struct {
	AccountAddress string              `json:"account_address,omitempty"`
	GuestEmail     string              `json:"guest_email,omitempty"`
	Name           string              `json:"name,omitempty"`
	Type           ParticipantType     `json:"type"`
	Status         ParticipationStatus `json:"status"`
	// SlotID is the identifier of this participant's own physical record.
	SlotID string `json:"slot_id"`
}

// Identity returns the normalized identity key for deduplication and diffing:
// the lower-cased account address, else the lower-cased guest email, else the
// verbatim name.
func (p ParticipantInfo) Identity() string {
	if p.AccountAddress != "" {
		return strings.ToLower(p.AccountAddress)
	}
	if p.GuestEmail != "" {
		return strings.ToLower(p.GuestEmail)
	}
	return p.Name
}

// IsGuest reports whether the participant has no registered account.
func (p ParticipantInfo) IsGuest() bool {
	return p.AccountAddress == "" && p.GuestEmail != ""
}

// IsScheduler reports whether the participant carries the scheduler role.
func (p ParticipantInfo) IsScheduler() bool {
	return p.Type == ParticipantTypeScheduler
}

// Repeat enumerates the supported recurrence presets.
type Repeat string

const (
	// RepeatNone marks a one-off meeting.
	RepeatNone Repeat = ""
	// RepeatDaily repeats every day.
	RepeatDaily Repeat = "daily"
	// RepeatWeekly repeats on the weekday of the first occurrence.
	RepeatWeekly Repeat = "weekly"
	// RepeatMonthly repeats on the n-th weekday of the month of the first
	// occurrence.
	RepeatMonthly Repeat = "monthly"
)

// Permission grants a non-scheduler participant extra mutation rights.
type Permission string

const (
	// PermissionInviteGuests allows changing the participant roster.
	PermissionInviteGuests Permission = "invite_guests"
	// PermissionEditDetails allows changing title, content, and meeting URL.
	PermissionEditDetails Permission = "edit_details"
)

// Slot is one physical record of a logical meeting: one per participant per
// meeting instance. The ciphertext is decryptable only by the owning
// participant or the shared conference key.
type Slot struct {
	ID             string
	AccountAddress string
	GuestEmail     string
	Start          time.Time
	End            time.Time
	// Version is a monotonic counter shared by every slot of the same
	// logical meeting; divergence indicates a conflicting write.
	Version     int64
	Ciphertext  string
	ContentHash string
}

// Owner returns the normalized identity holding the slot.
func (s Slot) Owner() string {
	if s.AccountAddress != "" {
		return strings.ToLower(s.AccountAddress)
	}
	return strings.ToLower(s.GuestEmail)
}

// Duration returns the slot length.
func (s Slot) Duration() time.Duration {
	return s.End.Sub(s.Start)
}

// SlotSeries is the stored form of a recurring meeting: the base slot plus the
// recurrence rule. Occurrences without a materialized exception are synthesized
// on read.
type SlotSeries struct {
	Slot
	RRule string
}

// SlotInstance is one occurrence of a series. Materialized instances exist as
// physical records (rescheduled or cancelled exceptions); ghost instances are
// computed projections sharing the series ciphertext.
type SlotInstance struct {
	Slot
	SeriesID  string
	Cancelled bool
	Ghost     bool
}

// GhostInstanceID derives the identifier of a non-materialized occurrence from
// its series and start time.
func GhostInstanceID(seriesID string, start time.Time) string {
	return fmt.Sprintf("%s_instance_%d", seriesID, start.UnixMilli())
}

// SeriesIDFromInstanceID recovers the parent series id from an instance id
// produced by GhostInstanceID. It reports false for ids of other shapes.
func SeriesIDFromInstanceID(instanceID string) (string, bool) {
	idx := strings.LastIndex(instanceID, "_instance_")
	if idx <= 0 {
		return "", false
	}
	return instanceID[:idx], true
}
