// Package testfixtures provides deterministic building blocks for engine
// tests: a controllable clock, sequential id generation, participant
// fixtures, and an in-memory slot store.
package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/meetingsync/internal/meeting"
)

var participantCounter uint64

var referenceTime = time.Date(2026, time.March, 2, 10, 0, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures:
// a Monday, 10:00 UTC.
func ReferenceTime() time.Time {
	return referenceTime
}

// ParticipantOption configures a generated participant fixture.
type ParticipantOption func(*meeting.ParticipantInfo)

// NewParticipant returns a deterministic registered participant.
func NewParticipant(opts ...ParticipantOption) meeting.ParticipantInfo {
	idx := atomic.AddUint64(&participantCounter, 1)
	fixture := meeting.ParticipantInfo{
		AccountAddress: fmt.Sprintf("0x%040d", idx),
		Name:           fmt.Sprintf("Participant %03d", idx),
		Type:           meeting.ParticipantTypeInvitee,
		Status:         meeting.StatusPending,
		SlotID:         fmt.Sprintf("slot-%03d", idx),
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithAddress overrides the generated account address.
func WithAddress(address string) ParticipantOption {
	return func(p *meeting.ParticipantInfo) {
		p.AccountAddress = address
	}
}

// WithGuestEmail turns the fixture into a guest participant.
func WithGuestEmail(email string) ParticipantOption {
	return func(p *meeting.ParticipantInfo) {
		p.AccountAddress = ""
		p.GuestEmail = email
	}
}

// WithName overrides the display name.
func WithName(name string) ParticipantOption {
	return func(p *meeting.ParticipantInfo) {
		p.Name = name
	}
}

// WithType overrides the participant role.
func WithType(participantType meeting.ParticipantType) ParticipantOption {
	return func(p *meeting.ParticipantInfo) {
		p.Type = participantType
	}
}

// WithSlotID overrides the physical record id.
func WithSlotID(slotID string) ParticipantOption {
	return func(p *meeting.ParticipantInfo) {
		p.SlotID = slotID
	}
}

// Scheduler returns a scheduler participant for the given address.
func Scheduler(address string, opts ...ParticipantOption) meeting.ParticipantInfo {
	base := []ParticipantOption{WithAddress(address), WithType(meeting.ParticipantTypeScheduler)}
	return NewParticipant(append(base, opts...)...)
}

// Invitee returns an invitee participant for the given address.
func Invitee(address string, opts ...ParticipantOption) meeting.ParticipantInfo {
	return NewParticipant(append([]ParticipantOption{WithAddress(address)}, opts...)...)
}
