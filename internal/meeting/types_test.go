package meeting

import (
	"testing"
	"time"
)

func timeMustParse(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		t.Fatalf("parse %q: %v", value, err)
	}
	return parsed
}

func TestSlotOwner(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		slot Slot
		want string
	}{
		{"address lowercased", Slot{AccountAddress: "0xABC"}, "0xabc"},
		{"guest email fallback", Slot{GuestEmail: "Guest@Example.com"}, "guest@example.com"},
		{"address wins", Slot{AccountAddress: "0xA", GuestEmail: "x@y.z"}, "0xa"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.slot.Owner(); got != tt.want {
				t.Fatalf("Owner() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSlotDuration(t *testing.T) {
	t.Parallel()

	slot := Slot{
		Start: timeMustParse(t, "2026-03-02T10:00:00Z"),
		End:   timeMustParse(t, "2026-03-02T10:45:00Z"),
	}
	if got := slot.Duration(); got != 45*time.Minute {
		t.Fatalf("Duration() = %v, want 45m", got)
	}
}

func TestParticipantRolePredicates(t *testing.T) {
	t.Parallel()

	guest := ParticipantInfo{GuestEmail: "g@example.com"}
	if !guest.IsGuest() {
		t.Fatal("expected guest")
	}
	registered := ParticipantInfo{AccountAddress: "0xA", GuestEmail: "g@example.com"}
	if registered.IsGuest() {
		t.Fatal("address holder is not a guest")
	}
	scheduler := ParticipantInfo{Type: ParticipantTypeScheduler}
	if !scheduler.IsScheduler() {
		t.Fatal("expected scheduler")
	}
}
