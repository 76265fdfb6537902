package slotdiff

import (
	"slices"
	"testing"

	"github.com/example/meetingsync/internal/meeting"
)

func slotFor(id, address, email string) meeting.Slot {
	return meeting.Slot{ID: id, AccountAddress: address, GuestEmail: email, Version: 1}
}

func TestComputeRosterSwap(t *testing.T) {
	t.Parallel()

	// Actor 0xA removes 0xB and adds 0xC.
	existing := []meeting.Slot{
		slotFor("slot-a", "0xA", ""),
		slotFor("slot-b", "0xB", ""),
	}
	requested := []meeting.ParticipantInfo{
		{AccountAddress: "0xA", Type: meeting.ParticipantTypeScheduler},
		{AccountAddress: "0xC"},
	}

	result := Compute("0xA", existing, requested)

	if !slices.Equal(result.ToKeep, []string{"0xa"}) {
		t.Fatalf("ToKeep = %v, want [0xa]", result.ToKeep)
	}
	if !slices.Equal(result.ToRemove, []string{"0xb"}) {
		t.Fatalf("ToRemove = %v, want [0xb]", result.ToRemove)
	}
	if !slices.Equal(result.ToAdd, []string{"0xc"}) {
		t.Fatalf("ToAdd = %v, want [0xc]", result.ToAdd)
	}
	if kept, ok := result.KeptSlots["0xa"]; !ok || kept.ID != "slot-a" {
		t.Fatalf("KeptSlots[0xa] = %+v, %v", kept, ok)
	}
}

func TestComputePartitionsExistingRoster(t *testing.T) {
	t.Parallel()

	existing := []meeting.Slot{
		slotFor("slot-a", "0xA", ""),
		slotFor("slot-b", "0xB", ""),
		slotFor("slot-c", "0xC", ""),
		slotFor("slot-g", "", "guest@example.com"),
	}
	requested := []meeting.ParticipantInfo{
		{AccountAddress: "0xB"},
		{AccountAddress: "0xD"},
		{GuestEmail: "other@example.com"},
	}

	result := Compute("0xA", existing, requested)

	// Every existing address lands in exactly one of ToKeep or ToRemove.
	for _, address := range []string{"0xa", "0xb", "0xc"} {
		inKeep := slices.Contains(result.ToKeep, address)
		inRemove := slices.Contains(result.ToRemove, address)
		if inKeep == inRemove {
			t.Fatalf("address %q: keep=%v remove=%v, want exactly one", address, inKeep, inRemove)
		}
	}
	// The actor survives even though the requested roster omits them.
	if !slices.Contains(result.ToKeep, "0xa") {
		t.Fatalf("actor missing from ToKeep: %v", result.ToKeep)
	}
	// Guest partitions track emails independently.
	if !slices.Equal(result.GuestsToRemove, []string{"guest@example.com"}) {
		t.Fatalf("GuestsToRemove = %v", result.GuestsToRemove)
	}
	if !slices.Equal(result.GuestsToAdd, []string{"other@example.com"}) {
		t.Fatalf("GuestsToAdd = %v", result.GuestsToAdd)
	}
}

func TestComputeUnchangedRoster(t *testing.T) {
	t.Parallel()

	existing := []meeting.Slot{
		slotFor("slot-a", "0xA", ""),
		slotFor("slot-b", "0xB", ""),
	}
	requested := []meeting.ParticipantInfo{
		{AccountAddress: "0xA", Type: meeting.ParticipantTypeScheduler},
		{AccountAddress: "0xB"},
	}

	result := Compute("0xA", existing, requested)

	if len(result.ToRemove) != 0 || len(result.ToAdd) != 0 {
		t.Fatalf("unchanged roster produced mutations: remove=%v add=%v", result.ToRemove, result.ToAdd)
	}
	if ChangesParticipantCount(result) {
		t.Fatal("ChangesParticipantCount = true for unchanged roster")
	}
}

func TestComputeGuestEmailNormalization(t *testing.T) {
	t.Parallel()

	existing := []meeting.Slot{
		slotFor("slot-a", "0xA", ""),
		slotFor("slot-g", "", "Guest@Example.com"),
	}
	requested := []meeting.ParticipantInfo{
		{AccountAddress: "0xA", Type: meeting.ParticipantTypeScheduler},
		{GuestEmail: "guest@example.COM"},
	}

	result := Compute("0xA", existing, requested)

	if !slices.Equal(result.GuestsToKeep, []string{"guest@example.com"}) {
		t.Fatalf("GuestsToKeep = %v", result.GuestsToKeep)
	}
	if len(result.GuestsToRemove) != 0 || len(result.GuestsToAdd) != 0 {
		t.Fatalf("case difference treated as roster change: %+v", result)
	}
}

func TestRemovedSlotIDs(t *testing.T) {
	t.Parallel()

	existing := []meeting.Slot{
		slotFor("slot-a", "0xA", ""),
		slotFor("slot-b", "0xB", ""),
		slotFor("slot-g", "", "guest@example.com"),
	}
	requested := []meeting.ParticipantInfo{
		{AccountAddress: "0xA", Type: meeting.ParticipantTypeScheduler},
	}

	result := Compute("0xA", existing, requested)
	ids := RemovedSlotIDs(existing, result)
	slices.Sort(ids)
	if !slices.Equal(ids, []string{"slot-b", "slot-g"}) {
		t.Fatalf("RemovedSlotIDs = %v, want [slot-b slot-g]", ids)
	}
}

func TestRemoved(t *testing.T) {
	t.Parallel()

	result := Result{
		ToRemove:       []string{"0xb"},
		GuestsToRemove: []string{"guest@example.com"},
	}
	if !Removed(result, "0xb") {
		t.Fatal("expected 0xb removed")
	}
	if !Removed(result, "guest@example.com") {
		t.Fatal("expected guest removed")
	}
	if Removed(result, "0xa") {
		t.Fatal("unexpected removal for 0xa")
	}
}

func TestChangesParticipantCount(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		result Result
		want   bool
	}{
		{"no changes", Result{ToKeep: []string{"0xa"}}, false},
		{"address added", Result{ToAdd: []string{"0xc"}}, true},
		{"address removed", Result{ToRemove: []string{"0xb"}}, true},
		{"guest added", Result{GuestsToAdd: []string{"g@example.com"}}, true},
		{"guest removed", Result{GuestsToRemove: []string{"g@example.com"}}, true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := ChangesParticipantCount(tt.result); got != tt.want {
				t.Fatalf("ChangesParticipantCount = %v, want %v", got, tt.want)
			}
		})
	}
}
