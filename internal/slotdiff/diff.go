// Package slotdiff computes which physical slot records must be removed, kept,
// or created when a meeting's participant roster changes.
package slotdiff

import (
	"strings"

	"github.com/example/meetingsync/internal/meeting"
	"github.com/example/meetingsync/internal/setutil"
)

// Result partitions the existing and requested rosters. Addresses and guest
// emails are tracked in parallel: guests hold slots keyed by email rather than
// account address.
//
// Invariants: ToRemove and ToKeep partition the existing roster exactly;
// ToKeep and ToAdd partition the requested roster restricted to addresses
// (likewise for the guest sets over emails).
type Result struct {
	// ToRemove lists addresses whose physical slots are deleted.
	ToRemove []string
	// ToKeep lists addresses whose physical slots have their ciphertext
	// replaced in place.
	ToKeep []string
	// ToAdd lists addresses that need a newly created physical slot.
	ToAdd []string

	GuestsToRemove []string
	GuestsToKeep   []string
	GuestsToAdd    []string

	// KeptSlots maps each surviving identity back to its pre-existing
	// physical record.
	KeptSlots map[string]meeting.Slot
}

// Compute derives the remove/keep/add sets for a mutation. actorAddress is the
// acting account; its existing slot is always kept even when the requested
// roster omits it, so the actor's record can carry the updated ciphertext.
func Compute(actorAddress string, existing []meeting.Slot, requested []meeting.ParticipantInfo) Result {
	actorAddress = strings.ToLower(actorAddress)

	existingAddresses := make([]string, 0, len(existing))
	existingGuests := make([]string, 0)
	slotsByIdentity := make(map[string]meeting.Slot, len(existing))
	for _, slot := range existing {
		owner := slot.Owner()
		if owner == "" {
			continue
		}
		if slot.AccountAddress != "" {
			existingAddresses = append(existingAddresses, owner)
		} else {
			existingGuests = append(existingGuests, owner)
		}
		slotsByIdentity[owner] = slot
	}

	requestedAddresses := make([]string, 0, len(requested))
	requestedGuests := make([]string, 0)
	for _, participant := range requested {
		if participant.AccountAddress != "" {
			requestedAddresses = append(requestedAddresses, strings.ToLower(participant.AccountAddress))
		} else if participant.GuestEmail != "" {
			requestedGuests = append(requestedGuests, strings.ToLower(participant.GuestEmail))
		}
	}

	keep := setutil.Intersect(existingAddresses, setutil.Union([]string{actorAddress}, requestedAddresses))
	result := Result{
		ToKeep:         keep,
		ToRemove:       setutil.Diff(existingAddresses, keep),
		ToAdd:          setutil.Diff(requestedAddresses, existingAddresses),
		GuestsToKeep:   setutil.Intersect(existingGuests, requestedGuests),
		GuestsToRemove: setutil.Diff(existingGuests, requestedGuests),
		GuestsToAdd:    setutil.Diff(requestedGuests, existingGuests),
		KeptSlots:      make(map[string]meeting.Slot),
	}

	for _, identity := range result.ToKeep {
		result.KeptSlots[identity] = slotsByIdentity[identity]
	}
	for _, identity := range result.GuestsToKeep {
		result.KeptSlots[identity] = slotsByIdentity[identity]
	}

	return result
}

// RemovedSlotIDs returns the physical record ids behind ToRemove and
// GuestsToRemove, resolved against the existing slots.
func RemovedSlotIDs(existing []meeting.Slot, result Result) []string {
	removed := setutil.Union(result.ToRemove, result.GuestsToRemove)
	ids := make([]string, 0, len(removed))
	for _, slot := range existing {
		if setutil.Contains(removed, slot.Owner()) {
			ids = append(ids, slot.ID)
		}
	}
	return ids
}

// Removed reports whether the given normalized identity is in either removal
// set.
func Removed(result Result, identity string) bool {
	return setutil.Contains(result.ToRemove, identity) || setutil.Contains(result.GuestsToRemove, identity)
}

// ChangesParticipantCount reports whether the diff alters the number of
// physical records, which non-schedulers may not do without the invite-guests
// permission.
func ChangesParticipantCount(result Result) bool {
	return len(result.ToRemove) > 0 || len(result.ToAdd) > 0 ||
		len(result.GuestsToRemove) > 0 || len(result.GuestsToAdd) > 0
}
