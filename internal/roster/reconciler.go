// Package roster reconciles raw participant lists into a validated roster.
//
// Call sites assemble participant lists independently, so the same identity
// can appear multiple times with different levels of detail. Reconciliation
// collapses duplicates with a well-defined tie-break, assigns a physical slot
// id to every survivor, and enforces the roster invariants.
package roster

import (
	"strings"

	"github.com/google/uuid"

	"github.com/example/meetingsync/internal/meeting"
)

// Reconciler deduplicates and validates participant lists.
type Reconciler struct {
	newID func() string
}

// NewReconciler constructs a Reconciler. When newID is nil, random UUIDs are
// used for generated slot ids.
func NewReconciler(newID func() string) *Reconciler {
	if newID == nil {
		newID = uuid.NewString
	}
	return &Reconciler{newID: newID}
}

// Reconcile collapses duplicate identities, assigns missing slot ids, and
// validates the resulting roster. actorIdentity is the normalized identity of
// the acting account, used to distinguish "meeting with yourself" from
// "cannot meet alone".
//
// Duplicate tie-break, in order: prefer the record marked scheduler, else the
// record that already has a name, else keep the first-seen record. The
// surviving record keeps the first-seen position so reconciliation is
// idempotent.
func (r *Reconciler) Reconcile(actorIdentity string, participants []meeting.ParticipantInfo) ([]meeting.ParticipantInfo, error) {
	actorIdentity = strings.ToLower(actorIdentity)

	order := make([]string, 0, len(participants))
	byIdentity := make(map[string]meeting.ParticipantInfo, len(participants))

	for _, candidate := range participants {
		identity := candidate.Identity()
		if identity == "" {
			continue
		}
		current, seen := byIdentity[identity]
		if !seen {
			order = append(order, identity)
			byIdentity[identity] = candidate
			continue
		}
		if preferCandidate(current, candidate) {
			byIdentity[identity] = candidate
		}
	}

	result := make([]meeting.ParticipantInfo, 0, len(order))
	schedulers := 0
	for _, identity := range order {
		participant := byIdentity[identity]
		if participant.SlotID == "" {
			participant.SlotID = r.newID()
		}
		if participant.Status == "" {
			participant.Status = meeting.StatusPending
		}
		if participant.IsScheduler() {
			schedulers++
		}
		result = append(result, participant)
	}

	if len(result) == 1 {
		if result[0].Identity() == actorIdentity {
			return nil, meeting.ErrMeetingWithYourself
		}
		return nil, meeting.ErrMeetingCreation
	}
	if len(result) == 0 {
		return nil, meeting.ErrMeetingCreation
	}
	if schedulers != 1 {
		return nil, meeting.ErrMultipleSchedulers
	}

	return result, nil
}

// preferCandidate reports whether candidate should replace current when both
// share an identity.
func preferCandidate(current, candidate meeting.ParticipantInfo) bool {
	if candidate.IsScheduler() != current.IsScheduler() {
		return candidate.IsScheduler()
	}
	if candidate.Name != "" && current.Name == "" {
		return true
	}
	return false
}
