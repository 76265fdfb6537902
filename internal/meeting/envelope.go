package meeting

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// EnvelopeSchemaVersion is the current wire schema of MeetingEnvelope.
// Decoders reject payloads carrying a newer version.
const EnvelopeSchemaVersion = 1

// MeetingEnvelope is the plaintext payload describing a meeting before it is
// encrypted per participant. Each recipient's copy lists the physical record
// ids of every other participant so siblings can be resolved without a
// central index.
type MeetingEnvelope struct {
	SchemaVersion  int               `json:"schema_version"`
	MeetingID      string            `json:"meeting_id"`
	Title          string            `json:"title"`
	Content        string            `json:"content,omitempty"`
	MeetingURL     string            `json:"meeting_url,omitempty"`
	Provider       string            `json:"provider,omitempty"`
	Recurrence     Repeat            `json:"recurrence,omitempty"`
	Permissions    []Permission      `json:"permissions,omitempty"`
	Reminders      []int             `json:"reminders,omitempty"`
	Participants   []ParticipantInfo `json:"participants"`
	RelatedSlotIDs []string          `json:"related_slot_ids"`
}

// Encode serializes the envelope to its canonical JSON form, stamping the
// current schema version.
func (e MeetingEnvelope) Encode() ([]byte, error) {
	e.SchemaVersion = EnvelopeSchemaVersion
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("meeting: encode envelope: %w", err)
	}
	return data, nil
}

// DecodeEnvelope parses a plaintext payload back into a MeetingEnvelope.
func DecodeEnvelope(data []byte) (MeetingEnvelope, error) {
	var env MeetingEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return MeetingEnvelope{}, fmt.Errorf("meeting: decode envelope: %w", err)
	}
	if env.SchemaVersion > EnvelopeSchemaVersion {
		return MeetingEnvelope{}, fmt.Errorf("meeting: unsupported envelope schema %d", env.SchemaVersion)
	}
	return env, nil
}

// HashContent computes the hex-encoded SHA-256 digest of a plaintext payload.
// The hash is stored beside the ciphertext so later reads can detect whether a
// decrypted payload actually changed without re-decrypting every sibling.
func HashContent(plaintext []byte) string {
	sum := sha256.Sum256(plaintext)
	return hex.EncodeToString(sum[:])
}

// Participant returns the envelope participant matching the given normalized
// identity, if any.
func (e MeetingEnvelope) Participant(identity string) (ParticipantInfo, bool) {
	for _, p := range e.Participants {
		if p.Identity() == identity {
			return p, true
		}
	}
	return ParticipantInfo{}, false
}

// Scheduler returns the participant flagged as scheduler, if any.
func (e MeetingEnvelope) Scheduler() (ParticipantInfo, bool) {
	for _, p := range e.Participants {
		if p.IsScheduler() {
			return p, true
		}
	}
	return ParticipantInfo{}, false
}

// HasPermission reports whether the envelope grants the given permission.
func (e MeetingEnvelope) HasPermission(perm Permission) bool {
	for _, granted := range e.Permissions {
		if granted == perm {
			return true
		}
	}
	return false
}
