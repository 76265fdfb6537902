// Package envelope produces and opens the per-participant encrypted payloads
// that physically represent a meeting. Every participant gets their own copy
// keyed to their public key; guest-schedulable meetings additionally get a
// conference copy keyed to a shared fallback key so guest slots can resolve
// their siblings.
package envelope

import (
	"fmt"

	"github.com/example/meetingsync/internal/meeting"
)

// EncryptFunc seals a plaintext for the holder of publicKey.
type EncryptFunc func(publicKey string, plaintext []byte) (string, error)

// DecryptFunc opens a ciphertext with the recipient's key material.
type DecryptFunc func(publicKey, privateKey, ciphertext string) ([]byte, error)

// Sealed is one encrypted copy of a meeting envelope, addressed to a single
// physical slot.
type Sealed struct {
	// SlotID is the physical record the ciphertext belongs to.
	SlotID string
	// Recipient is the participant the copy is addressed to; empty for the
	// conference copy.
	Recipient meeting.ParticipantInfo
	// PublicKey is the key the payload was sealed with.
	PublicKey string
	// Ciphertext is the sealed envelope.
	Ciphertext string
	// ContentHash is the hex SHA-256 of the plaintext, stored beside the
	// ciphertext so readers can detect content changes without decrypting.
	ContentHash string
}

// Builder constructs sealed envelopes for each participant of a meeting.
type Builder struct {
	encrypt     EncryptFunc
	fallbackKey string
}

// NewBuilder wires the encryption primitive and the well-known fallback
// public key used for recipients without a key of their own.
func NewBuilder(encrypt EncryptFunc, fallbackKey string) *Builder {
	return &Builder{encrypt: encrypt, fallbackKey: fallbackKey}
}

// Build seals one envelope copy per participant. publicKeys maps normalized
// identities to directory public keys; identities without an entry (guests,
// unresolvable accounts) fall back to the shared key. Each copy's
// RelatedSlotIDs lists every other participant's slot id, excluding the
// recipient's own.
func (b *Builder) Build(env meeting.MeetingEnvelope, publicKeys map[string]string) ([]Sealed, error) {
	if b.encrypt == nil {
		return nil, fmt.Errorf("envelope: encrypt function not configured")
	}

	sealed := make([]Sealed, 0, len(env.Participants))
	for _, recipient := range env.Participants {
		copyEnv := env
		copyEnv.RelatedSlotIDs = relatedSlotIDs(env.Participants, recipient.SlotID)

		plaintext, err := copyEnv.Encode()
		if err != nil {
			return nil, err
		}

		key := publicKeys[recipient.Identity()]
		if key == "" {
			key = b.fallbackKey
		}

		ciphertext, err := b.encrypt(key, plaintext)
		if err != nil {
			return nil, fmt.Errorf("envelope: seal for %s: %w", recipient.Identity(), err)
		}

		sealed = append(sealed, Sealed{
			SlotID:      recipient.SlotID,
			Recipient:   recipient,
			PublicKey:   key,
			Ciphertext:  ciphertext,
			ContentHash: meeting.HashContent(plaintext),
		})
	}
	return sealed, nil
}

// BuildConference seals a copy with the fallback key listing every
// participant's slot id, letting any guest slot look up its siblings.
func (b *Builder) BuildConference(env meeting.MeetingEnvelope) (Sealed, error) {
	if b.encrypt == nil {
		return Sealed{}, fmt.Errorf("envelope: encrypt function not configured")
	}

	copyEnv := env
	copyEnv.RelatedSlotIDs = relatedSlotIDs(env.Participants, "")

	plaintext, err := copyEnv.Encode()
	if err != nil {
		return Sealed{}, err
	}

	ciphertext, err := b.encrypt(b.fallbackKey, plaintext)
	if err != nil {
		return Sealed{}, fmt.Errorf("envelope: seal conference copy: %w", err)
	}

	return Sealed{
		PublicKey:   b.fallbackKey,
		Ciphertext:  ciphertext,
		ContentHash: meeting.HashContent(plaintext),
	}, nil
}

func relatedSlotIDs(participants []meeting.ParticipantInfo, excludeSlotID string) []string {
	ids := make([]string, 0, len(participants))
	for _, participant := range participants {
		if participant.SlotID == "" || participant.SlotID == excludeSlotID {
			continue
		}
		ids = append(ids, participant.SlotID)
	}
	return ids
}
