package envelope

import (
	"github.com/example/meetingsync/internal/meeting"
)

// KeyMaterial carries the key pair used to open a participant's ciphertext.
type KeyMaterial struct {
	PublicKey  string
	PrivateKey string
}

// Decryptor turns physical records back into structured meeting envelopes for
// the account holding the decryption key.
type Decryptor struct {
	decrypt DecryptFunc
}

// NewDecryptor wires the decryption primitive.
func NewDecryptor(decrypt DecryptFunc) *Decryptor {
	return &Decryptor{decrypt: decrypt}
}

// Open decrypts a slot's ciphertext with the given key material and parses it
// into a MeetingEnvelope. Any failure, whether the key does not match or the
// payload does not parse, surfaces as ErrDecryptionFailed: the caller cannot
// distinguish a foreign ciphertext from a corrupted one and must not try.
func (d *Decryptor) Open(slot meeting.Slot, material KeyMaterial) (meeting.MeetingEnvelope, error) {
	if d.decrypt == nil || slot.Ciphertext == "" {
		return meeting.MeetingEnvelope{}, meeting.ErrDecryptionFailed
	}
	plaintext, err := d.decrypt(material.PublicKey, material.PrivateKey, slot.Ciphertext)
	if err != nil {
		return meeting.MeetingEnvelope{}, meeting.ErrDecryptionFailed
	}
	env, err := meeting.DecodeEnvelope(plaintext)
	if err != nil {
		return meeting.MeetingEnvelope{}, meeting.ErrDecryptionFailed
	}
	return env, nil
}
