package envelope

import (
	"errors"
	"testing"

	"github.com/example/meetingsync/internal/cryptobox"
	"github.com/example/meetingsync/internal/meeting"
)

func TestOpenWithRealCryptography(t *testing.T) {
	t.Parallel()

	keys, err := cryptobox.GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}

	builder := NewBuilder(cryptobox.Encrypt, "")
	env := meeting.MeetingEnvelope{
		MeetingID: "meeting-1",
		Title:     "Crypto check",
		Participants: []meeting.ParticipantInfo{
			{AccountAddress: "0xA", Type: meeting.ParticipantTypeScheduler, SlotID: "slot-a"},
			{AccountAddress: "0xB", Type: meeting.ParticipantTypeOwner, SlotID: "slot-b"},
		},
	}
	sealed, err := builder.Build(env, map[string]string{"0xa": keys.PublicKey, "0xb": keys.PublicKey})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	decryptor := NewDecryptor(cryptobox.Decrypt)
	opened, err := decryptor.Open(
		meeting.Slot{ID: "slot-a", Ciphertext: sealed[0].Ciphertext},
		KeyMaterial{PublicKey: keys.PublicKey, PrivateKey: keys.PrivateKey},
	)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if opened.MeetingID != "meeting-1" || opened.Title != "Crypto check" {
		t.Fatalf("opened envelope = %+v", opened)
	}
}

func TestOpenWithWrongKeyMaterial(t *testing.T) {
	t.Parallel()

	owner, err := cryptobox.GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}
	stranger, err := cryptobox.GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}

	ciphertext, err := cryptobox.Encrypt(owner.PublicKey, []byte(`{"schema_version":1}`))
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	decryptor := NewDecryptor(cryptobox.Decrypt)
	_, err = decryptor.Open(
		meeting.Slot{ID: "slot-a", Ciphertext: ciphertext},
		KeyMaterial{PublicKey: stranger.PublicKey, PrivateKey: stranger.PrivateKey},
	)
	if !errors.Is(err, meeting.ErrDecryptionFailed) {
		t.Fatalf("err = %v, want ErrDecryptionFailed", err)
	}
}

func TestOpenFailureModes(t *testing.T) {
	t.Parallel()

	decryptor := NewDecryptor(fakeDecrypt)

	t.Run("empty ciphertext", func(t *testing.T) {
		t.Parallel()
		_, err := decryptor.Open(meeting.Slot{ID: "slot-a"}, KeyMaterial{PublicKey: "key"})
		if !errors.Is(err, meeting.ErrDecryptionFailed) {
			t.Fatalf("err = %v, want ErrDecryptionFailed", err)
		}
	})

	t.Run("payload is not an envelope", func(t *testing.T) {
		t.Parallel()
		slot := meeting.Slot{ID: "slot-a", Ciphertext: "key::not json"}
		_, err := decryptor.Open(slot, KeyMaterial{PublicKey: "key"})
		if !errors.Is(err, meeting.ErrDecryptionFailed) {
			t.Fatalf("err = %v, want ErrDecryptionFailed", err)
		}
	})

	t.Run("nil decrypt function", func(t *testing.T) {
		t.Parallel()
		_, err := NewDecryptor(nil).Open(meeting.Slot{Ciphertext: "x"}, KeyMaterial{})
		if !errors.Is(err, meeting.ErrDecryptionFailed) {
			t.Fatalf("err = %v, want ErrDecryptionFailed", err)
		}
	})
}
