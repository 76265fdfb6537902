// Package cryptobox implements the engine's asymmetric envelope primitive
// with NaCl anonymous boxes. Keys and ciphertexts travel as base64 strings so
// they can be stored and transported opaquely.
package cryptobox

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/nacl/box"
)

// ErrOpenFailed indicates the ciphertext could not be opened with the
// provided key material.
var ErrOpenFailed = errors.New("cryptobox: ciphertext could not be opened")

// ErrInvalidKey indicates a key is not a valid encoded 32-byte NaCl key.
var ErrInvalidKey = errors.New("cryptobox: invalid key")

// KeyPair holds an encoded NaCl box key pair.
type KeyPair struct {
	PublicKey  string
	PrivateKey string
}

// GenerateKeyPair produces a fresh key pair.
func GenerateKeyPair() (KeyPair, error) {
	publicKey, privateKey, err := box.GenerateKey(rand.Reader)
	if err != nil {
		return KeyPair{}, fmt.Errorf("cryptobox: generate key pair: %w", err)
	}
	return KeyPair{
		PublicKey:  base64.StdEncoding.EncodeToString(publicKey[:]),
		PrivateKey: base64.StdEncoding.EncodeToString(privateKey[:]),
	}, nil
}

// Encrypt seals plaintext for the holder of publicKey. The sender stays
// anonymous: only the recipient's key pair can open the result.
func Encrypt(publicKey string, plaintext []byte) (string, error) {
	recipient, err := decodeKey(publicKey)
	if err != nil {
		return "", err
	}
	sealed, err := box.SealAnonymous(nil, plaintext, recipient, rand.Reader)
	if err != nil {
		return "", fmt.Errorf("cryptobox: seal: %w", err)
	}
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a ciphertext produced by Encrypt using the recipient's key
// pair.
func Decrypt(publicKey, privateKey, ciphertext string) ([]byte, error) {
	recipientPublic, err := decodeKey(publicKey)
	if err != nil {
		return nil, err
	}
	recipientPrivate, err := decodeKey(privateKey)
	if err != nil {
		return nil, err
	}
	sealed, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return nil, fmt.Errorf("cryptobox: decode ciphertext: %w", err)
	}
	plaintext, ok := box.OpenAnonymous(nil, sealed, recipientPublic, recipientPrivate)
	if !ok {
		return nil, ErrOpenFailed
	}
	return plaintext, nil
}

func decodeKey(encoded string) (*[32]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil || len(raw) != 32 {
		return nil, ErrInvalidKey
	}
	var key [32]byte
	copy(key[:], raw)
	return &key, nil
}
