package voiceprint

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
)

// KeySize is the required length of the provisioned profile encryption
// key. Losing the key permanently invalidates all stored profiles.
const KeySize = 32

// profileCipher seals and opens profile payloads with AES-256-GCM.
// Ciphertext layout: nonce || sealed payload.
type profileCipher struct {
	aead cipher.AEAD
}

func newProfileCipher(key []byte) (*profileCipher, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("voiceprint: encryption key must be %d bytes, got %d", KeySize, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &profileCipher{aead: aead}, nil
}

func (c *profileCipher) seal(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return c.aead.Seal(nonce, nonce, plaintext, nil), nil
}

func (c *profileCipher) open(ciphertext []byte) ([]byte, error) {
	ns := c.aead.NonceSize()
	if len(ciphertext) < ns {
		return nil, errors.New("voiceprint: ciphertext too short")
	}
	return c.aead.Open(nil, ciphertext[:ns], ciphertext[ns:], nil)
}
