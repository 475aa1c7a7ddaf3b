package store

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strings"
)

const secretKeyEnv = "METINANALIZ_SECRET_KEY"

// Sealed API keys are stored as "enc:v1:<base64 nonce|ciphertext>". Values
// without the prefix predate encryption and are read back as they are.
const sealedPrefix = "enc:v1:"

var errSecretUnreadable = errors.New("stored secret cannot be opened")

// settingSealer encrypts the API key rows of app_settings. The row key is
// bound as additional data so a sealed value only opens under its own key.
type settingSealer struct {
	aead cipher.AEAD
}

// sealerFromEnv derives the AES-256 key from the passphrase in
// METINANALIZ_SECRET_KEY. It returns nil when the variable is empty.
func sealerFromEnv() (*settingSealer, error) {
	pass := strings.TrimSpace(os.Getenv(secretKeyEnv))
	if pass == "" {
		return nil, nil
	}
	sum := sha256.Sum256([]byte(pass))
	block, err := aes.NewCipher(sum[:])
	if err != nil {
		return nil, fmt.Errorf("settings cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("settings cipher: %w", err)
	}
	return &settingSealer{aead: aead}, nil
}

func isSealed(stored string) bool {
	return strings.HasPrefix(stored, sealedPrefix)
}

func (s *settingSealer) Seal(settingKey, value string) (string, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("seal %s: %w", settingKey, err)
	}
	out := s.aead.Seal(nonce, nonce, []byte(value), []byte(settingKey))
	return sealedPrefix + base64.RawStdEncoding.EncodeToString(out), nil
}

func (s *settingSealer) Open(settingKey, stored string) (string, error) {
	if !isSealed(stored) {
		return "", errSecretUnreadable
	}
	data, err := base64.RawStdEncoding.DecodeString(stored[len(sealedPrefix):])
	if err != nil || len(data) < s.aead.NonceSize() {
		return "", errSecretUnreadable
	}
	n := s.aead.NonceSize()
	plain, err := s.aead.Open(nil, data[:n], data[n:], []byte(settingKey))
	if err != nil {
		return "", errSecretUnreadable
	}
	return string(plain), nil
}
