package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"

	"golang.org/x/crypto/pbkdf2"
)

const (
	DefaultIterations = 310000
	keyLength         = 32
	saltLength        = 16
)

// PasswordHasher derives PBKDF2-HMAC-SHA256 keys. Salts and hashes are stored hex encoded;
// the hex salt string itself is the KDF salt.
type PasswordHasher struct {
	iterations int
}

func NewPasswordHasher(iterations int) *PasswordHasher {
	if iterations <= 0 {
		iterations = DefaultIterations
	}
	return &PasswordHasher{iterations: iterations}
}

func (h *PasswordHasher) Hash(password string) (hash, salt string, err error) {
	b := make([]byte, saltLength)
	if _, err := rand.Read(b); err != nil {
		return "", "", err
	}
	salt = hex.EncodeToString(b)
	return hex.EncodeToString(h.derive(password, salt)), salt, nil
}

func (h *PasswordHasher) Verify(password, salt, hash string) bool {
	want, err := hex.DecodeString(hash)
	if err != nil || len(want) != keyLength {
		return false
	}
	return subtle.ConstantTimeCompare(h.derive(password, salt), want) == 1
}

func (h *PasswordHasher) derive(password, salt string) []byte {
	return pbkdf2.Key([]byte(password), []byte(salt), h.iterations, keyLength, sha256.New)
}
