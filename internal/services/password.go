package services

import (
	cryptorand "crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/intlpay/backend/internal/config"
	"golang.org/x/crypto/argon2"
)

// PasswordHasher derives argon2id hashes stored as "base64(salt)$base64(hash)".
type PasswordHasher struct {
	params config.Argon2Config
	dummy  string
}

func NewPasswordHasher(params config.Argon2Config) *PasswordHasher {
	h := &PasswordHasher{params: params}
	// compared against when the account does not exist
	h.dummy, _ = h.Hash("placeholder-password-Aa1!")
	return h
}

func (h *PasswordHasher) Hash(password string) (string, error) {
	salt := make([]byte, h.params.SaltLength)
	if _, err := cryptorand.Read(salt); err != nil {
		return "", err
	}

	hash := h.derive(password, salt)
	return fmt.Sprintf("%s$%s", base64.StdEncoding.EncodeToString(salt), base64.StdEncoding.EncodeToString(hash)), nil
}

func (h *PasswordHasher) Verify(password, hashedPassword string) bool {
	parts := strings.Split(hashedPassword, "$")
	if len(parts) != 2 {
		return false
	}

	salt, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil {
		return false
	}

	hash, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return false
	}

	computedHash := h.derive(password, salt)
	return subtle.ConstantTimeCompare(hash, computedHash) == 1
}

// VerifyDummy spends the same work as Verify without a stored hash.
func (h *PasswordHasher) VerifyDummy(password string) {
	h.Verify(password, h.dummy)
}

func (h *PasswordHasher) derive(password string, salt []byte) []byte {
	return argon2.IDKey([]byte(password), salt, h.params.Time, h.params.Memory, h.params.Threads, h.params.KeyLength)
}
