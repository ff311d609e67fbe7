package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	hashSaltLen = 16
	hashKeyLen  = 32
)

// Hasher produces and verifies argon2id password hashes. Cost factors come
// from configuration; the encoded form carries them, so verification keeps
// working after the costs are raised.
type Hasher struct {
	time    uint32
	memory  uint32 // KiB
	threads uint8
}

func NewHasher(timeCost, memoryKiB uint32, threads uint8) *Hasher {
	return &Hasher{
		time:    timeCost,
		memory:  memoryKiB,
		threads: threads,
	}
}

// Hash creates an argon2id hash of the password with a fresh random salt.
// Two calls with the same input produce different output.
func (h *Hasher) Hash(password string) (string, error) {
	salt := make([]byte, hashSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}

	hash := argon2.IDKey(
		[]byte(password),
		salt,
		h.time,
		h.memory,
		h.threads,
		hashKeyLen,
	)

	// Encoded as: $argon2id$v=19$m=65536,t=3,p=4$salt$hash
	encodedSalt := base64.RawStdEncoding.EncodeToString(salt)
	encodedHash := base64.RawStdEncoding.EncodeToString(hash)

	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		h.memory,
		h.time,
		h.threads,
		encodedSalt,
		encodedHash,
	), nil
}

// Verify checks a password against a stored hash in constant time. It never
// panics or errors on malformed input; anything unparsable is simply false.
func (h *Hasher) Verify(password, encodedHash string) bool {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return false
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return false
	}

	var memory, timeCost uint32
	var threads uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &timeCost, &threads); err != nil {
		return false
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false
	}
	storedHash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false
	}

	candidate := argon2.IDKey(
		[]byte(password),
		salt,
		timeCost,
		memory,
		threads,
		uint32(len(storedHash)),
	)

	return subtle.ConstantTimeCompare(storedHash, candidate) == 1
}
