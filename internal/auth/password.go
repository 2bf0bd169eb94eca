package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"runtime"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"
)

// Argon2id parameters, OWASP 2025 recommendation.
const (
	argonTime    = 3         // iterations
	argonMemory  = 64 * 1024 // 64 MiB
	argonThreads = 1         // parallelism
	argonKeyLen  = 32        // output hash length
	argonSaltLen = 16        // salt length
)

// bcryptPrefixes identifies legacy hashes written by the previous
// password migration tooling.
var bcryptPrefixes = []string{"$2a$", "$2b$", "$2y$"}

// CredentialStore hashes and verifies passwords.
//
// Every hash and verify holds one slot of a weighted semaphore. Argon2id
// allocates 64 MiB per call, so the slot count caps memory use under a
// burst of logins; callers waiting for a slot give up when their context
// is cancelled.
//
// Thread Safety: safe for concurrent use.
type CredentialStore struct {
	slots *semaphore.Weighted
}

// NewCredentialStore creates a CredentialStore allowing maxConcurrent
// hash operations at once. Zero or negative means runtime.NumCPU().
func NewCredentialStore(maxConcurrent int) *CredentialStore {
	if maxConcurrent <= 0 {
		maxConcurrent = runtime.NumCPU()
	}
	return &CredentialStore{slots: semaphore.NewWeighted(int64(maxConcurrent))}
}

// Hash returns a salted argon2id PHC string for password.
func (c *CredentialStore) Hash(ctx context.Context, password string) (string, error) {
	if err := c.slots.Acquire(ctx, 1); err != nil {
		return "", fmt.Errorf("waiting for hash slot: %w", err)
	}
	defer c.slots.Release(1)

	return HashPassword(password)
}

// Verify reports whether password matches encodedHash.
// Malformed or unsupported hashes, and a cancelled context, yield false.
func (c *CredentialStore) Verify(ctx context.Context, password, encodedHash string) bool {
	if err := c.slots.Acquire(ctx, 1); err != nil {
		return false
	}
	defer c.slots.Release(1)

	ok, err := VerifyPassword(password, encodedHash)
	return err == nil && ok
}

// HashPassword hashes a plaintext password using Argon2id and returns it
// in PHC string format: $argon2id$v=19$m=65536,t=3,p=1$<salt>$<hash>
func HashPassword(password string) (string, error) {
	salt := make([]byte, argonSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generating salt: %w", err)
	}

	hash := argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, argonKeyLen)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		argonMemory, argonTime, argonThreads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	), nil
}

// VerifyPassword checks a plaintext password against an Argon2id PHC hash
// or a legacy bcrypt hash. A non-nil error means the hash could not be parsed.
func VerifyPassword(password, encodedHash string) (bool, error) {
	if isBcrypt(encodedHash) {
		err := bcrypt.CompareHashAndPassword([]byte(encodedHash), []byte(password))
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return false, nil
		}
		if err != nil {
			return false, fmt.Errorf("bcrypt: %w", err)
		}
		return true, nil
	}

	salt, hash, params, err := decodePHC(encodedHash)
	if err != nil {
		return false, err
	}

	candidate := argon2.IDKey([]byte(password), salt, params.time, params.memory, params.threads, uint32(len(hash))) //nolint:gosec // G115: hash length always fits uint32

	return subtle.ConstantTimeCompare(hash, candidate) == 1, nil
}

// NeedsRehash reports whether encodedHash should be replaced by a fresh
// argon2id hash with the current parameters.
func NeedsRehash(encodedHash string) bool {
	_, _, params, err := decodePHC(encodedHash)
	if err != nil {
		return true
	}
	return params.time != argonTime || params.memory != argonMemory || params.threads != argonThreads
}

// IsHashed reports whether stored looks like a hash this package can verify.
// Anything else is treated as a plaintext leftover.
func IsHashed(stored string) bool {
	if isBcrypt(stored) {
		_, err := bcrypt.Cost([]byte(stored))
		return err == nil
	}
	_, _, _, err := decodePHC(stored)
	return err == nil
}

func isBcrypt(encoded string) bool {
	for _, p := range bcryptPrefixes {
		if strings.HasPrefix(encoded, p) {
			return true
		}
	}
	return false
}

type argonParams struct {
	time    uint32
	memory  uint32
	threads uint8
}

// decodePHC parses an Argon2id PHC string format into its components.
func decodePHC(encoded string) (salt, hash []byte, params argonParams, err error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 { //nolint:mnd // PHC format has exactly 6 $-delimited parts
		return nil, nil, params, fmt.Errorf("invalid PHC hash format")
	}

	if parts[1] != "argon2id" {
		return nil, nil, params, fmt.Errorf("unsupported algorithm: %s", parts[1])
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil { //nolint:govet // shadow: err re-declared in nested scope
		return nil, nil, params, fmt.Errorf("parsing version: %w", err)
	}
	if version != argon2.Version {
		return nil, nil, params, fmt.Errorf("unsupported argon2 version: %d", version)
	}

	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &params.memory, &params.time, &params.threads); err != nil { //nolint:govet // shadow: err re-declared in nested scope
		return nil, nil, params, fmt.Errorf("parsing parameters: %w", err)
	}
	// argon2.IDKey panics on zero time or threads.
	if params.time == 0 || params.threads == 0 || params.memory == 0 {
		return nil, nil, params, fmt.Errorf("invalid argon2 parameters")
	}

	salt, err = base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return nil, nil, params, fmt.Errorf("decoding salt: %w", err)
	}

	hash, err = base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return nil, nil, params, fmt.Errorf("decoding hash: %w", err)
	}
	if len(hash) == 0 {
		return nil, nil, params, fmt.Errorf("empty hash")
	}

	return salt, hash, params, nil
}
