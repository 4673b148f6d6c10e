package auth

import (
	"crypto/rand"
	"crypto/sha512"
	"crypto/subtle"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	saltLength     = 64
	hashLength     = 64
	hashIterations = 210_000
)

// HashPassword derives a keyed hash of the password using a freshly generated
// random salt. Both outputs must be stored; neither is secret on its own.
func HashPassword(password string) (hash, salt []byte, err error) {
	salt = make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return nil, nil, fmt.Errorf("generate salt: %w", err)
	}

	hash = pbkdf2.Key([]byte(password), salt, hashIterations, hashLength, sha512.New)
	return hash, salt, nil
}

// VerifyPassword recomputes the keyed hash with the stored salt and compares
// it against the stored hash in constant time. A mismatch is reported as
// false, never as an error.
func VerifyPassword(password string, hash, salt []byte) bool {
	if len(hash) == 0 || len(salt) == 0 {
		return false
	}
	computed := pbkdf2.Key([]byte(password), salt, hashIterations, hashLength, sha512.New)
	return subtle.ConstantTimeCompare(computed, hash) == 1
}
