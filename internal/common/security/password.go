package security

import (
	"golang.org/x/crypto/bcrypt"
)

// HashPassword hashes a secret with bcrypt. Used for account passwords
// and challenge flags alike: flags are deliberately stored behind a
// slow salted hash so a database leak does not allow cheap offline
// flag guessing.
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

// CheckPasswordHash verifies a secret against its bcrypt hash. The
// comparison inside bcrypt is constant-time.
func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
