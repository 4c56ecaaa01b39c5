// Package token issues and checks the one-time tokens used for email
// verification and password reset.
//
// A token's plaintext is 32 random bytes, hex-encoded. Only its sha256
// digest is ever stored; the plaintext exists solely in the email sent
// to the user. The digest is deliberately unsalted: the plaintext has
// full entropy, so there is nothing for a rainbow table to gain, and a
// deterministic digest is what makes the lookup-by-digest query work.
package token

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

const plaintextLen = 32

type Kind string

const (
	EmailVerification Kind = "emailVerification"
	PasswordReset     Kind = "passwordReset"
)

// TTL returns the validity window for a token kind.
func (k Kind) TTL() time.Duration {
	if k == PasswordReset {
		return time.Hour
	}
	return 24 * time.Hour
}

// OneTime holds a freshly issued token. Plaintext goes into the email,
// Digest and Expires go into storage, and the two halves never travel
// together anywhere else.
type OneTime struct {
	Plaintext string
	Digest    string
	Expires   time.Time
}

// Issue generates a new one-time token of the given kind.
func Issue(kind Kind) (OneTime, error) {
	buf := make([]byte, plaintextLen)
	if _, err := rand.Read(buf); err != nil {
		return OneTime{}, fmt.Errorf("failed to generate token: %w", err)
	}

	plaintext := hex.EncodeToString(buf)
	return OneTime{
		Plaintext: plaintext,
		Digest:    Digest(plaintext),
		Expires:   time.Now().UTC().Add(kind.TTL()),
	}, nil
}

// Digest recomputes the stored digest for a presented plaintext token.
func Digest(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}
