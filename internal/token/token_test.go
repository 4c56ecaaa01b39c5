package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssue(t *testing.T) {
	ot, err := Issue(EmailVerification)
	require.NoError(t, err)

	assert.Len(t, ot.Plaintext, plaintextLen*2, "plaintext should be hex of 32 random bytes")
	assert.Equal(t, Digest(ot.Plaintext), ot.Digest)
	assert.NotEqual(t, ot.Plaintext, ot.Digest)
	assert.WithinDuration(t, time.Now().UTC().Add(24*time.Hour), ot.Expires, 5*time.Second)
}

func TestIssuePasswordResetExpiry(t *testing.T) {
	ot, err := Issue(PasswordReset)
	require.NoError(t, err)

	assert.WithinDuration(t, time.Now().UTC().Add(time.Hour), ot.Expires, 5*time.Second)
}

func TestIssueUnique(t *testing.T) {
	a, err := Issue(EmailVerification)
	require.NoError(t, err)
	b, err := Issue(EmailVerification)
	require.NoError(t, err)

	assert.NotEqual(t, a.Plaintext, b.Plaintext)
	assert.NotEqual(t, a.Digest, b.Digest)
}

func TestDigestDeterministic(t *testing.T) {
	assert.Equal(t, Digest("abc"), Digest("abc"))
	assert.NotEqual(t, Digest("abc"), Digest("abd"))
}
