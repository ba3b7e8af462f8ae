package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testParams = Params{Time: 1, Memory: 8 * 1024, Threads: 1}

func newTestVerifier(t *testing.T, secret string) *Verifier {
	t.Helper()
	v, err := NewVerifierWithParams(secret, testParams)
	require.NoError(t, err)
	return v
}

func TestVerify(t *testing.T) {
	v := newTestVerifier(t, "s3cret")

	tests := []struct {
		name     string
		username string
		password string
		want     bool
	}{
		{"admin with correct password", "admin", "s3cret", true},
		{"admin with wrong password", "admin", "S3cret", false},
		{"admin with empty password", "admin", "", false},
		{"unknown user with admin password", "root", "s3cret", false},
		{"empty username", "", "s3cret", false},
		{"username prefix", "adm", "s3cret", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, v.Verify(tt.username, tt.password))
		})
	}
}

func TestVerifyLongSecret(t *testing.T) {
	secret := strings.Repeat("p", 80)
	v := newTestVerifier(t, secret)

	assert.True(t, v.Verify(AdminUsername, secret))
	// Differs only after the 72nd byte.
	assert.False(t, v.Verify(AdminUsername, strings.Repeat("p", 72)+"qqqqqqqq"))
}

func TestNewVerifierRequiresSecret(t *testing.T) {
	_, err := NewVerifier("")
	assert.ErrorIs(t, err, ErrEmptySecret)
}

func TestCredentialDoesNotKeepPlaintext(t *testing.T) {
	v := newTestVerifier(t, "s3cret")

	assert.Equal(t, AdminUsername, v.cred.Username)
	assert.True(t, strings.HasPrefix(v.cred.Hash, "$argon2id$v=19$m=8192,t=1,p=1$"), v.cred.Hash)
	assert.NotContains(t, v.cred.Hash, "s3cret")

	ok, err := verifyPassword("s3cret", v.cred.Hash)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerifyPasswordRejectsMalformedHash(t *testing.T) {
	for _, encoded := range []string{"", "$2a$10$abc", "$argon2id$v=19$m=x$salt$hash"} {
		_, err := verifyPassword("s3cret", encoded)
		assert.Error(t, err, encoded)
	}
}
