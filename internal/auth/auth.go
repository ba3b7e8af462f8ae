// Package auth verifies the single administrative identity of the gateway.
package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// AdminUsername is the only username the gateway accepts.
const AdminUsername = "admin"

// ErrEmptySecret is returned when the admin secret is missing.
var ErrEmptySecret = errors.New("admin password must not be empty")

const (
	argonKeyLen  = 32
	argonSaltLen = 16
)

// Params are the Argon2id cost parameters.
type Params struct {
	Time    uint32
	Memory  uint32 // KiB
	Threads uint8
}

// DefaultParams follow the OWASP recommendation for Argon2id.
var DefaultParams = Params{Time: 3, Memory: 64 * 1024, Threads: 1}

// Credential is a username with the Argon2id PHC hash of its password.
type Credential struct {
	Username string
	Hash     string
}

// Verifier checks Basic credentials against one Credential. It is immutable
// after construction and safe for concurrent use.
type Verifier struct {
	cred Credential
	// dummy is compared against for unknown usernames so both paths cost a
	// hash computation.
	dummy string
}

// NewVerifier hashes secret once and returns a Verifier for AdminUsername.
func NewVerifier(secret string) (*Verifier, error) {
	return NewVerifierWithParams(secret, DefaultParams)
}

// NewVerifierWithParams is NewVerifier with explicit Argon2id parameters.
func NewVerifierWithParams(secret string, p Params) (*Verifier, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}

	hash, err := hashPassword(secret, p)
	if err != nil {
		return nil, fmt.Errorf("hashing admin password: %w", err)
	}
	dummy, err := hashPassword("unknown-user", p)
	if err != nil {
		return nil, fmt.Errorf("hashing placeholder password: %w", err)
	}

	return &Verifier{
		cred:  Credential{Username: AdminUsername, Hash: hash},
		dummy: dummy,
	}, nil
}

// Verify reports whether username and password match the admin credential.
func (v *Verifier) Verify(username, password string) bool {
	if subtle.ConstantTimeCompare([]byte(username), []byte(v.cred.Username)) != 1 {
		_, _ = verifyPassword(password, v.dummy)
		return false
	}
	ok, err := verifyPassword(password, v.cred.Hash)
	return err == nil && ok
}

// hashPassword returns password hashed in PHC string format:
// $argon2id$v=19$m=65536,t=3,p=1$<salt>$<hash>
func hashPassword(password string, p Params) (string, error) {
	salt := make([]byte, argonSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generating salt: %w", err)
	}

	hash := argon2.IDKey([]byte(password), salt, p.Time, p.Memory, p.Threads, argonKeyLen)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		p.Memory, p.Time, p.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	), nil
}

func verifyPassword(password, encoded string) (bool, error) {
	salt, hash, p, err := decodePHC(encoded)
	if err != nil {
		return false, err
	}

	candidate := argon2.IDKey([]byte(password), salt, p.Time, p.Memory, p.Threads, uint32(len(hash)))
	return subtle.ConstantTimeCompare(hash, candidate) == 1, nil
}

func decodePHC(encoded string) (salt, hash []byte, p Params, err error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 {
		return nil, nil, p, errors.New("invalid PHC hash format")
	}
	if parts[1] != "argon2id" {
		return nil, nil, p, fmt.Errorf("unsupported algorithm: %s", parts[1])
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return nil, nil, p, fmt.Errorf("parsing version: %w", err)
	}
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.Memory, &p.Time, &p.Threads); err != nil {
		return nil, nil, p, fmt.Errorf("parsing parameters: %w", err)
	}

	if salt, err = base64.RawStdEncoding.DecodeString(parts[4]); err != nil {
		return nil, nil, p, fmt.Errorf("decoding salt: %w", err)
	}
	if hash, err = base64.RawStdEncoding.DecodeString(parts[5]); err != nil {
		return nil, nil, p, fmt.Errorf("decoding hash: %w", err)
	}
	return salt, hash, p, nil
}
