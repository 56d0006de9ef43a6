package signer

import (
	"crypto/hmac"
	"crypto/sha256"
)

// TagSize is the length in bytes of a signature tag.
const TagSize = sha256.Size

// Signer computes and verifies HMAC-SHA256 tags over raw payload bytes. The
// secret is fixed at construction and never exposed afterwards; callers must
// not log it or echo it back.
type Signer struct {
	secret []byte
}

// New creates a Signer with an immutable copy of the secret.
func New(secret []byte) *Signer {
	s := make([]byte, len(secret))
	copy(s, secret)
	return &Signer{secret: s}
}

// Sign returns the authentication tag for payload.
func (s *Signer) Sign(payload []byte) []byte {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write(payload)
	return mac.Sum(nil)
}

// Verify reports whether tag authenticates payload. The comparison is
// constant-time; a false result is a normal outcome (forged or tampered
// input), never an error. Malformed input of any length returns false.
func (s *Signer) Verify(payload, tag []byte) bool {
	if len(tag) != TagSize {
		return false
	}
	return hmac.Equal(s.Sign(payload), tag)
}
