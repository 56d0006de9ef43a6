package signer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSignVerifyRoundtrip(t *testing.T) {
	s := New([]byte("test-secret"))
	payload := []byte("nonce|location|1700000000000")

	tag := s.Sign(payload)
	assert.Len(t, tag, TagSize)
	assert.True(t, s.Verify(payload, tag))
}

func TestVerifyRejectsEverySingleBitFlip(t *testing.T) {
	s := New([]byte("test-secret"))
	payload := []byte("payload under test")
	tag := s.Sign(payload)

	for i := 0; i < len(tag)*8; i++ {
		mutated := make([]byte, len(tag))
		copy(mutated, tag)
		mutated[i/8] ^= 1 << (i % 8)
		assert.False(t, s.Verify(payload, mutated), "bit flip at %d must not verify", i)
	}
}

func TestVerifyRejectsWrongLengthTag(t *testing.T) {
	s := New([]byte("test-secret"))
	payload := []byte("payload")
	tag := s.Sign(payload)

	assert.False(t, s.Verify(payload, tag[:TagSize-1]))
	assert.False(t, s.Verify(payload, append(tag, 0x00)))
	assert.False(t, s.Verify(payload, nil))
}

func TestVerifyRejectsTagFromOtherSecret(t *testing.T) {
	a := New([]byte("secret-a"))
	b := New([]byte("secret-b"))
	payload := []byte("same payload")

	assert.False(t, b.Verify(payload, a.Sign(payload)))
}

func TestSecretIsCopiedAtConstruction(t *testing.T) {
	secret := []byte("mutable-secret")
	s := New(secret)
	payload := []byte("payload")
	tag := s.Sign(payload)

	secret[0] ^= 0xFF
	assert.True(t, s.Verify(payload, tag))
}
