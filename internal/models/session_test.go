package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSessionActive(t *testing.T) {
	now := time.Now()
	s := &UserSession{ExpiresAt: now.Add(time.Hour)}
	assert.True(t, s.Active(now))

	assert.False(t, s.Active(now.Add(2*time.Hour)), "expired session")
	assert.False(t, s.Active(s.ExpiresAt), "expiry instant itself is out")

	revoked := now
	s.RevokedAt = &revoked
	assert.False(t, s.Active(now), "revoked session")
}
