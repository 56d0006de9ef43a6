package token

import "time"

// IssuedToken is the issuance response shown to administrators and kiosks.
type IssuedToken struct {
	Token           string    `json:"token_string"`
	LocationID      string    `json:"location_id"`
	ExpiresAt       time.Time `json:"expires_at"`
	ValiditySeconds int       `json:"validity_seconds"`
}

// ValidatedToken is the outcome of a successful validation: the claims the
// rest of the system may trust.
type ValidatedToken struct {
	Nonce      string
	LocationID string
	ExpiresAt  time.Time
}

