package token

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/nomia-hq/nomia/internal/pkg/signer"
)

// Wire format: prefix + four pipe-delimited fields.
//
//	nomia:<nonce>|<location_id>|<expiry_epoch_ms>|<signature>
//
// Nonce and signature are URL-safe unpadded base64, so no field can contain
// the delimiter. The signed payload is the first three fields exactly as they
// appear on the wire, which makes verification a byte-for-byte reconstruction
// rather than a re-serialization.
const (
	Prefix = "nomia:"

	// NonceSize is the raw nonce length in bytes before encoding.
	NonceSize = 16

	maxWireLen     = 512
	maxLocationLen = 64
	fieldCount     = 4
)

var b64 = base64.RawURLEncoding

var (
	errNoPrefix    = errors.New("missing token prefix")
	errFieldCount  = errors.New("wrong field count")
	errBadNonce    = errors.New("nonce is not valid base64 of the expected length")
	errBadLocation = errors.New("location field is empty or oversized")
	errBadExpiry   = errors.New("expiry is not a positive millisecond timestamp")
	errBadTag      = errors.New("signature is not valid base64 of the expected length")
)

// payload is the decoded but not yet trusted content of a token string.
type payload struct {
	NonceB64   string
	LocationID string
	ExpiresAt  time.Time
	TagB64     string
	Tag        []byte
	SignedPart []byte
}

// encodeToken assembles the wire string from already-encoded parts.
func encodeToken(nonceB64, locationID string, expiresAt time.Time, tag []byte) string {
	var b strings.Builder
	b.WriteString(Prefix)
	b.WriteString(nonceB64)
	b.WriteByte('|')
	b.WriteString(locationID)
	b.WriteByte('|')
	b.WriteString(strconv.FormatInt(expiresAt.UnixMilli(), 10))
	b.WriteByte('|')
	b.WriteString(b64.EncodeToString(tag))
	return b.String()
}

// parseToken checks structure only. It deliberately does not touch the
// signature, the clock or the store; those are the service's later steps.
func parseToken(s string) (*payload, error) {
	if len(s) > maxWireLen {
		return nil, fmt.Errorf("token exceeds %d bytes", maxWireLen)
	}
	if !strings.HasPrefix(s, Prefix) {
		return nil, errNoPrefix
	}

	body := s[len(Prefix):]
	fields := strings.Split(body, "|")
	if len(fields) != fieldCount {
		return nil, errFieldCount
	}

	nonce, err := b64.DecodeString(fields[0])
	if err != nil || len(nonce) != NonceSize {
		return nil, errBadNonce
	}

	locationID := fields[1]
	if locationID == "" || len(locationID) > maxLocationLen {
		return nil, errBadLocation
	}

	ms, err := strconv.ParseInt(fields[2], 10, 64)
	if err != nil || ms <= 0 {
		return nil, errBadExpiry
	}

	tag, err := b64.DecodeString(fields[3])
	if err != nil || len(tag) != signer.TagSize {
		return nil, errBadTag
	}

	signedLen := len(fields[0]) + 1 + len(fields[1]) + 1 + len(fields[2])
	return &payload{
		NonceB64:   fields[0],
		LocationID: locationID,
		ExpiresAt:  time.UnixMilli(ms),
		TagB64:     fields[3],
		Tag:        tag,
		SignedPart: []byte(body[:signedLen]),
	}, nil
}
