package token

import (
	"strings"
	"testing"
	"time"

	"github.com/nomia-hq/nomia/internal/pkg/signer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func wireToken(t *testing.T, nonce []byte, locationID string, expiresAt time.Time, tag []byte) string {
	t.Helper()
	return encodeToken(b64.EncodeToString(nonce), locationID, expiresAt, tag)
}

func TestEncodeParseRoundtrip(t *testing.T) {
	nonce := make([]byte, NonceSize)
	for i := range nonce {
		nonce[i] = byte(i)
	}
	tag := make([]byte, signer.TagSize)
	expiresAt := time.UnixMilli(1700000000123)

	s := wireToken(t, nonce, "loc-42", expiresAt, tag)
	require.True(t, strings.HasPrefix(s, Prefix))

	p, err := parseToken(s)
	require.NoError(t, err)
	assert.Equal(t, b64.EncodeToString(nonce), p.NonceB64)
	assert.Equal(t, "loc-42", p.LocationID)
	assert.True(t, p.ExpiresAt.Equal(expiresAt))
	assert.Equal(t, tag, p.Tag)
}

func TestParseSignedPartMatchesWireBytes(t *testing.T) {
	nonce := make([]byte, NonceSize)
	tag := make([]byte, signer.TagSize)
	s := wireToken(t, nonce, "loc-1", time.UnixMilli(1700000000000), tag)

	p, err := parseToken(s)
	require.NoError(t, err)

	body := strings.TrimPrefix(s, Prefix)
	wantSigned := body[:strings.LastIndex(body, "|")]
	assert.Equal(t, wantSigned, string(p.SignedPart))
}

func TestParseRejectsMalformedInput(t *testing.T) {
	nonce := make([]byte, NonceSize)
	tag := make([]byte, signer.TagSize)
	valid := wireToken(t, nonce, "loc-1", time.UnixMilli(1700000000000), tag)

	cases := map[string]string{
		"empty":            "",
		"no prefix":        strings.TrimPrefix(valid, Prefix),
		"wrong prefix":     "other:" + strings.TrimPrefix(valid, Prefix),
		"too few fields":   Prefix + "a|b|c",
		"too many fields":  valid + "|extra",
		"short nonce":      Prefix + b64.EncodeToString(nonce[:8]) + "|loc|1700000000000|" + b64.EncodeToString(tag),
		"bad nonce base64": Prefix + "!!!!|loc|1700000000000|" + b64.EncodeToString(tag),
		"empty location":   Prefix + b64.EncodeToString(nonce) + "||1700000000000|" + b64.EncodeToString(tag),
		"long location":    Prefix + b64.EncodeToString(nonce) + "|" + strings.Repeat("x", maxLocationLen+1) + "|1700000000000|" + b64.EncodeToString(tag),
		"expiry not a num": Prefix + b64.EncodeToString(nonce) + "|loc|soon|" + b64.EncodeToString(tag),
		"negative expiry":  Prefix + b64.EncodeToString(nonce) + "|loc|-5|" + b64.EncodeToString(tag),
		"short tag":        Prefix + b64.EncodeToString(nonce) + "|loc|1700000000000|" + b64.EncodeToString(tag[:16]),
		"oversized":        Prefix + strings.Repeat("a", maxWireLen),
	}

	for name, input := range cases {
		_, err := parseToken(input)
		assert.Error(t, err, name)
	}
}
