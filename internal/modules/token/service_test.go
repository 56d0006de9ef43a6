package token

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nomia-hq/nomia/internal/models"
	"github.com/nomia-hq/nomia/internal/pkg/reject"
	"github.com/nomia-hq/nomia/internal/pkg/signer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type memTokenStore struct {
	mu   sync.Mutex
	rows []*models.PassTokenModel
}

func (m *memTokenStore) Insert(_ context.Context, t *models.PassTokenModel) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *t
	m.rows = append(m.rows, &cp)
	return nil
}

func (m *memTokenStore) Exists(_ context.Context, nonce, signature string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if r.Nonce == nonce && r.Signature == signature {
			return true, nil
		}
	}
	return false, nil
}

func (m *memTokenStore) Latest(_ context.Context, locationID string, now time.Time) (*models.PassTokenModel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var best *models.PassTokenModel
	for _, r := range m.rows {
		if r.LocationID != locationID || !r.ExpiresAt.After(now) {
			continue
		}
		if best == nil || r.ExpiresAt.After(best.ExpiresAt) {
			best = r
		}
	}
	if best == nil {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *best
	return &cp, nil
}

type memLocation struct {
	managerID string
	enabled   bool
}

type memDirectory struct {
	locations map[string]memLocation
}

func (m *memDirectory) Lookup(_ context.Context, id string) (string, bool, error) {
	loc, ok := m.locations[id]
	if !ok {
		return "", false, gorm.ErrRecordNotFound
	}
	return loc.managerID, loc.enabled, nil
}

func (m *memDirectory) EnabledIDs(_ context.Context) ([]string, error) {
	var ids []string
	for id, loc := range m.locations {
		if loc.enabled {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func newTestService(dir *memDirectory, now time.Time) (*Service, *memTokenStore) {
	st := &memTokenStore{}
	svc := &Service{
		store:    st,
		dir:      dir,
		signer:   signer.New([]byte("test-secret")),
		validity: 30 * time.Second,
		now:      func() time.Time { return now },
		log:      zap.NewNop(),
	}
	return svc, st
}

func singleLocationDir(id string) *memDirectory {
	return &memDirectory{locations: map[string]memLocation{
		id: {enabled: true},
	}}
}

func TestIssueThenValidate(t *testing.T) {
	t0 := time.Now().Truncate(time.Millisecond)
	svc, st := newTestService(singleLocationDir("loc-1"), t0)

	issued, err := svc.Issue(context.Background(), "loc-1", SystemCaller)
	require.NoError(t, err)
	assert.Equal(t, "loc-1", issued.LocationID)
	assert.Equal(t, 30, issued.ValiditySeconds)
	assert.True(t, issued.ExpiresAt.Equal(t0.Add(30*time.Second)))
	require.Len(t, st.rows, 1)

	vt, err := svc.Validate(context.Background(), issued.Token, t0.Add(5*time.Second))
	require.NoError(t, err)
	assert.Equal(t, "loc-1", vt.LocationID)
	assert.Equal(t, st.rows[0].Nonce, vt.Nonce)
}

func TestIssueRejectsUnknownAndDisabledLocations(t *testing.T) {
	dir := &memDirectory{locations: map[string]memLocation{
		"disabled": {enabled: false},
	}}
	svc, _ := newTestService(dir, time.Now())

	_, err := svc.Issue(context.Background(), "missing", SystemCaller)
	assert.ErrorIs(t, err, ErrInvalidLocation)

	_, err = svc.Issue(context.Background(), "disabled", SystemCaller)
	assert.ErrorIs(t, err, ErrInvalidLocation)
}

func TestIssueEnforcesManagerRestriction(t *testing.T) {
	dir := &memDirectory{locations: map[string]memLocation{
		"managed": {managerID: "alice", enabled: true},
	}}
	svc, _ := newTestService(dir, time.Now())

	_, err := svc.Issue(context.Background(), "managed", "bob")
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.Issue(context.Background(), "managed", "alice")
	assert.NoError(t, err)

	_, err = svc.Issue(context.Background(), "managed", SystemCaller)
	assert.NoError(t, err)
}

func TestValidateRejectsMalformed(t *testing.T) {
	svc, _ := newTestService(singleLocationDir("loc-1"), time.Now())

	_, err := svc.Validate(context.Background(), "not a token", time.Now())
	r, ok := reject.As(err)
	require.True(t, ok)
	assert.Equal(t, reject.MalformedToken, r.Code)
}

func TestValidateRejectsTamperedPayload(t *testing.T) {
	t0 := time.Now().Truncate(time.Millisecond)
	svc, _ := newTestService(singleLocationDir("loc-1"), t0)

	issued, err := svc.Issue(context.Background(), "loc-1", SystemCaller)
	require.NoError(t, err)

	// Rebind the token to another location; the tag no longer matches.
	tampered := strings.Replace(issued.Token, "|loc-1|", "|loc-2|", 1)
	require.NotEqual(t, issued.Token, tampered)

	_, err = svc.Validate(context.Background(), tampered, t0)
	r, ok := reject.As(err)
	require.True(t, ok)
	assert.Equal(t, reject.BadSignature, r.Code)
}

func TestValidateFreshnessBoundary(t *testing.T) {
	t0 := time.Now().Truncate(time.Millisecond)
	svc, _ := newTestService(singleLocationDir("loc-1"), t0)

	issued, err := svc.Issue(context.Background(), "loc-1", SystemCaller)
	require.NoError(t, err)

	// Exactly at expiry still passes.
	_, err = svc.Validate(context.Background(), issued.Token, issued.ExpiresAt)
	assert.NoError(t, err)

	// One millisecond past does not.
	_, err = svc.Validate(context.Background(), issued.Token, issued.ExpiresAt.Add(time.Millisecond))
	r, ok := reject.As(err)
	require.True(t, ok)
	assert.Equal(t, reject.Expired, r.Code)
}

func TestValidateRejectsSignedButNeverIssued(t *testing.T) {
	t0 := time.Now().Truncate(time.Millisecond)
	svc, _ := newTestService(singleLocationDir("loc-1"), t0)

	// Correctly signed with the real secret, but never persisted.
	nonce := make([]byte, NonceSize)
	nonceB64 := b64.EncodeToString(nonce)
	expiresAt := t0.Add(30 * time.Second)
	signedPart := fmt.Sprintf("%s|loc-1|%d", nonceB64, expiresAt.UnixMilli())
	tag := svc.signer.Sign([]byte(signedPart))
	forged := Prefix + signedPart + "|" + b64.EncodeToString(tag)

	_, err := svc.Validate(context.Background(), forged, t0)
	r, ok := reject.As(err)
	require.True(t, ok)
	assert.Equal(t, reject.NotFound, r.Code)
}

func TestCurrentReencodesIssuedTokenExactly(t *testing.T) {
	t0 := time.Now().Truncate(time.Millisecond)
	svc, _ := newTestService(singleLocationDir("loc-1"), t0)

	issued, err := svc.Issue(context.Background(), "loc-1", SystemCaller)
	require.NoError(t, err)

	current, err := svc.Current(context.Background(), "loc-1")
	require.NoError(t, err)
	assert.Equal(t, issued.Token, current.Token)
	assert.True(t, issued.ExpiresAt.Equal(current.ExpiresAt))
}

func TestCurrentSkipsExpiredRows(t *testing.T) {
	t0 := time.Now().Truncate(time.Millisecond)
	svc, st := newTestService(singleLocationDir("loc-1"), t0)

	_, err := svc.Issue(context.Background(), "loc-1", SystemCaller)
	require.NoError(t, err)

	svc.now = func() time.Time { return t0.Add(31 * time.Second) }
	_, err = svc.Current(context.Background(), "loc-1")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	// Expired rows remain in the store; rotation never deletes.
	assert.Len(t, st.rows, 1)
}

func TestRotateAllIssuesForEveryEnabledLocation(t *testing.T) {
	dir := &memDirectory{locations: map[string]memLocation{
		"a": {enabled: true},
		"b": {enabled: true},
		"c": {enabled: false},
	}}
	svc, st := newTestService(dir, time.Now())

	require.NoError(t, svc.RotateAll(context.Background()))

	byLocation := map[string]int{}
	for _, r := range st.rows {
		byLocation[r.LocationID]++
	}
	assert.Equal(t, map[string]int{"a": 1, "b": 1}, byLocation)
}
