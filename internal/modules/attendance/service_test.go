package attendance

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nomia-hq/nomia/internal/models"
	"github.com/nomia-hq/nomia/internal/modules/token"
	"github.com/nomia-hq/nomia/internal/pkg/reject"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// memStore emulates the unique index over (user_id, day, kind) so the race
// behavior of the guarded insert can be exercised without a database.
type memStore struct {
	mu     sync.Mutex
	events []models.AttendanceEventModel
}

func (m *memStore) EventsForDay(_ context.Context, userID, day string) ([]models.AttendanceEventModel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.AttendanceEventModel
	for _, ev := range m.events {
		if ev.UserID == userID && ev.Day == day {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (m *memStore) Insert(_ context.Context, ev *models.AttendanceEventModel) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.events {
		if existing.UserID == ev.UserID && existing.Day == ev.Day && existing.Kind == ev.Kind {
			return ErrDuplicate
		}
	}
	m.events = append(m.events, *ev)
	return nil
}

// flakyStore fails the first N calls with a transient error.
type flakyStore struct {
	memStore
	readFailures  int
	writeFailures int
}

var errTransient = errors.New("connection reset")

func (f *flakyStore) EventsForDay(ctx context.Context, userID, day string) ([]models.AttendanceEventModel, error) {
	if f.readFailures > 0 {
		f.readFailures--
		return nil, errTransient
	}
	return f.memStore.EventsForDay(ctx, userID, day)
}

func (f *flakyStore) Insert(ctx context.Context, ev *models.AttendanceEventModel) error {
	if f.writeFailures > 0 {
		f.writeFailures--
		return errTransient
	}
	return f.memStore.Insert(ctx, ev)
}

// stalledStore never answers; reads park until the caller's deadline fires.
type stalledStore struct {
	memStore
}

func (s *stalledStore) EventsForDay(ctx context.Context, _, _ string) ([]models.AttendanceEventModel, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

// stubValidator accepts every token string and binds it to one location.
type stubValidator struct {
	locationID string
	err        error
}

func (s *stubValidator) Validate(_ context.Context, _ string, _ time.Time) (*token.ValidatedToken, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &token.ValidatedToken{Nonce: "stub-nonce", LocationID: s.locationID}, nil
}

func newTestService(store Store, clock *time.Time) *Service {
	return &Service{
		store:   store,
		tokens:  &stubValidator{locationID: "loc-1"},
		loc:     time.UTC,
		timeout: time.Second,
		now:     func() time.Time { return *clock },
		log:     zap.NewNop(),
	}
}

func at(t *testing.T, value string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, value)
	require.NoError(t, err)
	return ts
}

func requireReject(t *testing.T, err error, code reject.Code) {
	t.Helper()
	r, ok := reject.As(err)
	require.True(t, ok, "expected a rejection, got %v", err)
	assert.Equal(t, code, r.Code)
}

func TestFirstScanOfDayIsEntrada(t *testing.T) {
	clock := at(t, "2026-08-28T08:50:00Z")
	svc := newTestService(&memStore{}, &clock)

	result, err := svc.RecordScan(context.Background(), "user-1", "tok")
	require.NoError(t, err)
	assert.Equal(t, models.KindEntrada, result.Kind)
	assert.True(t, result.RecordedAt.Equal(clock))
	assert.Equal(t, "loc-1", result.LocationID)
}

func TestRepeatScanShortlyAfterEntradaIsRejected(t *testing.T) {
	clock := at(t, "2026-08-28T08:50:00Z")
	svc := newTestService(&memStore{}, &clock)

	_, err := svc.RecordScan(context.Background(), "user-1", "tok")
	require.NoError(t, err)

	clock = at(t, "2026-08-28T08:55:00Z")
	_, err = svc.RecordScan(context.Background(), "user-1", "tok")
	requireReject(t, err, reject.EntryLimitReached)
}

func TestFullDayThenThirdScanIsRejected(t *testing.T) {
	clock := at(t, "2026-08-28T08:50:00Z")
	store := &memStore{}
	svc := newTestService(store, &clock)

	first, err := svc.RecordScan(context.Background(), "user-1", "tok")
	require.NoError(t, err)
	assert.Equal(t, models.KindEntrada, first.Kind)

	clock = at(t, "2026-08-28T17:30:00Z")
	second, err := svc.RecordScan(context.Background(), "user-1", "tok")
	require.NoError(t, err)
	assert.Equal(t, models.KindSalida, second.Kind)
	assert.True(t, first.RecordedAt.Before(second.RecordedAt))

	clock = at(t, "2026-08-28T17:45:00Z")
	_, err = svc.RecordScan(context.Background(), "user-1", "tok")
	requireReject(t, err, reject.ExitLimitReached)
}

func TestNewDayStartsOverWithEntrada(t *testing.T) {
	clock := at(t, "2026-08-28T08:50:00Z")
	store := &memStore{}
	svc := newTestService(store, &clock)

	_, err := svc.RecordScan(context.Background(), "user-1", "tok")
	require.NoError(t, err)
	clock = at(t, "2026-08-28T17:30:00Z")
	_, err = svc.RecordScan(context.Background(), "user-1", "tok")
	require.NoError(t, err)

	clock = at(t, "2026-08-29T09:00:00Z")
	result, err := svc.RecordScan(context.Background(), "user-1", "tok")
	require.NoError(t, err)
	assert.Equal(t, models.KindEntrada, result.Kind)
	assert.Equal(t, "2026-08-29", store.events[2].Day)
}

func TestDayBucketUsesReferenceTimezone(t *testing.T) {
	// 2026-08-28T23:30-05:00 is already the 29th in UTC; the reference
	// timezone decides the bucket, not UTC.
	lima, err := time.LoadLocation("America/Lima")
	require.NoError(t, err)

	clock := at(t, "2026-08-29T04:30:00Z")
	store := &memStore{}
	svc := newTestService(store, &clock)
	svc.loc = lima

	_, err = svc.RecordScan(context.Background(), "user-1", "tok")
	require.NoError(t, err)
	assert.Equal(t, "2026-08-28", store.events[0].Day)
}

func TestConcurrentScansCommitExactlyOneEntrada(t *testing.T) {
	clock := at(t, "2026-08-28T08:50:00Z")
	store := &memStore{}
	svc := newTestService(store, &clock)

	const attempts = 16
	results := make(chan error, attempts)
	var start sync.WaitGroup
	start.Add(1)
	for i := 0; i < attempts; i++ {
		go func() {
			start.Wait()
			_, err := svc.RecordScan(context.Background(), "user-1", "tok")
			results <- err
		}()
	}
	start.Done()

	var committed, rejected int
	for i := 0; i < attempts; i++ {
		err := <-results
		if err == nil {
			committed++
			continue
		}
		requireReject(t, err, reject.EntryLimitReached)
		rejected++
	}

	assert.Equal(t, 1, committed)
	assert.Equal(t, attempts-1, rejected)
	require.Len(t, store.events, 1)
	assert.Equal(t, models.KindEntrada, store.events[0].Kind)
}

func TestSameTokenRedeemsForDifferentUsers(t *testing.T) {
	clock := at(t, "2026-08-28T08:50:00Z")
	store := &memStore{}
	svc := newTestService(store, &clock)

	first, err := svc.RecordScan(context.Background(), "user-1", "shared-tok")
	require.NoError(t, err)
	second, err := svc.RecordScan(context.Background(), "user-2", "shared-tok")
	require.NoError(t, err)

	assert.Equal(t, models.KindEntrada, first.Kind)
	assert.Equal(t, models.KindEntrada, second.Kind)
	require.Len(t, store.events, 2)
}

func TestValidationRejectionPassesThrough(t *testing.T) {
	clock := at(t, "2026-08-28T08:50:00Z")
	svc := newTestService(&memStore{}, &clock)
	svc.tokens = &stubValidator{err: reject.New(reject.Expired, "token expired")}

	_, err := svc.RecordScan(context.Background(), "user-1", "tok")
	requireReject(t, err, reject.Expired)
}

func TestTransientReadFailureIsRetriedOnce(t *testing.T) {
	clock := at(t, "2026-08-28T08:50:00Z")
	store := &flakyStore{readFailures: 1}
	svc := newTestService(store, &clock)

	result, err := svc.RecordScan(context.Background(), "user-1", "tok")
	require.NoError(t, err)
	assert.Equal(t, models.KindEntrada, result.Kind)
}

func TestPersistentFailureSurfacesAsServerError(t *testing.T) {
	clock := at(t, "2026-08-28T08:50:00Z")
	store := &flakyStore{readFailures: 2}
	svc := newTestService(store, &clock)

	_, err := svc.RecordScan(context.Background(), "user-1", "tok")
	require.Error(t, err)
	_, isReject := reject.As(err)
	assert.False(t, isReject, "infrastructure failures must not look like rejections")
}

func TestRetryUsesFreshPrecondition(t *testing.T) {
	clock := at(t, "2026-08-28T08:50:00Z")
	store := &flakyStore{writeFailures: 1}
	svc := newTestService(store, &clock)

	result, err := svc.RecordScan(context.Background(), "user-1", "tok")
	require.NoError(t, err)
	assert.Equal(t, models.KindEntrada, result.Kind)
	require.Len(t, store.events, 1)
}

func TestScanExceedingStorageDeadlineFailsClosed(t *testing.T) {
	clock := at(t, "2026-08-28T08:50:00Z")
	store := &stalledStore{}
	svc := newTestService(store, &clock)
	svc.timeout = 20 * time.Millisecond

	_, err := svc.RecordScan(context.Background(), "user-1", "tok")
	requireReject(t, err, reject.Timeout)
	assert.Empty(t, store.events, "a timed-out scan must record nothing")
}

func TestTodayDerivesState(t *testing.T) {
	clock := at(t, "2026-08-28T08:50:00Z")
	store := &memStore{}
	svc := newTestService(store, &clock)

	status, err := svc.Today(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "absent", status.State)
	assert.Empty(t, status.Events)

	_, err = svc.RecordScan(context.Background(), "user-1", "tok")
	require.NoError(t, err)
	status, err = svc.Today(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "checked_in", status.State)

	clock = at(t, "2026-08-28T17:30:00Z")
	_, err = svc.RecordScan(context.Background(), "user-1", "tok")
	require.NoError(t, err)
	status, err = svc.Today(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "checked_out", status.State)
	assert.Len(t, status.Events, 2)
}

func TestNextKindTotalFunction(t *testing.T) {
	base := at(t, "2026-08-28T08:50:00Z")
	entrada := models.AttendanceEventModel{Kind: models.KindEntrada, RecordedAt: base}
	salida := models.AttendanceEventModel{Kind: models.KindSalida, RecordedAt: base.Add(8 * time.Hour)}

	kind, rej := nextKind(nil, base)
	require.Nil(t, rej)
	assert.Equal(t, models.KindEntrada, kind)

	_, rej = nextKind([]models.AttendanceEventModel{entrada}, base.Add(5*time.Minute))
	require.NotNil(t, rej)
	assert.Equal(t, reject.EntryLimitReached, rej.Code)

	kind, rej = nextKind([]models.AttendanceEventModel{entrada}, base.Add(MinEventGap))
	require.Nil(t, rej)
	assert.Equal(t, models.KindSalida, kind)

	_, rej = nextKind([]models.AttendanceEventModel{entrada, salida}, base.Add(9*time.Hour))
	require.NotNil(t, rej)
	assert.Equal(t, reject.ExitLimitReached, rej.Code)
}
