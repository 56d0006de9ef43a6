package attendance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nomia-hq/nomia/internal/models"
	"github.com/nomia-hq/nomia/internal/modules/token"
	"github.com/nomia-hq/nomia/internal/pkg/pagination"
	"github.com/nomia-hq/nomia/internal/pkg/reject"
	"github.com/nomia-hq/nomia/internal/pkg/response"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DayFormat is the calendar-day bucket key, computed in the deployment's
// reference timezone.
const DayFormat = "2006-01-02"

// MinEventGap is the shortest span between a committed entrada and an
// accepted salida. A rescan inside the gap is treated as a repeat of the
// entrada, not as an attempt to leave seconds after arriving.
const MinEventGap = 30 * time.Minute

// Validator is the slice of the token service a scan needs.
type Validator interface {
	Validate(ctx context.Context, tokenString string, now time.Time) (*token.ValidatedToken, error)
}

// ScanResult is what a successful scan returns to the user.
type ScanResult struct {
	Kind       models.EventKind `json:"event_kind"`
	RecordedAt time.Time        `json:"recorded_at"`
	LocationID string           `json:"location_id"`
}

// DayStatus is the derived view of a user's current day.
type DayStatus struct {
	Day    string                        `json:"day"`
	State  string                        `json:"state"` // absent | checked_in | checked_out
	Events []models.AttendanceEventModel `json:"events"`
}

// Service decides and commits attendance events. It is the sole writer of
// the event table; every insert goes through the guarded path in recordOnce.
type Service struct {
	db      *gorm.DB
	store   Store
	tokens  Validator
	loc     *time.Location
	timeout time.Duration
	now     func() time.Time
	log     *zap.Logger
}

func NewService(db *gorm.DB, tokens Validator, loc *time.Location, timeout time.Duration, log *zap.Logger) *Service {
	return &Service{
		db:      db,
		store:   NewStore(db),
		tokens:  tokens,
		loc:     loc,
		timeout: timeout,
		now:     time.Now,
		log:     log.Named("AttendanceService"),
	}
}

// RecordScan validates the token and commits the next event for the user's
// day. Expected outcomes come back as *reject.Reject; any other error is a
// transient infrastructure failure already retried once.
func (s *Service) RecordScan(ctx context.Context, userID, tokenString string) (*ScanResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	now := s.now()
	vt, err := s.tokens.Validate(ctx, tokenString, now)
	if err != nil {
		return nil, err
	}

	day := now.In(s.loc).Format(DayFormat)

	// One internal retry with a fresh precondition read; after that a
	// storage fault surfaces as a server error, never as a rejection.
	result, err := s.recordOnce(ctx, userID, day, vt, now)
	if err != nil && !isRejection(err) {
		if deadlineHit(ctx, err) {
			return nil, reject.New(reject.Timeout, "scan processing timed out, nothing was recorded")
		}
		s.log.Warn("scan commit failed, retrying once",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		result, err = s.recordOnce(ctx, userID, day, vt, now)
		if err != nil && !isRejection(err) {
			if deadlineHit(ctx, err) {
				return nil, reject.New(reject.Timeout, "scan processing timed out, nothing was recorded")
			}
			return nil, fmt.Errorf("commit attendance event: %w", err)
		}
	}
	if err != nil {
		return nil, err
	}

	s.log.Info("attendance event recorded",
		zap.String("user_id", userID),
		zap.String("kind", string(result.Kind)),
		zap.String("location_id", result.LocationID),
	)
	return result, nil
}

func (s *Service) recordOnce(ctx context.Context, userID, day string, vt *token.ValidatedToken, now time.Time) (*ScanResult, error) {
	events, err := s.store.EventsForDay(ctx, userID, day)
	if err != nil {
		return nil, err
	}

	kind, rej := nextKind(events, now)
	if rej != nil {
		return nil, rej
	}

	ev := &models.AttendanceEventModel{
		UserID:     userID,
		Day:        day,
		Kind:       kind,
		LocationID: vt.LocationID,
		TokenNonce: vt.Nonce,
		RecordedAt: now,
	}
	if err := s.store.Insert(ctx, ev); err != nil {
		if errors.Is(err, ErrDuplicate) {
			// A concurrent scan won the slot. Same answer as if we had seen
			// its event in the precondition read.
			return nil, limitFor(kind)
		}
		return nil, err
	}

	return &ScanResult{Kind: kind, RecordedAt: now, LocationID: vt.LocationID}, nil
}

// nextKind is the total function from a day's prior events to the kind the
// current scan should commit, or the rejection explaining why none can.
//
//	no events                  -> entrada
//	entrada only, inside gap   -> EntryLimitReached (treated as a repeat)
//	entrada only, past the gap -> salida
//	entrada + salida           -> ExitLimitReached (day complete)
func nextKind(events []models.AttendanceEventModel, now time.Time) (models.EventKind, *reject.Reject) {
	if len(events) == 0 {
		return models.KindEntrada, nil
	}

	var hasEntrada, hasSalida bool
	for _, ev := range events {
		switch ev.Kind {
		case models.KindEntrada:
			hasEntrada = true
		case models.KindSalida:
			hasSalida = true
		}
	}

	if hasEntrada && hasSalida {
		return "", reject.New(reject.ExitLimitReached, "both events for today are already recorded")
	}

	last := events[len(events)-1]
	if last.Kind == models.KindEntrada {
		if now.Sub(last.RecordedAt) < MinEventGap {
			return "", reject.New(reject.EntryLimitReached, "entrada already recorded for today")
		}
		return models.KindSalida, nil
	}

	// A lone salida cannot be committed by this machine; if one exists the
	// slot for entrada is still open.
	return models.KindEntrada, nil
}

func limitFor(kind models.EventKind) *reject.Reject {
	if kind == models.KindSalida {
		return reject.New(reject.ExitLimitReached, "salida already recorded for today")
	}
	return reject.New(reject.EntryLimitReached, "entrada already recorded for today")
}

// Today returns the user's derived state for the current calendar day.
func (s *Service) Today(ctx context.Context, userID string) (*DayStatus, error) {
	day := s.now().In(s.loc).Format(DayFormat)
	events, err := s.store.EventsForDay(ctx, userID, day)
	if err != nil {
		return nil, err
	}

	state := "absent"
	var hasEntrada, hasSalida bool
	for _, ev := range events {
		switch ev.Kind {
		case models.KindEntrada:
			hasEntrada = true
		case models.KindSalida:
			hasSalida = true
		}
	}
	switch {
	case hasEntrada && hasSalida:
		state = "checked_out"
	case hasEntrada:
		state = "checked_in"
	}

	if events == nil {
		events = []models.AttendanceEventModel{}
	}
	return &DayStatus{Day: day, State: state, Events: events}, nil
}

// ListEvents returns the user's full event history, newest first.
func (s *Service) ListEvents(ctx context.Context, userID string, q pagination.Query) ([]models.AttendanceEventModel, response.Pagination, error) {
	query := s.db.WithContext(ctx).
		Model(&models.AttendanceEventModel{}).
		Where("user_id = ?", userID).
		Order("recorded_at DESC")

	var events []models.AttendanceEventModel
	meta, err := pagination.Paginate(query, q, &events)
	if err != nil {
		return nil, response.Pagination{}, err
	}
	return events, meta, nil
}

func isRejection(err error) bool {
	_, ok := reject.As(err)
	return ok
}

func deadlineHit(ctx context.Context, err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded)
}
