package token

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/nomia-hq/nomia/internal/models"
	"github.com/nomia-hq/nomia/internal/pkg/reject"
	"github.com/nomia-hq/nomia/internal/pkg/signer"
	"go.uber.org/zap"
)

var (
	// ErrInvalidLocation means the location does not exist or is disabled.
	ErrInvalidLocation = errors.New("location does not exist or is disabled")
	// ErrForbidden means the caller may not issue tokens for this location.
	ErrForbidden = errors.New("caller is not the manager of this location")
)

// SystemCaller marks issuance triggered by the rotation scheduler rather
// than an administrator; it bypasses the per-location manager restriction.
const SystemCaller = ""

// Service mints and validates display tokens.
type Service struct {
	store    Store
	dir      LocationDirectory
	signer   *signer.Signer
	validity time.Duration
	now      func() time.Time
	log      *zap.Logger
}

func NewService(store Store, dir LocationDirectory, sg *signer.Signer, validity time.Duration, log *zap.Logger) *Service {
	return &Service{
		store:    store,
		dir:      dir,
		signer:   sg,
		validity: validity,
		now:      time.Now,
		log:      log.Named("TokenService"),
	}
}

// Issue mints a token for a location and persists it before returning the
// wire string. callerID restricts issuance when the location has a manager;
// pass SystemCaller for scheduler-driven rotation.
func (s *Service) Issue(ctx context.Context, locationID, callerID string) (*IssuedToken, error) {
	managerID, enabled, err := s.dir.Lookup(ctx, locationID)
	if err != nil {
		if IsNotFound(err) {
			return nil, ErrInvalidLocation
		}
		return nil, err
	}
	if !enabled {
		return nil, ErrInvalidLocation
	}
	if callerID != SystemCaller && managerID != "" && managerID != callerID {
		return nil, ErrForbidden
	}

	nonce, err := randomNonce()
	if err != nil {
		return nil, fmt.Errorf("nonce generation failed: %w", err)
	}

	nonceB64 := b64.EncodeToString(nonce)
	expiresAt := s.now().Add(s.validity).Truncate(time.Millisecond)
	signedPart := fmt.Sprintf("%s|%s|%d", nonceB64, locationID, expiresAt.UnixMilli())
	tag := s.signer.Sign([]byte(signedPart))

	row := &models.PassTokenModel{
		Nonce:      nonceB64,
		LocationID: locationID,
		ExpiresAt:  expiresAt,
		Signature:  b64.EncodeToString(tag),
	}
	// The row is the proof of issuance; without it the token string must
	// never be handed out.
	if err := s.store.Insert(ctx, row); err != nil {
		return nil, fmt.Errorf("persist token: %w", err)
	}

	s.log.Info("token issued",
		zap.String("location_id", locationID),
		zap.Time("expires_at", expiresAt),
	)

	return &IssuedToken{
		Token:           Prefix + signedPart + "|" + row.Signature,
		LocationID:      locationID,
		ExpiresAt:       expiresAt,
		ValiditySeconds: int(s.validity / time.Second),
	}, nil
}

// Validate checks a submitted token string. Expected rejections come back as
// *reject.Reject; anything else is an infrastructure fault.
//
// The order is fixed: structure, signature, freshness, provenance. Each step
// short-circuits, so a forged string never reaches the store and an expired
// one never costs a lookup.
func (s *Service) Validate(ctx context.Context, tokenString string, now time.Time) (*ValidatedToken, error) {
	p, err := parseToken(tokenString)
	if err != nil {
		return nil, reject.New(reject.MalformedToken, "token string is not structurally valid: "+err.Error())
	}

	if !s.signer.Verify(p.SignedPart, p.Tag) {
		// Distinct log channel: repeated signature failures from one source
		// are a monitoring signal, not noise.
		s.log.Warn("signature verification failed",
			zap.String("location_id", p.LocationID),
		)
		return nil, reject.New(reject.BadSignature, "token signature does not verify")
	}

	if now.After(p.ExpiresAt) {
		elapsed := now.Sub(p.ExpiresAt).Round(time.Second)
		return nil, reject.New(reject.Expired, fmt.Sprintf("token expired %s ago, rescan the current display", elapsed))
	}

	found, err := s.store.Exists(ctx, p.NonceB64, p.TagB64)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, reject.New(reject.Timeout, "token lookup timed out, scan rejected")
		}
		return nil, fmt.Errorf("token lookup: %w", err)
	}
	if !found {
		// Correct signature, no issuance record. Someone signed a lookalike
		// string with the real secret or a revoked token resurfaced.
		s.log.Error("validly signed token has no issuance record",
			zap.String("location_id", p.LocationID),
			zap.String("nonce", p.NonceB64),
		)
		return nil, reject.New(reject.NotFound, "token was never issued by this server")
	}

	return &ValidatedToken{
		Nonce:      p.NonceB64,
		LocationID: p.LocationID,
		ExpiresAt:  p.ExpiresAt,
	}, nil
}

// Current returns the newest live token for a location, re-encoded from its
// stored fields so the wire string is byte-identical to the issued one.
func (s *Service) Current(ctx context.Context, locationID string) (*IssuedToken, error) {
	row, err := s.store.Latest(ctx, locationID, s.now())
	if err != nil {
		return nil, err
	}

	tag, err := b64.DecodeString(row.Signature)
	if err != nil {
		return nil, fmt.Errorf("stored signature is corrupt: %w", err)
	}

	return &IssuedToken{
		Token:           encodeToken(row.Nonce, row.LocationID, row.ExpiresAt, tag),
		LocationID:      row.LocationID,
		ExpiresAt:       row.ExpiresAt,
		ValiditySeconds: int(s.validity / time.Second),
	}, nil
}

// RotateAll issues a replacement token for every enabled location. A failure
// on one location does not stop the others; the previous still-unexpired
// token stays live as the fallback until the next tick.
func (s *Service) RotateAll(ctx context.Context) error {
	ids, err := s.dir.EnabledIDs(ctx)
	if err != nil {
		return fmt.Errorf("list locations: %w", err)
	}

	var failed int
	for _, id := range ids {
		if _, err := s.Issue(ctx, id, SystemCaller); err != nil {
			failed++
			s.log.Warn("rotation failed for location",
				zap.String("location_id", id),
				zap.Error(err),
			)
		}
	}
	if failed > 0 {
		return fmt.Errorf("rotation failed for %d of %d locations", failed, len(ids))
	}
	return nil
}

// randomNonce draws from the CSPRNG, retrying once on a transient failure.
func randomNonce() ([]byte, error) {
	nonce := make([]byte, NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		if _, err2 := rand.Read(nonce); err2 != nil {
			return nil, err2
		}
	}
	return nonce, nil
}
