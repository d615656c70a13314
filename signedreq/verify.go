package signedreq

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// ReplayCache remembers consumed request ids. Implementations are shared
// between requests and must be safe for concurrent use.
type ReplayCache interface {
	// Has reports whether key is present.
	Has(ctx context.Context, key string) (bool, error)

	// Put stores key with value for ttl.
	Put(ctx context.Context, key, value string, ttl time.Duration) error
}

// AtomicReplayCache is a ReplayCache that can store a key only when it is
// absent. When the configured cache implements it, VerifyRequest records
// the id with PutIfAbsent so two concurrent copies of one request cannot
// both be accepted.
type AtomicReplayCache interface {
	ReplayCache

	// PutIfAbsent stores key and reports true, or reports false when key
	// already exists.
	PutIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
}

// VerifyConfig configures inbound request verification.
type VerifyConfig struct {
	// Profile supplies header names, key, tolerance and cache prefix.
	Profile Profile

	// Cache records consumed ids. Required unless Profile.ReplayAllowed.
	Cache ReplayCache

	// Clock is used for the tolerance check. Defaults to SystemClock.
	Clock Clock

	// Logger receives one entry per decision. Defaults to a no-op logger.
	Logger *zap.Logger

	// Metrics counts decisions when set.
	Metrics *Metrics
}

// replayMarker is the value stored under each replay key.
const replayMarker = "1"

// VerifyRequest runs the full receiving-side check on r:
//
//  1. with replay protection enabled, reject expired timestamps and ids
//     already present in the cache with ErrExpiredRequest;
//  2. reject missing headers and signature mismatches with
//     ErrInvalidSignature;
//  3. record the id in the cache and accept.
//
// Cache failures are wrapped in ErrReplayCache and reject the request.
// The body of r is restored after reading.
func VerifyRequest(r *http.Request, cfg VerifyConfig) error {
	profile := cfg.Profile.WithDefaults()
	if err := profile.Validate(); err != nil {
		return err
	}

	if !profile.ReplayAllowed && cfg.Cache == nil {
		return ErrNoReplayCache
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	ctx := r.Context()

	v := NewVerifier(FromHTTP(r)).
		SetIDHeader(profile.IDHeader).
		SetTimestampHeader(profile.TimestampHeader).
		SetAlgorithmHeader(profile.AlgorithmHeader).
		SetSignatureHeader(profile.SignatureHeader).
		SetClock(cfg.Clock)

	id := v.ID()
	key := profile.ReplayKey(id)

	log := logger.With(
		zap.String("profile", profile.Name),
		zap.String("id", id),
	)

	reject := func(result string, err error) error {
		log.Info("signed request rejected", zap.String("reason", result), zap.Error(err))
		cfg.Metrics.observeVerification(profile.Name, result)
		return err
	}

	if !profile.ReplayAllowed {
		if v.IsExpired(profile.Tolerance) {
			return reject(resultExpired, fmt.Errorf("%w: timestamp outside %s tolerance", ErrExpiredRequest, profile.Tolerance))
		}

		seen, err := cfg.Cache.Has(ctx, key)
		if err != nil {
			return reject(resultCacheError, fmt.Errorf("%w: %w", ErrReplayCache, err))
		}

		if seen {
			return reject(resultReplayed, fmt.Errorf("%w: request id already used", ErrExpiredRequest))
		}
	}

	if err := v.verifySignature(profile.Key); err != nil {
		return reject(resultInvalidSignature, err)
	}

	if err := recordID(ctx, cfg.Cache, profile, key); err != nil {
		if errors.Is(err, ErrExpiredRequest) {
			return reject(resultReplayed, err)
		}

		return reject(resultCacheError, err)
	}

	log.Debug("signed request accepted")
	cfg.Metrics.observeVerification(profile.Name, resultAccepted)

	return nil
}

// recordID writes the replay entry. With replay protection enabled and an
// AtomicReplayCache, losing the race to a concurrent request with the same
// id is reported as ErrExpiredRequest.
func recordID(ctx context.Context, cache ReplayCache, profile Profile, key string) error {
	if cache == nil {
		return nil
	}

	if atomic, ok := cache.(AtomicReplayCache); ok && !profile.ReplayAllowed {
		stored, err := atomic.PutIfAbsent(ctx, key, replayMarker, profile.ReplayTTL)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrReplayCache, err)
		}

		if !stored {
			return fmt.Errorf("%w: request id already used", ErrExpiredRequest)
		}

		return nil
	}

	if err := cache.Put(ctx, key, replayMarker, profile.ReplayTTL); err != nil {
		return fmt.Errorf("%w: %w", ErrReplayCache, err)
	}

	return nil
}
