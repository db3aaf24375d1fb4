package cache

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"

	"github.com/medconnect/clinic-backend/internal/domain/providers"
	"github.com/medconnect/clinic-backend/internal/domain/repositories"
)

// OTPStore keeps one-time codes in the cache, one key per user.
// Writing a new code overwrites the key, which supersedes the previous code.
type OTPStore struct {
	cache providers.CacheProvider
}

// NewOTPStore creates an OTP store backed by cache
func NewOTPStore(cache providers.CacheProvider) repositories.OTPRepository {
	return &OTPStore{cache: cache}
}

func otpKey(userID string) string {
	return "otp:" + userID
}

// Save stores code for userID
func (s *OTPStore) Save(ctx context.Context, userID, code string, ttlSeconds int) error {
	if err := s.cache.Set(ctx, otpKey(userID), []byte(code), ttlSeconds); err != nil {
		return fmt.Errorf("failed to store otp: %w", err)
	}
	return nil
}

// Consume deletes the stored code when it matches. Expiry is enforced by the cache TTL.
func (s *OTPStore) Consume(ctx context.Context, userID, code string) (bool, error) {
	stored, err := s.cache.Get(ctx, otpKey(userID))
	if errors.Is(err, providers.ErrCacheMiss) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to load otp: %w", err)
	}

	if subtle.ConstantTimeCompare(stored, []byte(code)) != 1 {
		return false, nil
	}

	if err := s.cache.Delete(ctx, otpKey(userID)); err != nil {
		return false, fmt.Errorf("failed to consume otp: %w", err)
	}
	return true, nil
}
