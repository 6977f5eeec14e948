package credentials

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// Store resolves the API key used for remote calls.
type Store struct {
	repo      Repository
	lookupEnv func(key string) (string, bool)
	now       func() time.Time
}

// StoreOption customizes a Store.
type StoreOption func(*Store)

// WithLookupEnv replaces the environment lookup.
func WithLookupEnv(lookup func(key string) (string, bool)) StoreOption {
	return func(s *Store) {
		s.lookupEnv = lookup
	}
}

// NewStore wraps repo with the environment override.
func NewStore(repo Repository, opts ...StoreOption) *Store {
	s := &Store{
		repo:      repo,
		lookupEnv: os.LookupEnv,
		now:       time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// GetAPIKey returns the environment key when set, otherwise the stored one.
// It returns ErrNotFound when neither is available.
func (s *Store) GetAPIKey(ctx context.Context) (string, error) {
	if key, ok := s.lookupEnv(APIKeyEnvVar); ok && strings.TrimSpace(key) != "" {
		return strings.TrimSpace(key), nil
	}

	creds, err := s.repo.Load(ctx)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", ErrNotFound
		}

		return "", fmt.Errorf("load credentials: %w", err)
	}

	return strings.TrimSpace(creds.APIKey), nil
}

// SaveAPIKey persists key as the stored credentials.
func (s *Store) SaveAPIKey(ctx context.Context, key string) error {
	return s.repo.Save(ctx, &Credentials{
		APIKey:  strings.TrimSpace(key),
		SavedAt: s.now().UTC().Truncate(time.Second),
	})
}
