package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
)

// Keys under which the application persists its collections.
const (
	KeyPosts   = "sharpfeed_posts"
	KeyUsers   = "sharpfeed_users"
	KeySession = "sharpfeed_session"
	KeyTheme   = "sharpfeed_theme"
)

// ErrKeyNotFound is returned by Get when no value exists under the key.
var ErrKeyNotFound = errors.New("key not found")

// Store persists opaque serialized values under string keys. Writes are
// single-attempt and independent per key; there is no transaction spanning
// multiple keys.
type Store interface {
	Init(ctx context.Context) error
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Load decodes the JSON value stored under key into a T. A missing key or a
// blob that fails to decode yields def; decode failures are logged for
// diagnostics but never propagated to the caller.
func Load[T any](ctx context.Context, s Store, key string, def T, logger *logrus.Logger) T {
	raw, err := s.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrKeyNotFound) && logger != nil {
			logger.Warnf("load %s: %v", key, err)
		}
		return def
	}

	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		if logger != nil {
			logger.Warnf("decode %s: %v", key, err)
		}
		return def
	}
	return v
}

// Save serializes v as JSON and writes it under key.
func Save(ctx context.Context, s Store, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := s.Put(ctx, key, raw); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}
