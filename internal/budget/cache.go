package budget

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"

	"go.opentelemetry.io/otel/attribute"

	"github.com/fyrsmithlabs/agentflow/internal/storage"
)

// safeKey matches cache keys usable directly as filenames.
var safeKey = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// cachePath maps a cache key to its backing file. Keys that are not
// filesystem-safe are hashed so arbitrary strings (URLs, titles) still
// work as keys.
func (m *Manager) cachePath(key string) string {
	name := key
	if !safeKey.MatchString(key) || len(key) > 128 {
		sum := sha256.Sum256([]byte(key))
		name = hex.EncodeToString(sum[:])
	}
	return filepath.Join(m.root, "cache", name)
}

// CacheSet stores content verbatim under key. Entries never expire;
// the cache exists to avoid recomputing summaries.
func (m *Manager) CacheSet(ctx context.Context, key, content string) error {
	_, span := m.tracer.Start(ctx, "cache.set")
	defer span.End()

	if key == "" {
		return ErrEmptyCacheKey
	}
	if err := storage.WriteString(m.cachePath(key), content); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	return nil
}

// CacheGet returns the content stored under key. A missing key is
// ErrCacheMiss rather than an empty value, so callers can tell "never
// cached" from "cached empty".
func (m *Manager) CacheGet(ctx context.Context, key string) (string, error) {
	ctx, span := m.tracer.Start(ctx, "cache.get")
	defer span.End()
	span.SetAttributes(attribute.String("key", key))

	if key == "" {
		return "", ErrEmptyCacheKey
	}

	content, err := storage.ReadString(m.cachePath(key))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			if m.cacheMisses != nil {
				m.cacheMisses.Add(ctx, 1)
			}
			return "", fmt.Errorf("%w: %s", ErrCacheMiss, key)
		}
		span.RecordError(err)
		return "", err
	}

	if m.cacheHits != nil {
		m.cacheHits.Add(ctx, 1)
	}
	return content, nil
}
