package ocr

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"time"

	"github.com/hrygo/medibook/plugin/cache"
)

// TextExtractor is the method set shared by Client and CachedExtractor.
type TextExtractor interface {
	ExtractText(ctx context.Context, image []byte, mimeType string) (string, error)
}

// CachedExtractor memoizes successful extractions by image content hash.
// Failures are never cached.
type CachedExtractor struct {
	next  TextExtractor
	cache *cache.LRU[string]
}

// NewCachedExtractor wraps next with an LRU of the given size and lifetime.
func NewCachedExtractor(next TextExtractor, capacity int, ttl time.Duration) *CachedExtractor {
	return &CachedExtractor{
		next:  next,
		cache: cache.NewLRU[string](capacity, ttl),
	}
}

// ExtractText returns a cached result for identical bytes, otherwise delegates.
func (c *CachedExtractor) ExtractText(ctx context.Context, image []byte, mimeType string) (string, error) {
	key := contentKey(image)
	if text, ok := c.cache.Get(key); ok {
		slog.Debug("ocr cache hit", "key", key[:12])
		return text, nil
	}

	text, err := c.next.ExtractText(ctx, image, mimeType)
	if err != nil {
		return "", err
	}
	c.cache.Set(key, text)
	return text, nil
}

func contentKey(image []byte) string {
	sum := sha256.Sum256(image)
	return hex.EncodeToString(sum[:])
}

// CleanupExpired drops expired cache entries.
func (c *CachedExtractor) CleanupExpired() int {
	return c.cache.CleanupExpired()
}
