package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"gocddb/core/cddb"
	"gocddb/logger"
)

// ErrMiss is returned by a Store for absent keys.
var ErrMiss = errors.New("cache: miss")

// Store is a string key-value store with expiry.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// cachedResponse 缓存中的响应
type cachedResponse struct {
	Status     int    `json:"status"`
	Message    string `json:"message"`
	Data       string `json:"data,omitempty"`
	Terminated bool   `json:"terminated,omitempty"`
}

// RecordCache keeps successful "cddb read" and "cddb query" responses. Use
// Lookup as a command hook and Store as a response hook of a dispatcher.
type RecordCache struct {
	store Store
	ttl   time.Duration
}

// NewRecordCache returns a cache writing entries with ttl.
func NewRecordCache(store Store, ttl time.Duration) *RecordCache {
	return &RecordCache{store: store, ttl: ttl}
}

// cacheKey returns the key of a cacheable command, or "".
func cacheKey(command string) string {
	fields := strings.Fields(strings.ToLower(command))
	if len(fields) < 3 || fields[0] != "cddb" {
		return ""
	}
	switch fields[1] {
	case "read", "query":
		return "cddb:" + strings.Join(fields[1:], " ")
	default:
		return ""
	}
}

// Lookup answers command from the cache, or returns nil.
func (c *RecordCache) Lookup(ctx context.Context, command string) *cddb.Response {
	key := cacheKey(command)
	if key == "" {
		return nil
	}
	val, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrMiss) {
			logger.Warn("cache lookup failed", logger.String("key", key), logger.ErrorField(err))
		}
		return nil
	}

	var cached cachedResponse
	if err := json.Unmarshal([]byte(val), &cached); err != nil {
		logger.Warn("corrupt cache entry", logger.String("key", key), logger.ErrorField(err))
		return nil
	}
	logger.Debug("cache hit", logger.String("key", key))
	return &cddb.Response{
		Status:     cached.Status,
		Message:    cached.Message,
		Data:       cached.Data,
		Terminated: cached.Terminated,
	}
}

// Store saves successful responses to cacheable commands. It never replaces
// the response.
func (c *RecordCache) Store(ctx context.Context, command string, resp *cddb.Response) *cddb.Response {
	key := cacheKey(command)
	if key == "" || !cacheable(resp.Status) {
		return nil
	}

	val, err := json.Marshal(cachedResponse{
		Status:     resp.Status,
		Message:    resp.Message,
		Data:       resp.Data,
		Terminated: resp.Terminated,
	})
	if err != nil {
		logger.Warn("failed to marshal response", logger.ErrorField(err))
		return nil
	}
	if err := c.store.Set(ctx, key, string(val), c.ttl); err != nil {
		logger.Warn("cache store failed", logger.String("key", key), logger.ErrorField(err))
	}
	return nil
}

func cacheable(status int) bool {
	switch status {
	case cddb.StatusOK, cddb.StatusFollows, cddb.StatusInexact:
		return true
	default:
		return false
	}
}
