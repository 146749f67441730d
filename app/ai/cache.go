package ai

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
)

var _ Summarizer = (*Cache)(nil)

// Cache memoizes summaries in a badger store. Entries expire after ttl and
// empty results are never stored.
type Cache struct {
	next Summarizer
	db   *badger.DB
	ttl  time.Duration
}

// OpenCache opens a badger store at dir. An empty dir keeps the cache in
// memory.
func OpenCache(next Summarizer, dir string, ttl time.Duration) (*Cache, error) {
	opts := badger.DefaultOptions(dir)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	opts.Logger = &badgerLogger{logger: slog.Default().With("component", "summary_cache")}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open summary cache at %q: %w", dir, err)
	}

	return &Cache{next: next, db: db, ttl: ttl}, nil
}

func (c *Cache) Close() error {
	return c.db.Close()
}

func (c *Cache) Summarize(ctx context.Context, text string, mode Mode) string {
	key := cacheKey("summary", string(mode), text)
	if cached, ok := c.get(key); ok {
		return cached
	}

	out := c.next.Summarize(ctx, text, mode)
	if out != "" {
		c.set(key, out)
	}
	return out
}

func (c *Cache) TopicIdeas(ctx context.Context, titles []string) []string {
	key := cacheKey("topics", strings.Join(titles, "\n"))
	if cached, ok := c.get(key); ok {
		return strings.Split(cached, "\n")
	}

	out := c.next.TopicIdeas(ctx, titles)
	if len(out) > 0 {
		c.set(key, strings.Join(out, "\n"))
	}
	return out
}

func (c *Cache) get(key []byte) (string, bool) {
	var value []byte
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		if !errors.Is(err, badger.ErrKeyNotFound) {
			slog.Warn("Summary cache read failed", "error", err)
		}
		return "", false
	}
	return string(value), true
}

func (c *Cache) set(key []byte, value string) {
	err := c.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry(key, []byte(value))
		if c.ttl > 0 {
			entry = entry.WithTTL(c.ttl)
		}
		return txn.SetEntry(entry)
	})
	if err != nil {
		slog.Warn("Summary cache write failed", "error", err)
	}
}

func cacheKey(kind string, parts ...string) []byte {
	h := sha256.New()
	for _, part := range parts {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return []byte(kind + ":" + hex.EncodeToString(h.Sum(nil)))
}

type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...any) {
	l.logger.Error(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Warningf(format string, args ...any) {
	l.logger.Warn(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Infof(format string, args ...any) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Debugf(format string, args ...any) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)))
}
