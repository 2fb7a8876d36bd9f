// Package cache persists rendered layouts in BadgerDB, keyed by the graph
// fingerprint and bubble id, so the server lays each bubble out once.
package cache

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// ErrMiss is returned by Get when no layout is cached.
var ErrMiss = errors.New("cache miss")

type Config struct {
	// Path is the directory for BadgerDB files. Ignored when InMemory is true.
	Path     string
	InMemory bool

	// TTL expires entries; zero keeps them.
	TTL time.Duration

	// GCInterval is how often value-log GC runs. Zero disables it.
	GCInterval time.Duration

	// Logger receives Badger's internal log lines. Nil silences them.
	Logger *slog.Logger
}

func DefaultConfig(path string) Config {
	return Config{
		Path:       path,
		TTL:        24 * time.Hour,
		GCInterval: 5 * time.Minute,
	}
}

func InMemoryConfig() Config {
	return Config{InMemory: true}
}

type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// Cache is a layout store. Safe for concurrent use.
type Cache struct {
	db  *badger.DB
	ttl time.Duration

	stopGC chan struct{}
	gcDone chan struct{}
	once   sync.Once
}

// Open opens (or creates) the cache.
func Open(cfg Config) (*Cache, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for a persistent cache")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create cache directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open layout cache: %w", err)
	}

	c := &Cache{db: db, ttl: cfg.TTL}
	if cfg.GCInterval > 0 && !cfg.InMemory {
		c.stopGC = make(chan struct{})
		c.gcDone = make(chan struct{})
		go c.runGC(cfg.GCInterval, cfg.Logger)
	}
	return c, nil
}

// Key builds "layout/<fingerprint>/<bubble id>".
func Key(fingerprint uint64, bubbleID string) []byte {
	return []byte("layout/" + strconv.FormatUint(fingerprint, 16) + "/" + bubbleID)
}

// Get returns the cached layout or ErrMiss.
func (c *Cache) Get(fingerprint uint64, bubbleID string) ([]byte, error) {
	var out []byte
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(Key(fingerprint, bubbleID))
		if err != nil {
			return err
		}
		out, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("read cached layout %s: %w", bubbleID, err)
	}
	return out, nil
}

// Put stores a layout.
func (c *Cache) Put(fingerprint uint64, bubbleID string, data []byte) error {
	err := c.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry(Key(fingerprint, bubbleID), data)
		if c.ttl > 0 {
			e = e.WithTTL(c.ttl)
		}
		return txn.SetEntry(e)
	})
	if err != nil {
		return fmt.Errorf("write cached layout %s: %w", bubbleID, err)
	}
	return nil
}

// Len counts the layouts cached for a graph.
func (c *Cache) Len(fingerprint uint64) (int, error) {
	prefix := Key(fingerprint, "")
	n := 0
	err := c.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}

// Close stops GC and closes the database.
func (c *Cache) Close() error {
	c.once.Do(func() {
		if c.stopGC != nil {
			close(c.stopGC)
			<-c.gcDone
		}
	})
	return c.db.Close()
}

func (c *Cache) runGC(interval time.Duration, logger *slog.Logger) {
	defer close(c.gcDone)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopGC:
			return
		case <-ticker.C:
			// ErrNoRewrite means nothing needed collecting.
			if err := c.db.RunValueLogGC(0.5); err != nil && !errors.Is(err, badger.ErrNoRewrite) && logger != nil {
				logger.Warn("layout cache GC error", slog.String("error", err.Error()))
			}
		}
	}
}
