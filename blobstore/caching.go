package blobstore

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

// CachingStore wraps a (typically remote) Store and spills whole blobs
// to a local directory on first open. Later opens memory-map the
// cached copy, so repeated views over the same remote array cost one
// download. Blobs are assumed immutable under a given name; Delete
// invalidates the cached copy.
type CachingStore struct {
	inner   Store
	local   *LocalStore
	group   singleflight.Group
	limiter *rate.Limiter
	logger  *slog.Logger
}

// CachingOption configures a CachingStore.
type CachingOption func(*CachingStore)

// WithDownloadRate caps fill throughput at bytesPerSec with the given
// burst. Unset means unlimited.
func WithDownloadRate(bytesPerSec float64, burst int) CachingOption {
	return func(s *CachingStore) {
		s.limiter = rate.NewLimiter(rate.Limit(bytesPerSec), burst)
	}
}

// WithCacheLogger attaches a logger for fill and invalidation events.
func WithCacheLogger(l *slog.Logger) CachingOption {
	return func(s *CachingStore) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewCachingStore creates a CachingStore that caches inner's blobs
// under dir.
func NewCachingStore(inner Store, dir string, opts ...CachingOption) *CachingStore {
	s := &CachingStore{
		inner:  inner,
		local:  NewLocalStore(dir),
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open returns a memory-mapped blob, filling the cache from the inner
// store if needed. Concurrent opens of the same name share one
// download.
func (s *CachingStore) Open(ctx context.Context, name string) (Blob, error) {
	if b, err := s.local.Open(ctx, name); err == nil {
		return b, nil
	}

	_, err, _ := s.group.Do(name, func() (any, error) {
		// Re-check under the flight lock: a concurrent fill may have
		// completed while we queued.
		if _, err := os.Stat(s.cachePath(name)); err == nil {
			return nil, nil
		}
		return nil, s.fill(ctx, name)
	})
	if err != nil {
		return nil, err
	}
	return s.local.Open(ctx, name)
}

func (s *CachingStore) cachePath(name string) string {
	return filepath.Join(s.local.root, filepath.FromSlash(name))
}

func (s *CachingStore) fill(ctx context.Context, name string) error {
	src, err := s.inner.Open(ctx, name)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := s.local.Create(ctx, name)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if committed {
			return
		}
		// Drop the partial spill so a failed fill never publishes.
		if d, ok := dst.(interface{ Discard() error }); ok {
			_ = d.Discard()
		}
	}()

	const chunkSize = 1 << 20
	buf := make([]byte, chunkSize)
	var off int64
	for off < src.Size() {
		n := int64(len(buf))
		if remaining := src.Size() - off; remaining < n {
			n = remaining
		}
		if s.limiter != nil {
			if err := s.limiter.WaitN(ctx, int(n)); err != nil {
				return err
			}
		}
		read, err := src.ReadAt(buf[:n], off)
		if read > 0 {
			if _, werr := dst.Write(buf[:read]); werr != nil {
				return werr
			}
			off += int64(read)
		}
		if err != nil && !(err == io.EOF && off == src.Size()) {
			return err
		}
	}
	if err := dst.Close(); err != nil {
		return err
	}
	committed = true

	s.logger.Debug("filled blob cache", "name", name, "bytes", off)
	return nil
}

// Create writes through to the inner store and invalidates the cached
// copy.
func (s *CachingStore) Create(ctx context.Context, name string) (io.WriteCloser, error) {
	_ = s.local.Delete(ctx, name)
	return s.inner.Create(ctx, name)
}

// Delete removes the blob from the inner store and the cache.
func (s *CachingStore) Delete(ctx context.Context, name string) error {
	_ = s.local.Delete(ctx, name)
	return s.inner.Delete(ctx, name)
}

// List lists the inner store.
func (s *CachingStore) List(ctx context.Context, prefix string) ([]string, error) {
	return s.inner.List(ctx, prefix)
}
