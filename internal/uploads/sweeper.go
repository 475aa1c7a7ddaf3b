// Package uploads removes stale upload batches.
package uploads

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"metinanaliz/internal/logger"
)

const (
	DefaultTTL      = 24 * time.Hour
	DefaultInterval = time.Hour
)

// Sweeper deletes batch directories under dir whose last change is older
// than ttl.
type Sweeper struct {
	dir string
	ttl time.Duration
	now func() time.Time
	log *logrus.Entry
}

func NewSweeper(dir string, ttl time.Duration) *Sweeper {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Sweeper{dir: dir, ttl: ttl, now: time.Now, log: logger.For("uploads")}
}

// Run sweeps every interval until ctx is done.
func (s *Sweeper) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := s.Sweep(); err != nil {
				s.log.WithError(err).Warn("sweep uploads")
			}
		}
	}
}

// Sweep removes expired batches and returns how many were deleted. Loose
// files at the top level are treated like batches.
func (s *Sweeper) Sweep() (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}
	cutoff := s.now().Add(-s.ttl)
	removed := 0
	for _, e := range entries {
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(s.dir, e.Name())
		if err := os.RemoveAll(path); err != nil {
			s.log.WithError(err).WithField("path", path).Warn("remove upload batch")
			continue
		}
		removed++
	}
	if removed > 0 {
		s.log.WithField("removed", removed).Info("expired uploads removed")
	}
	return removed, nil
}
