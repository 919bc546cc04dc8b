package catalog

import (
	"context"
	"time"

	"github.com/decentralizedkaggle/DKaggle/internal/database"
	"github.com/decentralizedkaggle/DKaggle/internal/metrics"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Sweeper moves contests whose end date has passed from ongoing to past.
type Sweeper struct {
	db       *gorm.DB
	interval time.Duration
	metrics  *metrics.Recorder
	now      func() time.Time
}

func NewSweeper(db *gorm.DB, interval time.Duration, rec *metrics.Recorder) *Sweeper {
	return &Sweeper{db: db, interval: interval, metrics: rec, now: time.Now}
}

// Sweep runs one pass and returns the ids of the contests it closed.
func (s *Sweeper) Sweep(ctx context.Context) ([]string, error) {
	ids, err := database.ExpireContests(ctx, s.db, s.now())
	if err != nil {
		return nil, err
	}
	if len(ids) > 0 {
		s.metrics.ContestsExpired(len(ids))
		zap.S().Infof("status sweep closed %d contest(s): %v", len(ids), ids)
	}
	return ids, nil
}

// Run sweeps once immediately and then on every tick until ctx is done.
// A non-positive interval disables it.
func (s *Sweeper) Run(ctx context.Context) error {
	if s.interval <= 0 {
		zap.S().Info("status sweeper disabled")
		return nil
	}
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	zap.S().Infof("status sweeper started, interval %s", s.interval)
	for {
		if _, err := s.Sweep(ctx); err != nil {
			zap.S().Errorf("status sweep failed: %v", err)
		}
		select {
		case <-ctx.Done():
			zap.S().Info("status sweeper stopped")
			return nil
		case <-ticker.C:
		}
	}
}
