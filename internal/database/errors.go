package database

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrVersionConflict means the leaderboard changed between read and write.
	ErrVersionConflict = errors.New("leaderboard was modified concurrently")
)

// wrap classifies a gorm error for the given contest.
func wrap(contestID string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("contest %s: %w", contestID, ErrNotFound)
	}
	return fmt.Errorf("contest %s: %w: %w", contestID, ErrStoreUnavailable, err)
}
