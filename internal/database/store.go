package database

import (
	"context"
	"errors"
	"time"

	"github.com/decentralizedkaggle/DKaggle/internal/database/models"
	"gorm.io/gorm"
)

// LeaderboardSnapshot is the part of a contest document the leaderboard needs,
// together with the version it was read at.
type LeaderboardSnapshot struct {
	ContestID    string
	Participants models.Participants
	Version      int64
	Status       models.ContestStatus
	EndDate      time.Time
}

// ContestStore reads and writes contest leaderboards with optimistic versioning.
type ContestStore struct {
	db *gorm.DB
}

func NewContestStore(db *gorm.DB) *ContestStore {
	return &ContestStore{db: db}
}

// LoadLeaderboard reads a contest's leaderboard. A contest whose leaderboard was
// never written reads as an empty one.
func (s *ContestStore) LoadLeaderboard(ctx context.Context, contestID string) (LeaderboardSnapshot, error) {
	var contest models.Contest
	err := s.db.WithContext(ctx).
		Select("id", "participants", "version", "meta_status", "meta_end_date").
		Where("id = ?", contestID).
		First(&contest).Error
	if err != nil {
		return LeaderboardSnapshot{}, wrap(contestID, err)
	}
	return LeaderboardSnapshot{
		ContestID:    contest.ID,
		Participants: contest.Participants,
		Version:      contest.Version,
		Status:       contest.Metadata.Status,
		EndDate:      contest.Metadata.EndDate,
	}, nil
}

// SwapParticipants writes p only if the stored version still equals expected, and
// bumps the version. It returns ErrVersionConflict when another writer got there
// first and ErrNotFound when the contest no longer exists.
func (s *ContestStore) SwapParticipants(ctx context.Context, contestID string, expected int64, p models.Participants) error {
	res := s.db.WithContext(ctx).Model(&models.Contest{}).
		Where("id = ? AND version = ?", contestID, expected).
		UpdateColumns(map[string]interface{}{
			"participants": p,
			"version":      gorm.Expr("version + 1"),
			"updated_at":   time.Now().UTC(),
		})
	if res.Error != nil {
		return wrap(contestID, res.Error)
	}
	if res.RowsAffected == 1 {
		return nil
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Contest{}).Where("id = ?", contestID).Count(&count).Error; err != nil {
		return wrap(contestID, err)
	}
	if count == 0 {
		return wrap(contestID, gorm.ErrRecordNotFound)
	}
	return ErrVersionConflict
}

// AppendSubmission adds a record to the submission audit log.
func (s *ContestStore) AppendSubmission(ctx context.Context, sub *models.Submission) error {
	return CreateSubmission(ctx, s.db, sub)
}

// RepairLeaderboard rewrites a stored leaderboard through fix, retrying on
// concurrent writes. It reports whether anything changed.
func (s *ContestStore) RepairLeaderboard(ctx context.Context, contestID string, fix func(models.Participants) (models.Participants, bool)) (bool, error) {
	for {
		snap, err := s.LoadLeaderboard(ctx, contestID)
		if err != nil {
			return false, err
		}
		fixed, changed := fix(snap.Participants)
		if !changed {
			return false, nil
		}
		err = s.SwapParticipants(ctx, contestID, snap.Version, fixed)
		if errors.Is(err, ErrVersionConflict) {
			continue
		}
		return err == nil, err
	}
}

// ContestIDs lists every stored contest id.
func (s *ContestStore) ContestIDs(ctx context.Context) ([]string, error) {
	var ids []string
	if err := s.db.WithContext(ctx).Model(&models.Contest{}).Pluck("id", &ids).Error; err != nil {
		return nil, wrap("*", err)
	}
	return ids, nil
}
