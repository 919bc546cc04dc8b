// Package leaderboard applies scored submissions to contest leaderboards.
//
// A submission is a read-compute-write cycle: the current leaderboard is read
// together with its version, re-ranked with ranking.UpsertSubmission, and written
// back only if nobody else wrote in between. Losing that race re-runs the cycle,
// so concurrent submissions to one contest never overwrite each other.
package leaderboard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/decentralizedkaggle/DKaggle/internal/database"
	"github.com/decentralizedkaggle/DKaggle/internal/database/models"
	"github.com/decentralizedkaggle/DKaggle/internal/metrics"
	"github.com/decentralizedkaggle/DKaggle/internal/pubsub"
	"github.com/decentralizedkaggle/DKaggle/internal/ranking"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultMaxAttempts = 5

// ErrContestClosed is returned for submissions to a contest that has ended.
var ErrContestClosed = errors.New("contest is not accepting submissions")

// Store is the persistence the service needs. database.ContestStore implements it.
type Store interface {
	LoadLeaderboard(ctx context.Context, contestID string) (database.LeaderboardSnapshot, error)
	SwapParticipants(ctx context.Context, contestID string, expected int64, p models.Participants) error
	AppendSubmission(ctx context.Context, sub *models.Submission) error
}

// Publisher receives the new leaderboard after every successful write.
type Publisher interface {
	Publish(topic string, msg []byte)
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithMaxAttempts(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

func WithMetrics(r *metrics.Recorder) Option {
	return func(s *Service) { s.metrics = r }
}

type Service struct {
	store       Store
	now         func() time.Time
	maxAttempts int
	publisher   Publisher
	metrics     *metrics.Recorder
}

func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store:       store,
		now:         time.Now,
		maxAttempts: defaultMaxAttempts,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Result describes an accepted submission.
type Result struct {
	SubmissionID string                  `json:"submissionId"`
	Entry        models.ParticipantEntry `json:"entry"`
	Participants models.Participants     `json:"participants"`
	Version      int64                   `json:"version"`
	Attempts     int                     `json:"-"`
}

// Update is the frame published to leaderboard subscribers. Version only grows,
// so a subscriber can drop frames older than one it has already seen.
type Update struct {
	ContestID    string              `json:"contestId"`
	Version      int64               `json:"version"`
	Participants models.Participants `json:"participants"`
}

// Submit records accuracy for wallet on the contest's leaderboard.
func (s *Service) Submit(ctx context.Context, contestID, wallet string, accuracy float64) (*Result, error) {
	if err := ranking.ValidateSubmission(wallet, accuracy); err != nil {
		s.metrics.Submission(metrics.OutcomeInvalid)
		return nil, fmt.Errorf("contest %s: %w", contestID, err)
	}

	start := time.Now()
	res, err := s.submit(ctx, contestID, wallet, accuracy)
	s.metrics.Submission(outcome(err))
	if err != nil {
		return nil, err
	}
	s.metrics.ObserveUpsert(time.Since(start))
	s.metrics.LeaderboardSize(contestID, res.Participants.Count)

	if s.publisher != nil {
		update := Update{ContestID: contestID, Version: res.Version, Participants: res.Participants}
		s.publisher.Publish(pubsub.LeaderboardTopic(contestID), pubsub.FormatMessage("leaderboard", update))
	}
	zap.S().Infof("wallet %s scored %v on contest %s (rank %d of %d, %d attempt(s))",
		wallet, accuracy, contestID, res.Entry.Rank, res.Participants.Count, res.Attempts)
	return res, nil
}

func (s *Service) submit(ctx context.Context, contestID, wallet string, accuracy float64) (*Result, error) {
	snap, err := s.store.LoadLeaderboard(ctx, contestID)
	if err != nil {
		return nil, err
	}
	submittedAt := s.now().UTC()
	if err := accepting(snap, submittedAt); err != nil {
		return nil, err
	}

	sub := &models.Submission{
		ID:            uuid.NewString(),
		ContestID:     contestID,
		Wallet:        wallet,
		ModelAccuracy: accuracy,
		SubmittedAt:   submittedAt,
	}
	if err := s.store.AppendSubmission(ctx, sub); err != nil {
		return nil, err
	}

	for attempt := 1; ; attempt++ {
		next, err := ranking.UpsertSubmission(snap.Participants, wallet, accuracy, submittedAt)
		if err != nil {
			return nil, err
		}

		err = s.store.SwapParticipants(ctx, contestID, snap.Version, next)
		if err == nil {
			entry, _ := ranking.Standing(next, wallet)
			return &Result{
				SubmissionID: sub.ID,
				Entry:        entry,
				Participants: next,
				Version:      snap.Version + 1,
				Attempts:     attempt,
			}, nil
		}
		if !errors.Is(err, database.ErrVersionConflict) {
			return nil, err
		}

		s.metrics.VersionConflict()
		if attempt >= s.maxAttempts {
			return nil, fmt.Errorf("contest %s: giving up after %d attempts: %w", contestID, attempt, err)
		}
		zap.S().Debugf("leaderboard of contest %s changed during submission, retrying (attempt %d)", contestID, attempt)

		if snap, err = s.store.LoadLeaderboard(ctx, contestID); err != nil {
			return nil, err
		}
		if err := accepting(snap, submittedAt); err != nil {
			return nil, err
		}
	}
}

// accepting reports ErrContestClosed unless the contest is ongoing at t.
func accepting(snap database.LeaderboardSnapshot, t time.Time) error {
	if snap.Status != models.StatusOngoing || !t.Before(snap.EndDate) {
		return fmt.Errorf("contest %s: %w", snap.ContestID, ErrContestClosed)
	}
	return nil
}

// Leaderboard returns the current leaderboard of a contest.
func (s *Service) Leaderboard(ctx context.Context, contestID string) (models.Participants, error) {
	u, err := s.Current(ctx, contestID)
	return u.Participants, err
}

// Current returns the current leaderboard in the form published to subscribers.
func (s *Service) Current(ctx context.Context, contestID string) (Update, error) {
	snap, err := s.store.LoadLeaderboard(ctx, contestID)
	if err != nil {
		return Update{}, err
	}
	return Update{ContestID: contestID, Version: snap.Version, Participants: snap.Participants}, nil
}

// Standing returns one wallet's entry on a contest's leaderboard.
func (s *Service) Standing(ctx context.Context, contestID, wallet string) (models.ParticipantEntry, error) {
	p, err := s.Leaderboard(ctx, contestID)
	if err != nil {
		return models.ParticipantEntry{}, err
	}
	e, ok := ranking.Standing(p, wallet)
	if !ok {
		return models.ParticipantEntry{}, fmt.Errorf("contest %s: wallet %s: %w", contestID, wallet, database.ErrNotFound)
	}
	return e, nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeAccepted
	case errors.Is(err, ErrContestClosed):
		return metrics.OutcomeClosed
	case errors.Is(err, database.ErrNotFound):
		return metrics.OutcomeNotFound
	case errors.Is(err, database.ErrVersionConflict):
		return metrics.OutcomeConflict
	default:
		return metrics.OutcomeError
	}
}
