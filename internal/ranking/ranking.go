// Package ranking maintains a contest leaderboard: one entry per wallet, sorted by
// model accuracy (highest first) and ranked by position.
package ranking

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/decentralizedkaggle/DKaggle/internal/database/models"
)

var (
	// ErrInvalidInput is returned for an empty wallet or a non-finite accuracy.
	ErrInvalidInput = errors.New("invalid input")
	// ErrCorrupt is returned by Verify when a stored leaderboard breaks an invariant.
	ErrCorrupt = errors.New("leaderboard invariant violated")
)

// ValidateWallet rejects empty wallets and wallets with surrounding whitespace.
// Wallets are otherwise opaque and compared exactly.
func ValidateWallet(wallet string) error {
	if wallet == "" || strings.TrimSpace(wallet) != wallet {
		return fmt.Errorf("%w: wallet must be a non-empty address without surrounding spaces", ErrInvalidInput)
	}
	return nil
}

// ValidateSubmission checks the arguments of an upsert without touching any leaderboard.
func ValidateSubmission(wallet string, accuracy float64) error {
	if err := ValidateWallet(wallet); err != nil {
		return err
	}
	if math.IsNaN(accuracy) || math.IsInf(accuracy, 0) {
		return fmt.Errorf("%w: accuracy must be a finite number", ErrInvalidInput)
	}
	return nil
}

// UpsertSubmission records accuracy for wallet and returns the re-ranked leaderboard.
//
// An existing entry for the wallet is updated in place; otherwise a new entry is
// appended. The list is then stable-sorted by accuracy, so equal scores keep the
// order they had before the sort, and every entry is ranked by its 1-based position.
// The input aggregate is not modified.
func UpsertSubmission(p models.Participants, wallet string, accuracy float64, submittedAt time.Time) (models.Participants, error) {
	if err := ValidateSubmission(wallet, accuracy); err != nil {
		return models.Participants{}, err
	}

	list := make([]models.ParticipantEntry, len(p.List), len(p.List)+1)
	copy(list, p.List)

	found := false
	for i := range list {
		if list[i].Wallet == wallet {
			list[i].ModelAccuracy = accuracy
			list[i].SubmittedAt = submittedAt
			found = true
			break
		}
	}
	if !found {
		list = append(list, models.ParticipantEntry{
			Wallet:        wallet,
			ModelAccuracy: accuracy,
			SubmittedAt:   submittedAt,
		})
	}

	rank(list)
	return models.Participants{Count: len(list), List: list}, nil
}

// rank stable-sorts list by accuracy descending and assigns positional ranks.
func rank(list []models.ParticipantEntry) {
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].ModelAccuracy > list[j].ModelAccuracy
	})
	for i := range list {
		list[i].Rank = i + 1
	}
}

// Normalize rebuilds a leaderboard that may have been written without the
// invariants: duplicate wallets keep their first occurrence, the list is
// re-sorted and re-ranked, and the count is recomputed.
func Normalize(p models.Participants) models.Participants {
	seen := make(map[string]struct{}, len(p.List))
	list := make([]models.ParticipantEntry, 0, len(p.List))
	for _, e := range p.List {
		if _, dup := seen[e.Wallet]; dup {
			continue
		}
		seen[e.Wallet] = struct{}{}
		list = append(list, e)
	}
	rank(list)
	return models.Participants{Count: len(list), List: list}
}

// Verify returns an ErrCorrupt error describing the first broken invariant, or nil.
func Verify(p models.Participants) error {
	if p.Count != len(p.List) {
		return fmt.Errorf("%w: count %d but %d entries", ErrCorrupt, p.Count, len(p.List))
	}
	seen := make(map[string]struct{}, len(p.List))
	for i, e := range p.List {
		if _, dup := seen[e.Wallet]; dup {
			return fmt.Errorf("%w: wallet %s listed twice", ErrCorrupt, e.Wallet)
		}
		seen[e.Wallet] = struct{}{}
		if e.Rank != i+1 {
			return fmt.Errorf("%w: entry %d has rank %d", ErrCorrupt, i, e.Rank)
		}
		if i > 0 && p.List[i-1].ModelAccuracy < e.ModelAccuracy {
			return fmt.Errorf("%w: entry %d scores above entry %d", ErrCorrupt, i, i-1)
		}
	}
	return nil
}

// Standing returns the entry for wallet, if it has submitted.
func Standing(p models.Participants, wallet string) (models.ParticipantEntry, bool) {
	for _, e := range p.List {
		if e.Wallet == wallet {
			return e, true
		}
	}
	return models.ParticipantEntry{}, false
}

// Top returns the first n entries, or all of them when n <= 0.
func Top(p models.Participants, n int) []models.ParticipantEntry {
	if n <= 0 || n >= len(p.List) {
		out := make([]models.ParticipantEntry, len(p.List))
		copy(out, p.List)
		return out
	}
	out := make([]models.ParticipantEntry, n)
	copy(out, p.List[:n])
	return out
}
