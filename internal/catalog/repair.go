package catalog

import (
	"context"
	"fmt"

	"github.com/decentralizedkaggle/DKaggle/internal/database"
	"github.com/decentralizedkaggle/DKaggle/internal/database/models"
	"github.com/decentralizedkaggle/DKaggle/internal/ranking"
	"go.uber.org/zap"
)

type RepairReport struct {
	Checked  int      `json:"checked"`
	Repaired []string `json:"repaired"`
}

func normalizeIfBroken(p models.Participants) (models.Participants, bool) {
	if ranking.Verify(p) == nil {
		return p, false
	}
	return ranking.Normalize(p), true
}

// RepairLeaderboard normalizes one stored leaderboard if it breaks an invariant.
func RepairLeaderboard(ctx context.Context, store *database.ContestStore, contestID string) (bool, error) {
	repaired, err := store.RepairLeaderboard(ctx, contestID, normalizeIfBroken)
	if err != nil {
		return false, err
	}
	if repaired {
		zap.S().Warnf("leaderboard of contest %s was inconsistent and has been normalized", contestID)
	}
	return repaired, nil
}

// RepairLeaderboards checks every stored leaderboard, typically once at startup.
func RepairLeaderboards(ctx context.Context, store *database.ContestStore) (*RepairReport, error) {
	zap.S().Info("checking stored leaderboards...")

	ids, err := store.ContestIDs(ctx)
	if err != nil {
		return nil, err
	}

	report := &RepairReport{Repaired: []string{}}
	for _, id := range ids {
		repaired, err := RepairLeaderboard(ctx, store, id)
		if err != nil {
			return report, fmt.Errorf("repair of contest %s failed: %w", id, err)
		}
		report.Checked++
		if repaired {
			report.Repaired = append(report.Repaired, id)
		}
	}

	if len(report.Repaired) == 0 {
		zap.S().Infof("all %d leaderboards are consistent", report.Checked)
	} else {
		zap.S().Infof("normalized %d of %d leaderboards", len(report.Repaired), report.Checked)
	}
	return report, nil
}
