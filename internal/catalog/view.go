package catalog

import (
	"time"

	"github.com/decentralizedkaggle/DKaggle/internal/database/models"
	"github.com/decentralizedkaggle/DKaggle/internal/ranking"
)

type TimeInfo struct {
	EndingIn string `json:"endingIn"`
	Deadline string `json:"deadline"`
}

// ContestView is a contest as served to clients, with its time information computed at read time.
type ContestView struct {
	*models.Contest
	TimeInfo TimeInfo `json:"timeInfo"`
}

func View(c *models.Contest, now time.Time) ContestView {
	return ContestView{
		Contest: c,
		TimeInfo: TimeInfo{
			EndingIn: ranking.TimeRemaining(c.Metadata.EndDate, now),
			Deadline: ranking.Deadline(c.Metadata.EndDate),
		},
	}
}

func Views(contests []models.Contest, now time.Time) []ContestView {
	views := make([]ContestView, len(contests))
	for i := range contests {
		views[i] = View(&contests[i], now)
	}
	return views
}
