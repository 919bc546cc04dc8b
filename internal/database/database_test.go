package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/decentralizedkaggle/DKaggle/internal/config"
	"github.com/decentralizedkaggle/DKaggle/internal/database/models"
	. "github.com/smartystreets/goconvey/convey"
	"gorm.io/gorm"
)

var now = time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)

func openTestDB(t *testing.T) *gorm.DB {
	db, err := Init(config.Storage{Driver: "sqlite", Database: filepath.Join(t.TempDir(), "nested", "test.db")})
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	return db
}

func contest(id string, created, end time.Time, status models.ContestStatus, host string) *models.Contest {
	return &models.Contest{
		ID: id,
		Metadata: models.ContestMetadata{
			Title:     "Contest " + id,
			CreatedAt: created,
			EndDate:   end,
			Status:    status,
		},
		Prizes:       models.Prizes{TotalPrizePool: 3, PlatformFee: 0.02, Winners: []models.Winner{{Place: 1, Amount: 3, Icon: "🥇"}}},
		Rules:        models.StringList{"rule"},
		HostInfo:     models.HostInfo{Wallet: host},
		Participants: models.Participants{List: []models.ParticipantEntry{}},
	}
}

func TestContestCRUD(t *testing.T) {
	Convey("Given a database with a few contests", t, func() {
		db := openTestDB(t)
		ctx := context.Background()

		So(CreateContest(ctx, db, contest("a", now.Add(-3*time.Hour), now.Add(72*time.Hour), models.StatusOngoing, "0xH1")), ShouldBeNil)
		So(CreateContest(ctx, db, contest("b", now.Add(-2*time.Hour), now.Add(24*time.Hour), models.StatusOngoing, "0xH2")), ShouldBeNil)
		So(CreateContest(ctx, db, contest("c", now.Add(-1*time.Hour), now.Add(-time.Hour), models.StatusPast, "0xH1")), ShouldBeNil)

		Convey("A contest reads back with its nested documents", func() {
			c, err := GetContest(ctx, db, "a")
			So(err, ShouldBeNil)
			So(c.Metadata.Title, ShouldEqual, "Contest a")
			So(c.Prizes.Winners[0].Icon, ShouldEqual, "🥇")
			So([]string(c.Rules), ShouldResemble, []string{"rule"})
			So(c.Participants.Count, ShouldEqual, 0)
			So(c.Metadata.EndDate.Equal(now.Add(72*time.Hour)), ShouldBeTrue)
		})

		Convey("Missing contests are NotFound with their id", func() {
			_, err := GetContest(ctx, db, "zzz")
			So(errors.Is(err, ErrNotFound), ShouldBeTrue)
			So(err.Error(), ShouldEqual, "contest zzz: not found")
		})

		Convey("Invalid documents are refused", func() {
			bad := contest("d", now, now, models.StatusOngoing, "")
			So(errors.Is(CreateContest(ctx, db, bad), models.ErrInvalidDocument), ShouldBeTrue)

			bad = contest("e", now, now, models.StatusOngoing, "0xH")
			bad.Participants.Count = 2
			So(errors.Is(CreateContest(ctx, db, bad), models.ErrInvalidDocument), ShouldBeTrue)
		})

		Convey("Listings filter and order", func() {
			list, err := ListContests(ctx, db, ContestFilter{Status: models.StatusOngoing})
			So(err, ShouldBeNil)
			So(ids(list), ShouldResemble, []string{"b", "a"})

			list, err = ListContests(ctx, db, ContestFilter{Status: models.StatusOngoing, Order: OrderEnding})
			So(err, ShouldBeNil)
			So(ids(list), ShouldResemble, []string{"b", "a"})

			list, err = ListContests(ctx, db, ContestFilter{Order: OrderEnding})
			So(err, ShouldBeNil)
			So(ids(list), ShouldResemble, []string{"c", "b", "a"})

			list, err = ListContests(ctx, db, ContestFilter{HostWallet: "0xH1", Limit: 1})
			So(err, ShouldBeNil)
			So(ids(list), ShouldResemble, []string{"c"})
		})

		Convey("Updates change the editable fields only", func() {
			c, err := GetContest(ctx, db, "a")
			So(err, ShouldBeNil)
			c.Metadata.Title = "Renamed"
			c.Rules = models.StringList{"x", "y"}
			So(UpdateContest(ctx, db, c), ShouldBeNil)

			got, err := GetContest(ctx, db, "a")
			So(err, ShouldBeNil)
			So(got.Metadata.Title, ShouldEqual, "Renamed")
			So(got.Rules, ShouldHaveLength, 2)
			So(got.Version, ShouldEqual, 0)

			c.ID = "missing"
			So(errors.Is(UpdateContest(ctx, db, c), ErrNotFound), ShouldBeTrue)
		})

		Convey("Status changes are validated", func() {
			So(SetContestStatus(ctx, db, "a", models.StatusPast), ShouldBeNil)
			So(errors.Is(SetContestStatus(ctx, db, "a", "archived"), models.ErrInvalidDocument), ShouldBeTrue)
			So(errors.Is(SetContestStatus(ctx, db, "zzz", models.StatusPast), ErrNotFound), ShouldBeTrue)
		})

		Convey("Expiry moves only ended ongoing contests", func() {
			moved, err := ExpireContests(ctx, db, now.Add(48*time.Hour))
			So(err, ShouldBeNil)
			So(moved, ShouldResemble, []string{"b"})

			b, err := GetContest(ctx, db, "b")
			So(err, ShouldBeNil)
			So(b.Metadata.Status, ShouldEqual, models.StatusPast)
		})

		Convey("Deleting a contest also drops its submissions", func() {
			So(CreateSubmission(ctx, db, &models.Submission{ID: "s1", ContestID: "a", Wallet: "0xA", ModelAccuracy: 1, SubmittedAt: now}), ShouldBeNil)
			So(CreateSubmission(ctx, db, &models.Submission{ID: "s2", ContestID: "b", Wallet: "0xA", ModelAccuracy: 2, SubmittedAt: now.Add(time.Minute)}), ShouldBeNil)

			subs, err := GetSubmissionsByWallet(ctx, db, "0xA")
			So(err, ShouldBeNil)
			So(subs, ShouldHaveLength, 2)
			So(subs[0].ID, ShouldEqual, "s2")

			So(DeleteContest(ctx, db, "a"), ShouldBeNil)
			subs, err = GetSubmissionsByContest(ctx, db, "a")
			So(err, ShouldBeNil)
			So(subs, ShouldBeEmpty)
			So(errors.Is(DeleteContest(ctx, db, "a"), ErrNotFound), ShouldBeTrue)
		})
	})
}

func TestContestStore(t *testing.T) {
	Convey("Given a stored contest", t, func() {
		db := openTestDB(t)
		ctx := context.Background()
		store := NewContestStore(db)
		So(CreateContest(ctx, db, contest("a", now, now.Add(time.Hour), models.StatusOngoing, "0xH")), ShouldBeNil)

		one := models.Participants{Count: 1, List: []models.ParticipantEntry{{Wallet: "0xA", ModelAccuracy: 90, SubmittedAt: now, Rank: 1}}}

		Convey("A fresh leaderboard reads as empty at version 0", func() {
			snap, err := store.LoadLeaderboard(ctx, "a")
			So(err, ShouldBeNil)
			So(snap.Version, ShouldEqual, 0)
			So(snap.Participants.Count, ShouldEqual, 0)
			So(snap.Status, ShouldEqual, models.StatusOngoing)
		})

		Convey("A swap at the current version succeeds and bumps it", func() {
			So(store.SwapParticipants(ctx, "a", 0, one), ShouldBeNil)
			snap, err := store.LoadLeaderboard(ctx, "a")
			So(err, ShouldBeNil)
			So(snap.Version, ShouldEqual, 1)
			So(snap.Participants.List[0].Wallet, ShouldEqual, "0xA")
			So(snap.Participants.List[0].SubmittedAt.Equal(now), ShouldBeTrue)

			Convey("and a second swap from the stale version conflicts", func() {
				err := store.SwapParticipants(ctx, "a", 0, models.Participants{})
				So(errors.Is(err, ErrVersionConflict), ShouldBeTrue)

				snap, err := store.LoadLeaderboard(ctx, "a")
				So(err, ShouldBeNil)
				So(snap.Participants.Count, ShouldEqual, 1)
			})
		})

		Convey("Swapping a missing contest is NotFound", func() {
			err := store.SwapParticipants(ctx, "zzz", 0, one)
			So(errors.Is(err, ErrNotFound), ShouldBeTrue)
		})

		Convey("Repair rewrites only when asked to", func() {
			changed, err := store.RepairLeaderboard(ctx, "a", func(p models.Participants) (models.Participants, bool) {
				return one, true
			})
			So(err, ShouldBeNil)
			So(changed, ShouldBeTrue)

			changed, err = store.RepairLeaderboard(ctx, "a", func(p models.Participants) (models.Participants, bool) {
				return p, false
			})
			So(err, ShouldBeNil)
			So(changed, ShouldBeFalse)

			ids, err := store.ContestIDs(ctx)
			So(err, ShouldBeNil)
			So(ids, ShouldResemble, []string{"a"})
		})

		Convey("Submissions are appended to the audit log", func() {
			So(store.AppendSubmission(ctx, &models.Submission{ID: "s1", ContestID: "a", Wallet: "0xA", ModelAccuracy: 1, SubmittedAt: now}), ShouldBeNil)
			subs, err := GetSubmissionsByContest(ctx, db, "a")
			So(err, ShouldBeNil)
			So(subs, ShouldHaveLength, 1)
		})
	})
}

func ids(contests []models.Contest) []string {
	out := make([]string, len(contests))
	for i, c := range contests {
		out[i] = c.ID
	}
	return out
}
