package metrics_test

import (
	"testing"
	"time"

	"github.com/decentralizedkaggle/DKaggle/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestRecorder(t *testing.T) {
	Convey("Given a recorder on a private registry", t, func() {
		reg := prometheus.NewRegistry()
		rec := metrics.New(reg)

		Convey("When events are recorded", func() {
			rec.Submission(metrics.OutcomeAccepted)
			rec.Submission(metrics.OutcomeAccepted)
			rec.Submission(metrics.OutcomeInvalid)
			rec.VersionConflict()
			rec.ObserveUpsert(3 * time.Millisecond)
			rec.ContestCreated()
			rec.ContestsExpired(2)
			rec.LeaderboardSize("c1", 4)
			rec.HTTPRequest("user", "/api/v1/contests", "200")

			Convey("Then they are gathered", func() {
				n, err := testutil.GatherAndCount(reg, "dkaggle_submissions_total")
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 2)

				n, err = testutil.GatherAndCount(reg, "dkaggle_leaderboard_version_conflicts_total")
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 1)

				families, err := reg.Gather()
				So(err, ShouldBeNil)
				So(len(families), ShouldEqual, 7)
			})
		})
	})

	Convey("A nil recorder ignores every call", t, func() {
		var rec *metrics.Recorder
		So(func() {
			rec.Submission(metrics.OutcomeError)
			rec.VersionConflict()
			rec.ObserveUpsert(time.Second)
			rec.ContestCreated()
			rec.ContestsExpired(1)
			rec.LeaderboardSize("c", 1)
			rec.HTTPRequest("admin", "/", "500")
		}, ShouldNotPanic)
	})
}
