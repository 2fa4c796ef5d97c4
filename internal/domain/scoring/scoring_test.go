package scoring_test

import (
	"testing"
	"time"

	"dealwatch/internal/domain/scoring"

	. "github.com/smartystreets/goconvey/convey"
)

func TestScorer(t *testing.T) {
	Convey("Given a scorer with default weights", t, func() {
		scorer := scoring.NewScorer()
		now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

		Convey("Identical snapshots produce identical scores", func() {
			checked := now.Add(-6 * time.Hour)
			snap := scoring.Snapshot{
				HasActiveDeal:  true,
				TrailingPrices: []int64{1000, 900, 1100, 950},
				Rating:         4.5,
				ReviewCount:    1200,
				LastCheckedAt:  &checked,
				Now:            now,
			}
			first := scorer.Score(snap)
			for i := 0; i < 10; i++ {
				So(scorer.Score(snap), ShouldEqual, first)
			}
		})

		Convey("Scores stay within [0, 100]", func() {
			So(scorer.Score(scoring.Snapshot{Now: now}), ShouldBeBetweenOrEqual, 0, 100)

			never := scoring.Snapshot{
				HasActiveDeal:  true,
				TrailingPrices: []int64{100, 500, 100, 500},
				Rating:         5,
				ReviewCount:    1_000_000,
				Now:            now,
			}
			So(scorer.Score(never), ShouldBeBetweenOrEqual, 0, 100)
		})

		Convey("An active deal dominates the score", func() {
			withDeal := scorer.Score(scoring.Snapshot{HasActiveDeal: true, Now: now})
			withoutDeal := scorer.Score(scoring.Snapshot{HasActiveDeal: false, Now: now})
			So(withDeal, ShouldBeGreaterThanOrEqualTo, 50)
			So(withDeal, ShouldBeGreaterThan, withoutDeal)
		})

		Convey("Fewer than two price samples contribute no volatility", func() {
			base := scorer.Score(scoring.Snapshot{Now: now})
			one := scorer.Score(scoring.Snapshot{TrailingPrices: []int64{1000}, Now: now})
			So(one, ShouldEqual, base)
		})

		Convey("Volatile history raises the score", func() {
			stable := scorer.Score(scoring.Snapshot{
				TrailingPrices: []int64{1000, 1000, 1000, 1000},
				Now:            now,
			})
			volatile := scorer.Score(scoring.Snapshot{
				TrailingPrices: []int64{1000, 600, 1400, 700},
				Now:            now,
			})
			So(volatile, ShouldBeGreaterThan, stable)
		})

		Convey("Missing rating and review count contribute zero, not an error", func() {
			So(func() { scorer.Score(scoring.Snapshot{Now: now}) }, ShouldNotPanic)
			rated := scorer.Score(scoring.Snapshot{Rating: 4.8, ReviewCount: 5000, Now: now})
			unrated := scorer.Score(scoring.Snapshot{Now: now})
			So(rated, ShouldBeGreaterThan, unrated)
		})

		Convey("Older last-check raises the score", func() {
			recent := now.Add(-10 * time.Minute)
			stale := now.Add(-72 * time.Hour)
			recentScore := scorer.Score(scoring.Snapshot{LastCheckedAt: &recent, Now: now})
			staleScore := scorer.Score(scoring.Snapshot{LastCheckedAt: &stale, Now: now})
			So(staleScore, ShouldBeGreaterThan, recentScore)

			neverScore := scorer.Score(scoring.Snapshot{Now: now})
			So(neverScore, ShouldEqual, staleScore)
		})
	})

	Convey("Given a scorer with custom weights", t, func() {
		scorer := scoring.NewScorer(scoring.WithWeights(scoring.Weights{
			Deal: 1, Volatility: 0, Popularity: 0, Recency: 0,
		}))
		now := time.Now()

		Convey("A deal-only weighting maps a deal straight to 100", func() {
			So(scorer.Score(scoring.Snapshot{HasActiveDeal: true, Now: now}), ShouldEqual, 100)
			So(scorer.Score(scoring.Snapshot{HasActiveDeal: false, Now: now}), ShouldEqual, 0)
		})
	})
}
