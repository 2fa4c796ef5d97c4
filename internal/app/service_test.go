package service_test

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"dealwatch/internal/adapters/channel"
	"dealwatch/internal/adapters/notify"
	"dealwatch/internal/adapters/repository"
	service "dealwatch/internal/app"
	"dealwatch/internal/config"
	"dealwatch/internal/domain/model"
	"dealwatch/pkg/logger"
)

func TestMain(m *testing.M) {
	_ = logger.Init()
	os.Exit(m.Run())
}

// fixedChannel always serves the same quote.
type fixedChannel struct {
	name  model.Channel
	quote model.Quote
}

func (c *fixedChannel) Fetch(_ context.Context, _ string) (model.Quote, error) {
	return c.quote, nil
}

func (c *fixedChannel) Name() model.Channel { return c.name }

var dbSeq atomic.Int64

func openStore(t *testing.T) *repository.GormStore {
	t.Helper()
	// A fresh named shared-cache DB per call keeps re-runs of the setup
	// block from colliding on unique indexes.
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", t.Name(), dbSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	store := repository.NewGormStore(db)
	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return store
}

func TestServiceEndToEnd(t *testing.T) {
	Convey("Given a wired service over a seeded store", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		store := openStore(t)
		dispatcher := notify.NewMemoryDispatcher()

		// Tier2 product, never checked, on the API channel with a 25%
		// discount waiting to be discovered.
		p := model.Product{
			ExternalID:         "B0SVCTEST",
			Title:              "Mechanical Keyboard",
			Currency:           "USD",
			IsAvailable:        true,
			Tier:               2,
			AcquisitionChannel: model.ChannelAPI,
			IsActive:           true,
		}
		So(store.CreateProduct(ctx, &p), ShouldBeNil)

		quote := model.Quote{
			Price:       7500,
			ListPrice:   10000,
			Currency:    "USD",
			Available:   true,
			Rating:      4.7,
			ReviewCount: 1200,
		}
		api := &fixedChannel{name: model.ChannelAPI, quote: quote}
		scrape := &fixedChannel{name: model.ChannelScrape, quote: quote}

		cfg := config.New(ctx)
		cfg.WorkerCount = 2
		cfg.CycleIntervalSec = 3600 // only the immediate cycle fires

		svc := service.New(cfg, store, dispatcher,
			service.WithChannelSelector(channel.NewSelector(api, scrape)))

		Convey("Start checks the due product end to end", func() {
			So(svc.Start(ctx), ShouldBeNil)
			defer func() { So(svc.Stop(ctx), ShouldBeNil) }()

			// The priority score is the last write of one check pass, so
			// polling on it observes a fully applied check.
			deadline := time.Now().Add(3 * time.Second)
			var got model.Product
			for time.Now().Before(deadline) {
				got, _ = store.GetProduct(ctx, p.ID)
				if got.PriorityScore > 0 {
					break
				}
				time.Sleep(10 * time.Millisecond)
			}

			So(got.LastCheckedAt, ShouldNotBeNil)
			So(got.CurrentPrice, ShouldEqual, 7500)

			Convey("The discount produced a deal and one notification", func() {
				deal, err := store.ActiveDeal(ctx, p.ID)
				So(err, ShouldBeNil)
				So(deal.DiscountPercentage, ShouldAlmostEqual, 25.0, 0.01)
				So(deal.NotifiedAt, ShouldNotBeNil)

				events := dispatcher.Events()
				So(len(events), ShouldEqual, 1)
				So(events[0].DealID, ShouldEqual, deal.ID)
			})

			Convey("The product was rescored off the fresh snapshot", func() {
				So(got.PriorityScore, ShouldBeGreaterThan, 0)
				So(got.Tier, ShouldBeLessThanOrEqualTo, 2) // active deal floors the tier
			})
		})

		Convey("Double start is rejected, stop before start is a no-op", func() {
			fresh := service.New(cfg, store, dispatcher,
				service.WithChannelSelector(channel.NewSelector(api, scrape)))
			So(fresh.Stop(ctx), ShouldBeNil)
			So(fresh.Start(ctx), ShouldBeNil)
			So(fresh.Start(ctx), ShouldNotBeNil)
			So(fresh.Stop(ctx), ShouldBeNil)
		})
	})
}
