package channel_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"dealwatch/internal/adapters/channel"
	"dealwatch/internal/domain/model"
)

const productPage = `<!doctype html>
<html><body>
  <h1 data-testid="title">Cordless Drill</h1>
  <span data-testid="deal-price">$1,299.99</span>
  <span data-testid="list-price">$1,499.00</span>
  <span data-testid="rating-value">4.6</span>
  <span data-testid="review-count">2,345 ratings</span>
  <div data-testid="availability">In Stock</div>
</body></html>`

const unavailablePage = `<!doctype html>
<html><body>
  <span data-testid="deal-price">$19.99</span>
  <div data-testid="availability">Currently unavailable.</div>
</body></html>`

func TestScrapeChannel(t *testing.T) {
	Convey("Given a scrape channel against a product page", t, func() {
		ctx := context.Background()

		Convey("A full page parses into a quote", func() {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(productPage))
			}))
			defer srv.Close()

			sc := channel.NewScrapeChannel(srv.URL)
			q, err := sc.Fetch(ctx, "B0DRILL")
			So(err, ShouldBeNil)
			So(q.Price, ShouldEqual, 129999)
			So(q.ListPrice, ShouldEqual, 149900)
			So(q.Available, ShouldBeTrue)
			So(q.Rating, ShouldEqual, 4.6)
			So(q.ReviewCount, ShouldEqual, 2345)
			So(sc.Name(), ShouldEqual, model.ChannelScrape)
		})

		Convey("An unavailable listing keeps its price but flags availability", func() {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(unavailablePage))
			}))
			defer srv.Close()

			sc := channel.NewScrapeChannel(srv.URL)
			q, err := sc.Fetch(ctx, "B0DRILL")
			So(err, ShouldBeNil)
			So(q.Available, ShouldBeFalse)
			So(q.Price, ShouldEqual, 1999)
		})

		Convey("A 404 page maps to ErrNotFound", func() {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
			}))
			defer srv.Close()

			sc := channel.NewScrapeChannel(srv.URL)
			_, err := sc.Fetch(ctx, "B0MISSING")
			So(err, ShouldEqual, channel.ErrNotFound)
		})

		Convey("Bot mitigation answers map to ErrRateLimited", func() {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusServiceUnavailable)
			}))
			defer srv.Close()

			sc := channel.NewScrapeChannel(srv.URL)
			_, err := sc.Fetch(ctx, "B0BLOCKED")
			So(err, ShouldEqual, channel.ErrRateLimited)
		})
	})

	Convey("Given the channel selector", t, func() {
		api := channel.NewScrapeChannel("http://a.example")    // stand-in
		scrape := channel.NewScrapeChannel("http://b.example") // stand-in
		sel := channel.NewSelector(api, scrape)

		Convey("Known channels resolve, unknown ones degrade to scrape", func() {
			So(sel.For(model.ChannelAPI), ShouldEqual, api)
			So(sel.For(model.ChannelScrape), ShouldEqual, scrape)
			So(sel.For(model.Channel("bogus")), ShouldEqual, scrape)
		})
	})
}
