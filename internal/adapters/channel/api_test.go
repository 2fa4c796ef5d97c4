package channel_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	"golang.org/x/time/rate"

	"dealwatch/internal/adapters/channel"
	"dealwatch/internal/domain/model"
)

func newAPIServer(status int, body string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
}

func TestAPIChannel(t *testing.T) {
	Convey("Given an API channel with a generous token bucket", t, func() {
		ctx := context.Background()
		limiter := rate.NewLimiter(rate.Limit(100), 100)

		Convey("A 200 response decodes into a quote in cents", func() {
			srv := newAPIServer(http.StatusOK, `{
				"price": 12.99,
				"list_price": 19.99,
				"currency": "USD",
				"availability": true,
				"rating": 4.4,
				"review_count": 321
			}`)
			defer srv.Close()

			api := channel.NewAPIChannel(srv.URL, "test-key", limiter)
			q, err := api.Fetch(ctx, "B0TEST")
			So(err, ShouldBeNil)
			So(q.Price, ShouldEqual, 1299)
			So(q.ListPrice, ShouldEqual, 1999)
			So(q.Currency, ShouldEqual, "USD")
			So(q.Available, ShouldBeTrue)
			So(q.Rating, ShouldEqual, 4.4)
			So(q.ReviewCount, ShouldEqual, 321)
			So(api.Name(), ShouldEqual, model.ChannelAPI)
		})

		Convey("HTTP 429 maps to ErrRateLimited", func() {
			srv := newAPIServer(http.StatusTooManyRequests, "")
			defer srv.Close()

			api := channel.NewAPIChannel(srv.URL, "k", limiter)
			_, err := api.Fetch(ctx, "B0TEST")
			So(err, ShouldEqual, channel.ErrRateLimited)
			So(channel.IsTransient(err), ShouldBeFalse)
		})

		Convey("HTTP 404 maps to ErrNotFound", func() {
			srv := newAPIServer(http.StatusNotFound, "")
			defer srv.Close()

			api := channel.NewAPIChannel(srv.URL, "k", limiter)
			_, err := api.Fetch(ctx, "B0GONE")
			So(err, ShouldEqual, channel.ErrNotFound)
			So(channel.IsTransient(err), ShouldBeFalse)
		})

		Convey("HTTP 5xx is transient", func() {
			srv := newAPIServer(http.StatusBadGateway, "")
			defer srv.Close()

			api := channel.NewAPIChannel(srv.URL, "k", limiter)
			_, err := api.Fetch(ctx, "B0TEST")
			So(err, ShouldNotBeNil)
			So(channel.IsTransient(err), ShouldBeTrue)
		})

		Convey("A non-positive price for an available item fails validation", func() {
			srv := newAPIServer(http.StatusOK, `{"price": 0, "availability": true, "currency": "USD"}`)
			defer srv.Close()

			api := channel.NewAPIChannel(srv.URL, "k", limiter)
			_, err := api.Fetch(ctx, "B0TEST")
			So(err, ShouldWrap, channel.ErrBadData)
			So(channel.IsTransient(err), ShouldBeFalse)
		})
	})

	Convey("Given an exhausted token bucket", t, func() {
		// Burst 0 can never hand out a token; Wait fails within the
		// bounded wait and surfaces as a rate-limit rejection.
		limiter := rate.NewLimiter(rate.Limit(1), 0)
		api := channel.NewAPIChannel("http://unused.example", "k", limiter,
			channel.WithWaitTimeout(50*time.Millisecond),
		)

		Convey("Fetch rejects with ErrRateLimited instead of erroring", func() {
			_, err := api.Fetch(context.Background(), "B0TEST")
			So(err, ShouldEqual, channel.ErrRateLimited)
		})
	})
}
