package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"dealwatch/internal/adapters/http/api"
	"dealwatch/internal/domain/tier"
	"dealwatch/internal/scheduler"
	"dealwatch/pkg/logger"
)

func TestMain(m *testing.M) {
	_ = logger.Init()
	os.Exit(m.Run())
}

type fakeDeps struct {
	controls *scheduler.Controls
	cycle    scheduler.CycleStats
	depths   []int
	backlog  map[int]int64
}

func (d *fakeDeps) Controls() *scheduler.Controls      { return d.controls }
func (d *fakeDeps) LastCycle() scheduler.CycleStats    { return d.cycle }
func (d *fakeDeps) QueueDepth(_ context.Context) []int { return d.depths }
func (d *fakeDeps) DueStats(_ context.Context) (map[int]int64, error) {
	return d.backlog, nil
}

func newTestServer() (*fakeDeps, *httptest.Server) {
	deps := &fakeDeps{
		controls: scheduler.NewControls(),
		cycle: scheduler.CycleStats{
			StartedAt: time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC),
			Enqueued:  12,
			Budget:    600,
		},
		depths:  []int{3, 0, 7, 0},
		backlog: map[int]int64{1: 2, 2: 10, 3: 0, 4: 40},
	}

	mux := http.NewServeMux()
	api.NewServer(deps).Register(mux)
	return deps, httptest.NewServer(mux)
}

func TestOpsEndpoints(t *testing.T) {
	Convey("Given the ops HTTP server", t, func() {
		deps, srv := newTestServer()
		defer srv.Close()

		Convey("GET /healthz answers ok", func() {
			resp, err := http.Get(srv.URL + "/healthz")
			So(err, ShouldBeNil)
			defer resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
		})

		Convey("GET /stats reports backlog, depths, and the last cycle", func() {
			resp, err := http.Get(srv.URL + "/stats")
			So(err, ShouldBeNil)
			defer resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusOK)

			var body struct {
				DueBacklog map[string]int64 `json:"due_backlog"`
				QueueDepth []int            `json:"queue_depth"`
				LastCycle  struct {
					Enqueued int `json:"enqueued"`
					Budget   int `json:"budget"`
				} `json:"last_cycle"`
			}
			So(json.NewDecoder(resp.Body).Decode(&body), ShouldBeNil)
			So(body.DueBacklog["4"], ShouldEqual, 40)
			So(body.QueueDepth, ShouldResemble, []int{3, 0, 7, 0})
			So(body.LastCycle.Enqueued, ShouldEqual, 12)
			So(body.LastCycle.Budget, ShouldEqual, 600)
		})

		Convey("GET /metrics serves the prometheus registry", func() {
			resp, err := http.Get(srv.URL + "/metrics")
			So(err, ShouldBeNil)
			defer resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
		})

		Convey("POST /stats is rejected", func() {
			resp, err := http.Post(srv.URL+"/stats", "application/json", strings.NewReader("{}"))
			So(err, ShouldBeNil)
			defer resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusMethodNotAllowed)
		})

		Convey("Controls round-trip through GET and POST", func() {
			resp, err := http.Get(srv.URL + "/controls")
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			var state struct {
				Paused bool            `json:"paused"`
				Tiers  map[string]bool `json:"tiers"`
			}
			So(json.NewDecoder(resp.Body).Decode(&state), ShouldBeNil)
			So(state.Paused, ShouldBeFalse)
			So(state.Tiers["1"], ShouldBeTrue)

			post, err := http.Post(srv.URL+"/controls", "application/json",
				strings.NewReader(`{"paused": true, "tier": 3, "enabled": false}`))
			So(err, ShouldBeNil)
			defer post.Body.Close()
			So(post.StatusCode, ShouldEqual, http.StatusOK)

			So(deps.controls.Paused(), ShouldBeTrue)
			So(deps.controls.TierEnabled(tier.Tier3), ShouldBeFalse)
			So(deps.controls.TierEnabled(tier.Tier1), ShouldBeTrue)
		})

		Convey("Invalid control flips are rejected", func() {
			for _, body := range []string{
				`{}`,
				`{"tier": 9, "enabled": false}`,
				`{"tier": 2}`,
				`not json`,
			} {
				resp, err := http.Post(srv.URL+"/controls", "application/json", strings.NewReader(body))
				So(err, ShouldBeNil)
				So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
				resp.Body.Close()
			}
		})
	})
}
