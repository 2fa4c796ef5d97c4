package queue_test

import (
	"context"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"dealwatch/internal/adapters/mq/queue"
)

func item(productID uint, lane int) queue.Item {
	return queue.Item{ProductID: productID, Lane: lane, EnqueuedAt: time.Now()}
}

func TestLaneQueue(t *testing.T) {
	Convey("Given a lane queue", t, func() {
		ctx := context.Background()
		q := queue.NewLaneQueue(queue.WithLaneCount(4), queue.WithLaneDepth(8))

		Convey("Enqueue and Len account per lane", func() {
			So(q.Enqueue(ctx, item(1, 0)), ShouldBeTrue)
			So(q.Enqueue(ctx, item(2, 3)), ShouldBeTrue)
			So(q.Len(ctx), ShouldEqual, 2)
			So(q.LaneLen(ctx, 0), ShouldEqual, 1)
			So(q.LaneLen(ctx, 3), ShouldEqual, 1)
		})

		Convey("A full lane rejects without blocking", func() {
			small := queue.NewLaneQueue(queue.WithLaneCount(1), queue.WithLaneDepth(2))
			So(small.Enqueue(ctx, item(1, 0)), ShouldBeTrue)
			So(small.Enqueue(ctx, item(2, 0)), ShouldBeTrue)
			So(small.Enqueue(ctx, item(3, 0)), ShouldBeFalse)
		})

		Convey("An out-of-range lane lands on the last lane", func() {
			So(q.Enqueue(ctx, item(9, 42)), ShouldBeTrue)
			So(q.LaneLen(ctx, 3), ShouldEqual, 1)
		})

		Convey("Dequeue drains lower lanes before higher ones", func() {
			So(q.Enqueue(ctx, item(40, 3)), ShouldBeTrue)
			So(q.Enqueue(ctx, item(30, 2)), ShouldBeTrue)
			So(q.Enqueue(ctx, item(10, 0)), ShouldBeTrue)
			So(q.Enqueue(ctx, item(20, 1)), ShouldBeTrue)

			dctx, cancel := context.WithTimeout(ctx, 2*time.Second)
			defer cancel()
			ch := q.Dequeue(dctx)

			var got []uint
			for i := 0; i < 4; i++ {
				select {
				case it := <-ch:
					got = append(got, it.ProductID)
				case <-dctx.Done():
					t.Fatal("dequeue timed out")
				}
			}
			So(got, ShouldResemble, []uint{10, 20, 30, 40})
		})

		Convey("Closing stops enqueues but drains queued items", func() {
			So(q.Enqueue(ctx, item(5, 1)), ShouldBeTrue)
			So(q.Close(), ShouldBeNil)
			So(q.IsClosed(), ShouldBeTrue)
			So(q.Enqueue(ctx, item(6, 1)), ShouldBeFalse)

			dctx, cancel := context.WithTimeout(ctx, 2*time.Second)
			defer cancel()
			ch := q.Dequeue(dctx)

			it, ok := <-ch
			So(ok, ShouldBeTrue)
			So(it.ProductID, ShouldEqual, 5)

			_, ok = <-ch
			So(ok, ShouldBeFalse)
		})

		Convey("Context cancellation ends an idle dequeue", func() {
			dctx, cancel := context.WithCancel(ctx)
			ch := q.Dequeue(dctx)
			cancel()

			select {
			case _, ok := <-ch:
				So(ok, ShouldBeFalse)
			case <-time.After(2 * time.Second):
				t.Fatal("dequeue channel did not close")
			}
		})
	})
}
