package queue

// Option applies a configuration option to the LaneQueue.
type Option func(*LaneQueue)

// WithLaneCount sets the number of priority lanes.
func WithLaneCount(n int) Option {
	return func(q *LaneQueue) {
		if n > 0 {
			q.laneCount = n
		}
	}
}

// WithLaneDepth bounds each lane's buffer.
func WithLaneDepth(n int) Option {
	return func(q *LaneQueue) {
		if n > 0 {
			q.laneDepth = n
		}
	}
}
