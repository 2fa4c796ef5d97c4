// Package tier classifies priority scores into service tiers. Each tier
// carries its check interval, acquisition channel, batch cap, and queue lane
// as data; dispatch is table-driven.
package tier

import (
	"time"

	"dealwatch/internal/domain/model"
)

// Tier levels.
const (
	Tier1 = 1
	Tier2 = 2
	Tier3 = 3
	Tier4 = 4
)

// LaneCount is the number of queue priority lanes, one per tier.
const LaneCount = 4

// Tier is one service class. Boundaries are inclusive-lower: a score of
// exactly MinScore belongs to the tier.
type Tier struct {
	Level    int
	MinScore int
	Interval time.Duration
	Channel  model.Channel
	MaxBatch int
	Lane     int
}

// table is ordered best tier first so classification takes the first match.
var table = []Tier{
	{Level: Tier1, MinScore: 80, Interval: time.Hour, Channel: model.ChannelAPI, MaxBatch: 500, Lane: 0},
	{Level: Tier2, MinScore: 60, Interval: 6 * time.Hour, Channel: model.ChannelAPI, MaxBatch: 2000, Lane: 1},
	{Level: Tier3, MinScore: 40, Interval: 24 * time.Hour, Channel: model.ChannelScrape, MaxBatch: 5000, Lane: 2},
	{Level: Tier4, MinScore: 0, Interval: 7 * 24 * time.Hour, Channel: model.ChannelScrape, MaxBatch: 10000, Lane: 3},
}

// Classify maps a score and deal flag to a tier. An active deal floors the
// result at Tier2 regardless of score. Classification is idempotent.
func Classify(score int, hasActiveDeal bool) Tier {
	t := byScore(score)
	if hasActiveDeal && t.Level > Tier2 {
		t = table[1]
	}
	return t
}

func byScore(score int) Tier {
	for _, t := range table {
		if score >= t.MinScore {
			return t
		}
	}
	return table[len(table)-1]
}

// ByLevel returns the tier for a level in 1..4.
func ByLevel(level int) (Tier, bool) {
	for _, t := range table {
		if t.Level == level {
			return t, true
		}
	}
	return Tier{}, false
}

// All returns the tiers ordered best first.
func All() []Tier {
	out := make([]Tier, len(table))
	copy(out, table)
	return out
}
