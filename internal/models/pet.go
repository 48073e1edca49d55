package models

import "strconv"

// LevelThresholds are the cumulative completion counts required to leave
// each level. Below 100 the pet is level 1; at or past the last threshold
// the pet is maxed out.
var LevelThresholds = []int{100, 300, 500, 750, 1000}

// MaxLevelLabel is the sentinel shown once every threshold is passed.
const MaxLevelLabel = "max"

// LevelStatus is the derived leveling state for a lifetime completed count.
type LevelStatus struct {
	Level      int     `json:"level"`
	Max        bool    `json:"max"`
	Points     int     `json:"points"`
	LowerBound int     `json:"lower_bound"`
	UpperBound int     `json:"upper_bound"`
	Progress   float64 `json:"progress"`
}

// Label returns the display name of the level: "1".."5" or "max".
func (s LevelStatus) Label() string {
	if s.Max {
		return MaxLevelLabel
	}
	return strconv.Itoa(s.Level)
}

// LevelForPoints derives the pet level and progress fraction from a
// lifetime completed count. Pure; no side effects.
func LevelForPoints(points int) LevelStatus {
	if points < 0 {
		points = 0
	}

	if points >= LevelThresholds[len(LevelThresholds)-1] {
		return LevelStatus{
			Level:      len(LevelThresholds),
			Max:        true,
			Points:     points,
			LowerBound: LevelThresholds[len(LevelThresholds)-1],
			UpperBound: LevelThresholds[len(LevelThresholds)-1],
			Progress:   1.0,
		}
	}

	lower := 0
	level := 1
	for i, threshold := range LevelThresholds {
		if points < threshold {
			progress := float64(points-lower) / float64(threshold-lower)
			if progress < 0 {
				progress = 0
			} else if progress > 1 {
				progress = 1
			}
			return LevelStatus{
				Level:      level,
				Points:     points,
				LowerBound: lower,
				UpperBound: threshold,
				Progress:   progress,
			}
		}
		lower = LevelThresholds[i]
		level = i + 2
	}

	// Unreachable: the max case is handled above.
	return LevelStatus{Level: level, Points: points, LowerBound: lower, UpperBound: lower, Progress: 1.0}
}
