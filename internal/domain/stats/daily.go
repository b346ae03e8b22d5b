// Package stats defines daily activity records keyed by calendar date.
// This package is PURE and must NOT import any infrastructure packages.
package stats

import "time"

// Conversion factors applied when deriving secondary metrics from steps.
const (
	CaloriesPerStep = 0.04     // kcal
	KmPerStep       = 0.000762 // average stride
)

// DateLayout is the canonical ISO-8601 key for daily rows. ISO date strings
// compare correctly with plain string ordering, which the step pipeline
// relies on for its backward-clock guard.
const DateLayout = "2006-01-02"

// Daily is one row of activity totals for a single calendar date.
// Steps are monotonically non-decreasing within a date.
type Daily struct {
	Date           string  `json:"date"`
	Steps          int64   `json:"steps"`
	CaloriesBurned float64 `json:"calories_burned"`
	WaterMl        int     `json:"water_ml"`
	DistanceKm     float64 `json:"distance_km"`
}

// DateOf returns the canonical date key for a timestamp.
func DateOf(t time.Time) string {
	return t.Format(DateLayout)
}

// CaloriesFor derives burned calories from a step total.
func CaloriesFor(steps int64) float64 {
	return float64(steps) * CaloriesPerStep
}

// DistanceKmFor derives walked distance from a step total.
func DistanceKmFor(steps int64) float64 {
	return float64(steps) * KmPerStep
}
