// README: Calendar season rules used to split a rental window into peak and off-peak days.
package season

import (
	"time"

	"github.com/jinzhu/now"
)

type Season string

const (
	Peak    Season = "peak"
	OffPeak Season = "off_peak"
)

// Classify reports the season of the calendar day t falls on. Off-peak runs
// April 6-30, all of May, October and November, and December 1-4.
func Classify(t time.Time) Season {
	day := t.Day()
	switch t.Month() {
	case time.April:
		if day >= 6 {
			return OffPeak
		}
	case time.May, time.October, time.November:
		return OffPeak
	case time.December:
		if day <= 4 {
			return OffPeak
		}
	}
	return Peak
}

type Split struct {
	Peak    int `json:"peak"`
	OffPeak int `json:"off_peak"`
}

func (s Split) Total() int {
	return s.Peak + s.OffPeak
}

// SplitDays counts every calendar day in [start, end] by season. Both ends are
// inclusive and the time of day is ignored. end is read in start's location.
func SplitDays(start, end time.Time) Split {
	var s Split
	day := now.With(start).BeginningOfDay()
	last := now.With(end.In(start.Location())).BeginningOfDay()
	for !day.After(last) {
		if Classify(day) == OffPeak {
			s.OffPeak++
		} else {
			s.Peak++
		}
		day = day.AddDate(0, 0, 1)
	}
	return s
}
