package weather

import (
	"slices"
	"time"
)

// Day holds the measurements of one calendar day, ascending by time.
type Day struct {
	Key          string // YYYY-MM-DD
	Date         time.Time
	Measurements []Measurement
}

// Label formats the day as dd/mm/yyyy.
func (d Day) Label() string {
	return d.Date.Format("02/01/2006")
}

// GroupByDay groups measurements by the calendar day of their own timestamp.
// Measurements without a parseable time are left out. Days are returned most
// recent first; entries within a day are ascending by time.
func GroupByDay(ms []Measurement) []Day {
	index := make(map[string]int)
	var days []Day

	for _, m := range ms {
		key, ok := m.DateKey()
		if !ok {
			continue
		}
		i, seen := index[key]
		if !seen {
			date, _ := time.Parse(time.DateOnly, key)
			days = append(days, Day{Key: key, Date: date})
			i = len(days) - 1
			index[key] = i
		}
		days[i].Measurements = append(days[i].Measurements, m)
	}

	for i := range days {
		sortByTime(days[i].Measurements)
	}
	slices.SortFunc(days, func(a, b Day) int {
		// Keys are YYYY-MM-DD so lexical order is chronological.
		switch {
		case a.Key > b.Key:
			return -1
		case a.Key < b.Key:
			return 1
		}
		return 0
	})
	return days
}

func sortByTime(ms []Measurement) {
	slices.SortStableFunc(ms, func(a, b Measurement) int {
		return a.at.Compare(b.at)
	})
}
