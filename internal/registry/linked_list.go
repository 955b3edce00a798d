package registry

import (
	"iter"

	"github.com/meteoboard/meteoboard/internal/weather"
)

type node struct {
	station *weather.Station
	next    *node
}

// StationList is a singly linked list of stations in registry order.
type StationList struct {
	head *node
	tail *node
	size int
}

// Append adds a station at the end.
func (l *StationList) Append(st *weather.Station) {
	n := &node{station: st}
	if l.tail == nil {
		l.head = n
	} else {
		l.tail.next = n
	}
	l.tail = n
	l.size++
}

// Get returns the station at index i, or nil when out of range.
func (l *StationList) Get(i int) *weather.Station {
	if i < 0 || i >= l.size {
		return nil
	}
	cur := l.head
	for range i {
		cur = cur.next
	}
	return cur.station
}

// FindByName returns the first station with the exact name.
func (l *StationList) FindByName(name string) (*weather.Station, bool) {
	for cur := l.head; cur != nil; cur = cur.next {
		if cur.station.Name == name {
			return cur.station, true
		}
	}
	return nil, false
}

// FindByID returns the station with the given persisted ID.
func (l *StationList) FindByID(id string) (*weather.Station, bool) {
	for cur := l.head; cur != nil; cur = cur.next {
		if cur.station.ID == id {
			return cur.station, true
		}
	}
	return nil, false
}

// Len returns the number of stations.
func (l *StationList) Len() int {
	return l.size
}

// Clear empties the list.
func (l *StationList) Clear() {
	l.head, l.tail, l.size = nil, nil, 0
}

// All iterates over (index, station) pairs in order.
func (l *StationList) All() iter.Seq2[int, *weather.Station] {
	return func(yield func(int, *weather.Station) bool) {
		i := 0
		for cur := l.head; cur != nil; cur = cur.next {
			if !yield(i, cur.station) {
				return
			}
			i++
		}
	}
}

// Slice returns the stations as a slice.
func (l *StationList) Slice() []*weather.Station {
	out := make([]*weather.Station, 0, l.size)
	for _, st := range l.All() {
		out = append(out, st)
	}
	return out
}
