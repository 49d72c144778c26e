package iwd

import (
	"errors"
	"fmt"
	"slices"
)

// ErrLevelOutOfRange is returned for a level index above the number of thresholds.
var ErrLevelOutOfRange = errors.New("signal level index out of range")

// BoundKind says whether a range end is open, closed or absent.
type BoundKind uint8

const (
	Unbounded BoundKind = iota
	Included
	Excluded
)

// Bound is one end of a LevelRange, in dBm.
type Bound struct {
	Kind  BoundKind
	Value int16
}

// LevelRange is the set of RSSI values one signal level stands for. Max is never
// Included and Min is never Excluded.
type LevelRange struct {
	Min Bound
	Max Bound
}

// Contains reports whether dbm falls in r.
func (r LevelRange) Contains(dbm int16) bool {
	switch r.Min.Kind {
	case Included:
		if dbm < r.Min.Value {
			return false
		}
	case Excluded:
		if dbm <= r.Min.Value {
			return false
		}
	}
	switch r.Max.Kind {
	case Included:
		return dbm <= r.Max.Value
	case Excluded:
		return dbm < r.Max.Value
	}
	return true
}

func (r LevelRange) String() string {
	lo, hi := "(-inf", "+inf)"
	switch r.Min.Kind {
	case Included:
		lo = fmt.Sprintf("[%d", r.Min.Value)
	case Excluded:
		lo = fmt.Sprintf("(%d", r.Min.Value)
	}
	switch r.Max.Kind {
	case Included:
		hi = fmt.Sprintf("%d]", r.Max.Value)
	case Excluded:
		hi = fmt.Sprintf("%d)", r.Max.Value)
	}
	return lo + ", " + hi + " dBm"
}

// Thresholds partition RSSI into levels. Index 0 is the strongest level.
type Thresholds struct {
	levels []int16
}

// NewThresholds copies levels and sorts them from strongest to weakest.
// Duplicates are kept.
func NewThresholds(levels []int16) Thresholds {
	l := slices.Clone(levels)
	slices.SortStableFunc(l, func(a, b int16) int { return int(b) - int(a) })
	return Thresholds{levels: l}
}

// Levels returns the sorted boundaries, as sent to the daemon.
func (t Thresholds) Levels() []int16 { return slices.Clone(t.levels) }

// Len returns the number of boundaries. There are Len()+1 levels.
func (t Thresholds) Len() int { return len(t.levels) }

// Range returns the range of level i.
func (t Thresholds) Range(i int) (LevelRange, error) {
	n := len(t.levels)
	if i < 0 || i > n {
		return LevelRange{}, fmt.Errorf("%w: %d not in [0, %d]", ErrLevelOutOfRange, i, n)
	}
	var r LevelRange
	if i > 0 {
		r.Max = Bound{Kind: Excluded, Value: t.levels[i-1]}
	}
	if i < n {
		r.Min = Bound{Kind: Included, Value: t.levels[i]}
	}
	return r, nil
}
