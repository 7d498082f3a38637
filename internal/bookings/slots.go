package bookings

import (
	"sort"
	"time"

	"courtly/internal/shared/apperror"
)

// SlotWindow is a requested start/end pair, before it becomes a BookingSlot.
type SlotWindow struct {
	StartTime time.Time `json:"start_time" binding:"required"`
	EndTime   time.Time `json:"end_time" binding:"required"`
}

// Hours is the window length in fractional hours.
func (w SlotWindow) Hours() float64 {
	return w.EndTime.Sub(w.StartTime).Hours()
}

// ValidateWindow rejects a window whose end is not after its start.
func ValidateWindow(w SlotWindow) error {
	if !w.EndTime.After(w.StartTime) {
		return apperror.Newf(apperror.ErrInvalidTimeRange,
			"slot end %s must be after start %s", w.EndTime.Format(time.RFC3339), w.StartTime.Format(time.RFC3339))
	}
	return nil
}

// ValidateSlots checks that a slot set is non-empty, every window is positive,
// no two windows overlap and all of them start on the same date in loc.
func ValidateSlots(windows []SlotWindow, loc *time.Location) error {
	if len(windows) == 0 {
		return apperror.Newf(apperror.ErrInsufficientSelection, "no time slots selected")
	}
	if loc == nil {
		loc = time.UTC
	}

	sorted := SortWindows(windows)
	y, m, d := sorted[0].StartTime.In(loc).Date()
	for i, w := range sorted {
		if err := ValidateWindow(w); err != nil {
			return err
		}
		wy, wm, wd := w.StartTime.In(loc).Date()
		if wy != y || wm != m || wd != d {
			return apperror.Newf(apperror.ErrInvalidTimeRange, "all slots must share one booking date")
		}
		if i > 0 && w.StartTime.Before(sorted[i-1].EndTime) {
			return apperror.Newf(apperror.ErrInvalidTimeRange,
				"slot starting %s overlaps the previous slot", w.StartTime.Format(time.RFC3339))
		}
	}
	return nil
}

// SortWindows returns a copy ordered by start time.
func SortWindows(windows []SlotWindow) []SlotWindow {
	out := make([]SlotWindow, len(windows))
	copy(out, windows)
	sort.Slice(out, func(i, j int) bool {
		return out[i].StartTime.Before(out[j].StartTime)
	})
	return out
}

// SameWindows reports whether two slot sets contain the same start/end pairs,
// ignoring order.
func SameWindows(a, b []SlotWindow) bool {
	if len(a) != len(b) {
		return false
	}
	sa, sb := SortWindows(a), SortWindows(b)
	for i := range sa {
		if !sa[i].StartTime.Equal(sb[i].StartTime) || !sa[i].EndTime.Equal(sb[i].EndTime) {
			return false
		}
	}
	return true
}

// NewSlots turns validated windows into slot rows for a court.
func NewSlots(courtID int64, windows []SlotWindow) []BookingSlot {
	sorted := SortWindows(windows)
	out := make([]BookingSlot, 0, len(sorted))
	for _, w := range sorted {
		out = append(out, BookingSlot{
			CourtID:   courtID,
			StartTime: w.StartTime,
			EndTime:   w.EndTime,
			Status:    SlotBooked,
		})
	}
	return out
}
