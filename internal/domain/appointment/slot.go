package appointment

import (
	"fmt"
	"time"
)

// DateLayout is the wire format of an appointment date.
const DateLayout = "2006-01-02"

// slots is the clinic's daily calendar: ten one-hour slots from 08:00 to 17:00.
// Validation and availability both read from here.
var slots = [...]string{
	"08:00", "09:00", "10:00", "11:00", "12:00",
	"13:00", "14:00", "15:00", "16:00", "17:00",
}

var slotIndex = func() map[string]int {
	m := make(map[string]int, len(slots))
	for i, s := range slots {
		m[s] = i
	}
	return m
}()

// AllSlots returns the bookable time labels in calendar order.
// The returned slice is a copy and may be modified by the caller.
func AllSlots() []string {
	out := make([]string, len(slots))
	copy(out, slots[:])
	return out
}

// IsValidSlot reports whether label is one of the fixed hourly slots.
func IsValidSlot(label string) bool {
	_, ok := slotIndex[label]
	return ok
}

// SlotIndex returns the calendar position of label, or -1 when it is not a slot.
func SlotIndex(label string) int {
	if i, ok := slotIndex[label]; ok {
		return i
	}
	return -1
}

// NormalizeDate drops the time-of-day component, keeping the calendar date as
// seen in t's own location, and returns midnight UTC of that date.
func NormalizeDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD date.
func ParseDate(raw string) (time.Time, error) {
	d, err := time.Parse(DateLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("date must use the %s format: %w", DateLayout, err)
	}
	return d, nil
}

// FreeSlots subtracts the occupied labels from the daily calendar.
// Unknown labels in occupied are ignored.
func FreeSlots(occupied []string) []string {
	taken := make(map[string]struct{}, len(occupied))
	for _, o := range occupied {
		taken[o] = struct{}{}
	}

	free := make([]string, 0, len(slots))
	for _, s := range slots {
		if _, busy := taken[s]; !busy {
			free = append(free, s)
		}
	}
	return free
}
