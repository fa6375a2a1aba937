package slots

import (
	"fmt"
	"strconv"
	"strings"

	"slotbook/internal/models"
)

// Daily template bounds, hours inclusive. Together with BlackoutDay these
// are fixed business constants, not configuration.
const (
	FirstHour = 11
	LastHour  = 16

	// BlackoutDay blocks every slot on any date whose day-of-month
	// segment equals this value.
	BlackoutDay = 25
)

// Generate returns the fixed daily slot template for a date. The date is
// accepted for future use but does not affect the template.
func Generate(_ string) []string {
	out := make([]string, 0, LastHour-FirstHour+1)
	for h := FirstHour; h <= LastHour; h++ {
		out = append(out, fmt.Sprintf("%02d:00", h))
	}
	return out
}

// IsBlackout reports whether the date falls on the blackout day. The day is
// taken literally from the third dash-delimited segment, so malformed dates
// simply report false instead of failing.
func IsBlackout(date string) bool {
	parts := strings.Split(date, "-")
	if len(parts) < 3 {
		return false
	}
	day, err := strconv.Atoi(parts[2])
	if err != nil {
		return false
	}
	return day == BlackoutDay
}

// Available returns the template slots for a date minus slots already taken
// by the given bookings, keeping template order. Blackout dates have no
// available slots regardless of bookings.
func Available(date string, bookings []models.Booking) []string {
	if IsBlackout(date) {
		return []string{}
	}

	taken := make(map[string]bool)
	for _, b := range bookings {
		if b.Date == date {
			taken[b.Time] = true
		}
	}

	available := make([]string, 0, LastHour-FirstHour+1)
	for _, slot := range Generate(date) {
		if !taken[slot] {
			available = append(available, slot)
		}
	}
	return available
}
