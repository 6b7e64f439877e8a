package allocation

import (
	"fmt"
	"strconv"
	"strings"
)

// Slot times travel as "HH:MM" strings. Estimated times are derived in
// minutes-since-midnight and formatted back; a heavily delayed slot can push
// the hour past 24 ("25:30"), which is emitted as-is rather than rolled into
// the next day.

func parseClock(s string) (int, error) {
	h, m, ok := strings.Cut(s, ":")
	if !ok {
		return 0, fmt.Errorf("invalid time %q: want HH:MM", s)
	}
	hours, err := strconv.Atoi(h)
	if err != nil || hours < 0 || hours > 23 {
		return 0, fmt.Errorf("invalid time %q: bad hour", s)
	}
	mins, err := strconv.Atoi(m)
	if err != nil || mins < 0 || mins > 59 {
		return 0, fmt.Errorf("invalid time %q: bad minute", s)
	}
	return hours*60 + mins, nil
}

func formatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}
