package journal

import (
	"strconv"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// MaxWeekOffset bounds |offset| so the day arithmetic in WeekWindow cannot
// overflow; 1<<20 weeks is about twenty thousand years.
const MaxWeekOffset = 1 << 20

// Window is an inclusive Monday..Sunday range of calendar dates. Start and End
// are midnights in the location the window was computed in.
type Window struct {
	Start  time.Time
	End    time.Time
	Offset int
}

// WeekWindow returns the week containing today shifted by offset whole weeks.
func WeekWindow(today time.Time, offset int) Window {
	y, m, d := today.Date()
	weekday := (int(today.Weekday()) + 6) % 7 // Monday = 0
	start := time.Date(y, m, d-weekday+offset*7, 0, 0, 0, 0, today.Location())
	return Window{
		Start:  start,
		End:    start.AddDate(0, 0, 6),
		Offset: offset,
	}
}

// Bounds returns the half-open instant range [Start, End+1 day) covering
// every timestamp whose calendar date lies in the window.
func (w Window) Bounds() (from, to time.Time) {
	return w.Start, w.End.AddDate(0, 0, 1)
}

// Contains compares by calendar date in the window's location.
func (w Window) Contains(t time.Time) bool {
	from, to := w.Bounds()
	t = t.In(w.Start.Location())
	return !t.Before(from) && t.Before(to)
}

// ParseOffset reads a week offset from a query value. Missing, malformed or
// out-of-range input yields 0.
func ParseOffset(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || !ValidOffset(n) {
		return 0
	}
	return n
}

func ValidOffset(offset int) bool {
	return offset >= -MaxWeekOffset && offset <= MaxWeekOffset
}
