package ranking

import (
	"fmt"
	"time"
)

const day = 24 * time.Hour

// TimeRemaining renders the time left until end as "{days}d {hours}h", or "Ended"
// once end is not after now. Partial hours are truncated.
func TimeRemaining(end, now time.Time) string {
	diff := end.Sub(now)
	if diff <= 0 {
		return "Ended"
	}
	days := diff / day
	hours := (diff % day) / time.Hour
	return fmt.Sprintf("%dd %dh", days, hours)
}

// Deadline formats end as a long date, e.g. "January 2, 2006".
func Deadline(end time.Time) string {
	return end.Format("January 2, 2006")
}
