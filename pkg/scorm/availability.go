package scorm

import (
	"time"

	"github.com/dustin/go-humanize"

	"github.com/kiyor/scormplayer/pkg/store"
)

// DateFormat renders availability dates.
const DateFormat = "Monday, 2 January 2006, 3:04 PM"

// Warning explains why a package is unavailable. Key is a scorm language
// string taking A as its argument.
type Warning struct {
	Key string
	A   string
}

// AvailabilityStatus checks the open and close dates of the package. The
// package is available when no warning applies; warnings keep the order
// notopenyet, expired.
func (l *Library) AvailabilityStatus(sc *store.Scorm) (bool, []Warning) {
	now := l.now()
	var warnings []Warning
	if sc.TimeOpen != 0 && now.Unix() < sc.TimeOpen {
		warnings = append(warnings, Warning{Key: "notopenyet", A: formatDate(time.Unix(sc.TimeOpen, 0), now)})
	}
	if sc.TimeClose != 0 && now.Unix() > sc.TimeClose {
		warnings = append(warnings, Warning{Key: "expired", A: formatDate(time.Unix(sc.TimeClose, 0), now)})
	}
	return len(warnings) == 0, warnings
}

func formatDate(t, now time.Time) string {
	return t.Format(DateFormat) + " (" + humanize.RelTime(t, now, "ago", "from now") + ")"
}
