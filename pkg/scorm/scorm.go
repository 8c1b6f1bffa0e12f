// Package scorm holds the player-side SCORM rules: datamodel resolution,
// attempt and mode checks, launchable SCO selection, availability windows,
// TOC construction and tracking writes.
package scorm

import (
	"errors"
	"time"

	"github.com/kiyor/scormplayer/pkg/store"
)

// Navigation modes.
const (
	ModeNormal = "normal"
	ModeBrowse = "browse"
	ModeReview = "review"
)

// forcenewattempt settings.
const (
	ForceAttemptNo         = 0
	ForceAttemptOnComplete = 1
	ForceAttemptAlways     = 2
)

// skipview settings.
const (
	SkipViewNever  = 0
	SkipViewFirst  = 1
	SkipViewAlways = 2
)

// hidetoc settings.
const (
	TOCSide     = 0
	TOCHidden   = 1
	TOCPopup    = 2
	TOCDisabled = 3
)

// ElementStartTime is tracked when the player opens a SCO.
const ElementStartTime = "x.start.time"

// ErrNoLaunchableSco is returned when a package has nothing the player can open.
var ErrNoLaunchableSco = errors.New("scorm: no launchable sco")

// Store is the data access the library needs.
type Store interface {
	LastAttempt(userID, scormID int64) (int, error)
	AttemptCount(userID, scormID int64, element string) (int, error)
	HasTracks(userID, scormID int64, attempt int) (bool, error)
	Tracks(userID, scormID int64, attempt int) ([]store.ScormTrack, error)
	TrackValue(userID, scoID int64, attempt int, element string) (string, error)
	Sco(id int64) (*store.ScormSco, error)
	Scoes(scormID int64) ([]store.ScormSco, error)
	FirstLaunchableSco(scormID, afterID int64) (*store.ScormSco, error)
	UpsertTrack(t *store.ScormTrack) error
}

// Library applies the SCORM rules against a Store.
type Library struct {
	store   Store
	wwwroot string
	now     func() time.Time
}

// New returns a Library building links under wwwroot.
func New(s Store, wwwroot string) *Library {
	return &Library{store: s, wwwroot: wwwroot, now: time.Now}
}

// SetClock replaces the time source.
func (l *Library) SetClock(now func() time.Time) {
	l.now = now
}
