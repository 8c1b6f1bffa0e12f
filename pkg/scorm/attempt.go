package scorm

import (
	"github.com/kiyor/scormplayer/pkg/store"
)

// Attempt is the navigation state the player negotiates before opening a SCO.
type Attempt struct {
	Number     int
	Mode       string
	NewAttempt string // "on" or "off"
}

// LastAttempt returns the user's current attempt number, 1 when nothing was
// tracked yet.
func (l *Library) LastAttempt(userID, scormID int64) (int, error) {
	n, err := l.store.LastAttempt(userID, scormID)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 1, nil
	}
	return n, nil
}

// CheckMode validates a requested mode and new-attempt flag against the
// package settings and the user's progress, returning the state to use.
func (l *Library) CheckMode(sc *store.Scorm, userID int64, req Attempt) (Attempt, error) {
	a := req
	if a.Mode == ModeBrowse {
		if sc.HideBrowse == 1 {
			a.Mode = ModeNormal
		} else {
			return a, nil
		}
	}

	if sc.ForceNewAttempt == ForceAttemptAlways {
		a.NewAttempt = "on"
		a.Mode = ModeNormal
		if a.Number == 1 {
			exists, err := l.store.HasTracks(userID, sc.ID, 1)
			if err != nil {
				return req, err
			}
			if !exists {
				return a, nil
			}
		}
		a.Number++
		return a, nil
	}

	incomplete, err := l.attemptIncomplete(sc, userID, a.Number)
	if err != nil {
		return req, err
	}

	if a.NewAttempt != "on" {
		a.NewAttempt = "off"
	}
	switch {
	case incomplete:
		a.NewAttempt = "off"
	case sc.ForceNewAttempt != ForceAttemptNo:
		a.NewAttempt = "on"
	}

	switch {
	case a.NewAttempt == "on" && (a.Number < sc.MaxAttempt || sc.MaxAttempt == 0):
		a.Number++
		a.Mode = ModeNormal
	case !incomplete:
		a.Mode = ModeReview
	default:
		a.Mode = ModeNormal
	}
	return a, nil
}

// attemptIncomplete is true unless every SCO of the package has a completion
// status of completed, passed or failed in the attempt. A package without
// SCOs is incomplete.
func (l *Library) attemptIncomplete(sc *store.Scorm, userID int64, attempt int) (bool, error) {
	all, err := l.store.Scoes(sc.ID)
	if err != nil {
		return true, err
	}
	element := ResolveDatamodel(sc.Version).CompletionElement
	incomplete := true
	for i := range all {
		if all[i].ScormType != store.ScormTypeSco {
			continue
		}
		value, err := l.store.TrackValue(userID, all[i].ID, attempt, element)
		if err != nil {
			return true, err
		}
		if !statusFinal(value) {
			return true, nil
		}
		incomplete = false
	}
	return incomplete, nil
}

func statusFinal(status string) bool {
	switch status {
	case "completed", "passed", "failed":
		return true
	}
	return false
}
