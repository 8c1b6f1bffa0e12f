package scorm

import (
	"strconv"

	"github.com/kiyor/scormplayer/pkg/store"
)

// InsertTrack records one element value for an attempt, overwriting a
// previous value of the same element.
func (l *Library) InsertTrack(userID, scormID, scoID int64, attempt int, element, value string) (*store.ScormTrack, error) {
	t := &store.ScormTrack{
		UserID:       userID,
		ScormID:      scormID,
		ScoID:        scoID,
		Attempt:      attempt,
		Element:      element,
		Value:        value,
		TimeModified: l.now().Unix(),
	}
	if err := l.store.UpsertTrack(t); err != nil {
		return nil, err
	}
	return t, nil
}

// TrackStartTime marks the moment the player opened a SCO.
func (l *Library) TrackStartTime(userID, scormID, scoID int64, attempt int) (*store.ScormTrack, error) {
	return l.InsertTrack(userID, scormID, scoID, attempt, ElementStartTime, strconv.FormatInt(l.now().Unix(), 10))
}
