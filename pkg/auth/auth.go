// Package auth implements login and capability checks against the store.
package auth

import (
	"errors"

	"github.com/kiyor/scormplayer/pkg/core"
	"github.com/kiyor/scormplayer/pkg/store"
)

// Capabilities checked by the player.
const (
	CapViewHiddenActivities = "moodle/course:viewhiddenactivities"
	CapViewHiddenCourses    = "moodle/course:viewhiddencourses"
	CapCourseView           = "moodle/course:view"
	CapScormViewReport      = "mod/scorm:viewreport"
)

// Store is the data access auth needs.
type Store interface {
	User(id int64) (*store.User, error)
	IsEnrolled(userID, courseID int64) (bool, error)
	HasCapability(userID int64, name string, courseID, cmID int64) (bool, error)
}

// Checker answers login and capability questions.
type Checker struct {
	store Store
}

func NewChecker(s Store) *Checker {
	return &Checker{store: s}
}

// HasCapability reports whether user holds name in the module context (cm
// may be nil for the course context). Site admins hold everything.
func (a *Checker) HasCapability(user *store.User, name string, course *store.Course, cm *store.CourseModule) (bool, error) {
	if user == nil {
		return false, nil
	}
	if user.SiteAdmin {
		return true, nil
	}
	var cmID int64
	if cm != nil {
		cmID = cm.ID
	}
	return a.store.HasCapability(user.ID, name, course.ID, cmID)
}

// RequireLogin resolves the session user and checks it may enter course.
// Module visibility is left to the caller so it can render its own notice.
func (a *Checker) RequireLogin(userID int64, course *store.Course, cm *store.CourseModule) (*store.User, error) {
	if userID == 0 {
		return nil, core.ErrRequireLogin
	}
	user, err := a.store.User(userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, core.ErrRequireLogin
	}
	if err != nil {
		return nil, err
	}
	if user.SiteAdmin {
		return user, nil
	}
	if !course.Visible {
		ok, err := a.HasCapability(user, CapViewHiddenCourses, course, nil)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, core.ErrRequireLoginError
		}
	}
	enrolled, err := a.store.IsEnrolled(user.ID, course.ID)
	if err != nil {
		return nil, err
	}
	if enrolled {
		return user, nil
	}
	ok, err := a.HasCapability(user, CapCourseView, course, cm)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, core.ErrRequireLoginError
	}
	return user, nil
}
