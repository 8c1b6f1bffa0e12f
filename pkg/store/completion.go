package store

import (
	"strconv"
	"time"
)

// SetModuleViewed records that the user viewed the module when the course and
// module track completion on view. It returns true when a new view was stored.
func (s *Store) SetModuleViewed(course *Course, cm *CourseModule, userID int64) (bool, error) {
	if !course.EnableCompletion || cm.Completion != CompletionTrackingAutomatic || !cm.CompletionView {
		return false, nil
	}
	var rec CourseModuleCompletion
	err := first(s.DB, &rec, "course_module_id = ? AND user_id = ?", cm.ID, userID)
	switch {
	case err == nil && rec.Viewed:
		return false, nil
	case err == nil:
		rec.Viewed = true
		rec.TimeModified = time.Now().Unix()
		return true, s.Save(&rec).Error
	case err != ErrNotFound:
		return false, err
	}
	rec = CourseModuleCompletion{
		CourseModuleID: cm.ID,
		UserID:         userID,
		Viewed:         true,
		TimeModified:   time.Now().Unix(),
	}
	return true, s.Create(&rec).Error
}

// ModuleViewed reports whether a view was recorded.
func (s *Store) ModuleViewed(cmID, userID int64) (bool, error) {
	var rec CourseModuleCompletion
	err := first(s.DB, &rec, "course_module_id = ? AND user_id = ?", cmID, userID)
	if err == ErrNotFound {
		return false, nil
	}
	return rec.Viewed, err
}

// SaveCourseModule writes cm and drops its cached copy.
func (s *Store) SaveCourseModule(cm *CourseModule) error {
	s.cache.Remove("cm:" + strconv.FormatInt(cm.ID, 10))
	return s.Save(cm).Error
}

// SaveCourse writes c and drops its cached copy.
func (s *Store) SaveCourse(c *Course) error {
	s.cache.Remove("course:" + strconv.FormatInt(c.ID, 10))
	return s.Save(c).Error
}
