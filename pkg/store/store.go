package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/bluele/gcache"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/kiyor/scormplayer/pkg/core"
)

// ErrNotFound is returned by lookups when no record matches.
var ErrNotFound = errors.New("record not found")

const dbName = "scormplayer.db"

// Store is the data access layer over the LMS tables.
type Store struct {
	*gorm.DB
	dbDir string
	cache gcache.Cache
}

// Open opens (creating when needed) the sqlite database in dbDir and migrates
// every table.
func Open(dbDir string) (*Store, error) {
	if _, err := os.Stat(dbDir); os.IsNotExist(err) {
		if err := os.MkdirAll(dbDir, 0755); err != nil {
			return nil, err
		}
	}
	s := &Store{
		dbDir: dbDir,
		cache: gcache.New(2000).LRU().Expiration(time.Minute).Build(),
	}
	path := s.dbPath() + "?cache=shared&_mutex=full"
	core.Log.Debug("db path", zap.String("path", path))

	mod := logger.Silent
	showSQL, _ := strconv.ParseBool(os.Getenv("SHOW_SQL"))
	if showSQL {
		mod = logger.Info
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(mod),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", s.dbPath(), err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	s.DB = db

	for _, v := range []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA cache_size = 10000;",
		"PRAGMA temp_store = MEMORY;",
		"PRAGMA busy_timeout = 30000;",
	} {
		if err := s.Exec(v).Error; err != nil {
			return nil, err
		}
	}
	if err := s.init(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) dbPath() string {
	return filepath.Join(s.dbDir, dbName)
}

func (s *Store) init() error {
	var errs error
	for _, v := range tables() {
		if err := s.AutoMigrate(v); err != nil {
			errs = errors.Join(errs, err)
		}
	}
	return errs
}

// Close releases the database handle.
func (s *Store) Close() error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Purge drops every cached record.
func (s *Store) Purge() {
	s.cache.Purge()
}

func first[T any](db *gorm.DB, out *T, query interface{}, args ...interface{}) error {
	res := db.Where(query, args...).Limit(1).Find(out)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func cached[T any](s *Store, key string, load func() (*T, error)) (*T, error) {
	if v, err := s.cache.Get(key); err == nil {
		if rec, ok := v.(*T); ok {
			cp := *rec
			return &cp, nil
		}
	}
	rec, err := load()
	if err != nil {
		return nil, err
	}
	cp := *rec
	s.cache.Set(key, &cp)
	return rec, nil
}

// Course returns the course with id.
func (s *Store) Course(id int64) (*Course, error) {
	return cached(s, "course:"+strconv.FormatInt(id, 10), func() (*Course, error) {
		var c Course
		if err := first(s.DB, &c, "id = ?", id); err != nil {
			return nil, err
		}
		return &c, nil
	})
}

// CourseModule returns a course module of the given module type. Passing a
// non-zero courseID restricts the lookup to that course.
func (s *Store) CourseModule(module string, id, courseID int64) (*CourseModule, error) {
	cm, err := cached(s, "cm:"+strconv.FormatInt(id, 10), func() (*CourseModule, error) {
		var cm CourseModule
		if err := first(s.DB, &cm, "id = ?", id); err != nil {
			return nil, err
		}
		return &cm, nil
	})
	if err != nil {
		return nil, err
	}
	if cm.Module != module || (courseID != 0 && cm.Course != courseID) {
		return nil, ErrNotFound
	}
	return cm, nil
}

// CourseModuleByInstance finds the course module of a module instance.
func (s *Store) CourseModuleByInstance(module string, instance, courseID int64) (*CourseModule, error) {
	var cm CourseModule
	q := s.DB.Where("module = ? AND instance = ?", module, instance)
	if courseID != 0 {
		q = q.Where("course = ?", courseID)
	}
	if err := first(q, &cm, "1 = 1"); err != nil {
		return nil, err
	}
	return &cm, nil
}

// Scorm returns the scorm instance with id.
func (s *Store) Scorm(id int64) (*Scorm, error) {
	var sc Scorm
	if err := first(s.DB, &sc, "id = ?", id); err != nil {
		return nil, err
	}
	return &sc, nil
}

// User returns the user with id.
func (s *Store) User(id int64) (*User, error) {
	var u User
	if err := first(s.DB, &u, "id = ?", id); err != nil {
		return nil, err
	}
	return &u, nil
}

// UserByName returns the user with the given username.
func (s *Store) UserByName(username string) (*User, error) {
	var u User
	if err := first(s.DB, &u, "username = ?", username); err != nil {
		return nil, err
	}
	return &u, nil
}

// ScoExistsByIdentifier reports whether the package has an item with identifier.
func (s *Store) ScoExistsByIdentifier(scormID int64, identifier string) (bool, error) {
	var n int64
	err := s.Model(&ScormSco{}).Where("scorm = ? AND identifier = ?", scormID, identifier).Count(&n).Error
	return n > 0, err
}

// Sco returns a package item by id.
func (s *Store) Sco(id int64) (*ScormSco, error) {
	var sco ScormSco
	if err := first(s.DB, &sco, "id = ?", id); err != nil {
		return nil, err
	}
	return &sco, nil
}

// Scoes lists the items of a package in manifest order.
func (s *Store) Scoes(scormID int64) ([]ScormSco, error) {
	var list []ScormSco
	err := s.Where("scorm = ?", scormID).Order("sort_order, id").Find(&list).Error
	return list, err
}

// FirstLaunchableSco returns the first launchable item with id greater than
// afterID (0 for the whole package).
func (s *Store) FirstLaunchableSco(scormID, afterID int64) (*ScormSco, error) {
	var sco ScormSco
	q := s.DB.Where("scorm = ? AND launch <> '' AND launch IS NOT NULL AND id > ?", scormID, afterID).
		Order("sort_order, id")
	if err := first(q, &sco, "1 = 1"); err != nil {
		return nil, err
	}
	return &sco, nil
}

// Tracks returns the tracked elements of one attempt.
func (s *Store) Tracks(userID, scormID int64, attempt int) ([]ScormTrack, error) {
	var list []ScormTrack
	err := s.Where("user_id = ? AND scorm_id = ? AND attempt = ?", userID, scormID, attempt).
		Order("sco_id, element").Find(&list).Error
	return list, err
}

// LastAttempt returns the highest tracked attempt number, 0 when none.
func (s *Store) LastAttempt(userID, scormID int64) (int, error) {
	var max sql.NullInt64
	err := s.Model(&ScormTrack{}).Select("MAX(attempt)").
		Where("user_id = ? AND scorm_id = ?", userID, scormID).Row().Scan(&max)
	if err != nil || !max.Valid {
		return 0, err
	}
	return int(max.Int64), nil
}

// AttemptCount returns the number of distinct attempts holding a value for
// element, the datamodel's completion status. Attempts that were only opened
// are not counted.
func (s *Store) AttemptCount(userID, scormID int64, element string) (int, error) {
	var n int64
	err := s.Model(&ScormTrack{}).Distinct("attempt").
		Where("user_id = ? AND scorm_id = ? AND element = ?", userID, scormID, element).Count(&n).Error
	return int(n), err
}

// TrackValue returns the value of one element tracked for a package item, ""
// when it was never tracked.
func (s *Store) TrackValue(userID, scoID int64, attempt int, element string) (string, error) {
	var list []ScormTrack
	err := s.Where("user_id = ? AND sco_id = ? AND attempt = ? AND element = ?", userID, scoID, attempt, element).
		Limit(1).Find(&list).Error
	if err != nil || len(list) == 0 {
		return "", err
	}
	return list[0].Value, nil
}

// HasTracks reports whether an attempt has any tracked element.
func (s *Store) HasTracks(userID, scormID int64, attempt int) (bool, error) {
	var n int64
	err := s.Model(&ScormTrack{}).
		Where("user_id = ? AND scorm_id = ? AND attempt = ?", userID, scormID, attempt).Count(&n).Error
	return n > 0, err
}

// UpsertTrack writes one element value, replacing an existing value for the
// same user, package item, attempt and element.
func (s *Store) UpsertTrack(t *ScormTrack) error {
	return s.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "scorm_id"}, {Name: "sco_id"}, {Name: "attempt"}, {Name: "element"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "time_modified"}),
	}).Create(t).Error
}

// IsEnrolled reports whether the user is enrolled in the course.
func (s *Store) IsEnrolled(userID, courseID int64) (bool, error) {
	var n int64
	err := s.Model(&Enrolment{}).Where("user_id = ? AND course_id = ?", userID, courseID).Count(&n).Error
	return n > 0, err
}

// HasCapability reports whether a grant of name applies to the course module
// (or course when cmID is 0). Site level grants apply everywhere.
func (s *Store) HasCapability(userID int64, name string, courseID, cmID int64) (bool, error) {
	var n int64
	q := s.Model(&Capability{}).Where("user_id = ? AND name = ?", userID, name)
	if cmID != 0 {
		q = q.Where("course_id = 0 OR (course_id = ? AND (cmid = 0 OR cmid = ?))", courseID, cmID)
	} else {
		q = q.Where("course_id = 0 OR (course_id = ? AND cmid = 0)", courseID)
	}
	err := q.Count(&n).Error
	return n > 0, err
}
