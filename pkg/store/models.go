package store

import (
	"encoding/json"

	"gorm.io/datatypes"
)

// Completion tracking modes of a course module.
const (
	CompletionTrackingNone      = 0
	CompletionTrackingManual    = 1
	CompletionTrackingAutomatic = 2
)

// CourseFormatSingleActivity is the course format showing one activity only.
const CourseFormatSingleActivity = "singleactivity"

// ScormTypeSco marks a manifest item that talks to the runtime API.
const ScormTypeSco = "sco"

type User struct {
	ID        int64  `json:"id" yaml:"id" gorm:"primaryKey"`
	Username  string `json:"username" yaml:"username" gorm:"uniqueIndex"`
	Fullname  string `json:"fullname" yaml:"fullname"`
	SiteAdmin bool   `json:"siteadmin" yaml:"siteadmin"`
}

type Course struct {
	ID               int64  `json:"id" yaml:"id" gorm:"primaryKey"`
	Fullname         string `json:"fullname" yaml:"fullname"`
	Shortname        string `json:"shortname" yaml:"shortname"`
	Format           string `json:"format" yaml:"format"`
	Visible          bool   `json:"visible" yaml:"visible"`
	EnableCompletion bool   `json:"enablecompletion" yaml:"enablecompletion"`
}

type CourseModule struct {
	ID             int64  `json:"id" yaml:"id" gorm:"primaryKey"`
	Course         int64  `json:"course" yaml:"course" gorm:"index"`
	Module         string `json:"module" yaml:"module"`
	Instance       int64  `json:"instance" yaml:"instance" gorm:"index"`
	Section        int    `json:"section" yaml:"section"`
	Visible        bool   `json:"visible" yaml:"visible"`
	Completion     int    `json:"completion" yaml:"completion"`
	CompletionView bool   `json:"completionview" yaml:"completionview"`
}

func (CourseModule) TableName() string { return "course_modules" }

type Enrolment struct {
	ID       int64 `json:"id" yaml:"id" gorm:"primaryKey"`
	UserID   int64 `json:"userid" yaml:"userid" gorm:"uniqueIndex:idx_enrol"`
	CourseID int64 `json:"courseid" yaml:"courseid" gorm:"uniqueIndex:idx_enrol"`
}

// Capability grants Name to a user at site level (CourseID 0), course level
// (CMID 0) or module level.
type Capability struct {
	ID       int64  `json:"id" yaml:"id" gorm:"primaryKey"`
	UserID   int64  `json:"userid" yaml:"userid" gorm:"index"`
	CourseID int64  `json:"courseid" yaml:"courseid"`
	CMID     int64  `json:"cmid" yaml:"cmid" gorm:"column:cmid"`
	Name     string `json:"name" yaml:"name"`
}

type Scorm struct {
	ID              int64  `json:"id" yaml:"id" gorm:"primaryKey"`
	Course          int64  `json:"course" yaml:"course" gorm:"index"`
	Name            string `json:"name" yaml:"name"`
	Version         string `json:"version" yaml:"version"`
	MaxAttempt      int    `json:"maxattempt" yaml:"maxattempt"`
	LastAttemptLock int    `json:"lastattemptlock" yaml:"lastattemptlock"`
	ForceNewAttempt int    `json:"forcenewattempt" yaml:"forcenewattempt"`
	HideBrowse      int    `json:"hidebrowse" yaml:"hidebrowse"`
	Popup           int    `json:"popup" yaml:"popup"`
	SkipView        int    `json:"skipview" yaml:"skipview"`
	Width           int    `json:"width" yaml:"width"`
	Height          int    `json:"height" yaml:"height"`
	Options         string `json:"options" yaml:"options"`
	Nav             int    `json:"nav" yaml:"nav"`
	NavPositionLeft int    `json:"navpositionleft" yaml:"navpositionleft"`
	NavPositionTop  int    `json:"navpositiontop" yaml:"navpositiontop"`
	HideTOC         int    `json:"hidetoc" yaml:"hidetoc" gorm:"column:hidetoc"`
	TimeOpen        int64  `json:"timeopen" yaml:"timeopen"`
	TimeClose       int64  `json:"timeclose" yaml:"timeclose"`
}

func (Scorm) TableName() string { return "scorm" }

// ScormSco is one item of a package manifest: an organization (Parent "/"),
// a container, or a launchable SCO/asset.
type ScormSco struct {
	ID           int64          `json:"id" yaml:"id" gorm:"primaryKey"`
	Scorm        int64          `json:"scorm" yaml:"scorm" gorm:"index"`
	Manifest     string         `json:"manifest" yaml:"manifest"`
	Organization string         `json:"organization" yaml:"organization"`
	Parent       string         `json:"parent" yaml:"parent"`
	Identifier   string         `json:"identifier" yaml:"identifier" gorm:"index"`
	Launch       string         `json:"launch" yaml:"launch"`
	ScormType    string         `json:"scormtype" yaml:"scormtype"`
	Title        string         `json:"title" yaml:"title"`
	SortOrder    int            `json:"sortorder" yaml:"sortorder"`
	Data         datatypes.JSON `json:"data" yaml:"-"`
}

func (ScormSco) TableName() string { return "scorm_scoes" }

// SetData stores the extra manifest values (prerequisites, isvisible, parameters).
func (s *ScormSco) SetData(data map[string]string) error {
	b, err := json.Marshal(data)
	if err != nil {
		return err
	}
	s.Data = datatypes.JSON(b)
	return nil
}

// GetData returns the extra manifest values, never nil.
func (s *ScormSco) GetData() map[string]string {
	data := make(map[string]string)
	if len(s.Data) == 0 {
		return data
	}
	if err := json.Unmarshal(s.Data, &data); err != nil {
		return make(map[string]string)
	}
	return data
}

// Launchable reports whether the item can be opened in the player.
func (s *ScormSco) Launchable() bool {
	return s.Launch != ""
}

type ScormTrack struct {
	ID           int64  `json:"id" gorm:"primaryKey"`
	UserID       int64  `json:"userid" yaml:"userid" gorm:"uniqueIndex:idx_track"`
	ScormID      int64  `json:"scormid" yaml:"scormid" gorm:"uniqueIndex:idx_track"`
	ScoID        int64  `json:"scoid" yaml:"scoid" gorm:"uniqueIndex:idx_track"`
	Attempt      int    `json:"attempt" yaml:"attempt" gorm:"uniqueIndex:idx_track"`
	Element      string `json:"element" yaml:"element" gorm:"uniqueIndex:idx_track"`
	Value        string `json:"value" yaml:"value"`
	TimeModified int64  `json:"timemodified" yaml:"timemodified"`
}

func (ScormTrack) TableName() string { return "scorm_scoes_track" }

type CourseModuleCompletion struct {
	ID              int64 `json:"id" gorm:"primaryKey"`
	CourseModuleID  int64 `json:"coursemoduleid" gorm:"uniqueIndex:idx_cmc"`
	UserID          int64 `json:"userid" gorm:"uniqueIndex:idx_cmc"`
	CompletionState int   `json:"completionstate"`
	Viewed          bool  `json:"viewed"`
	TimeModified    int64 `json:"timemodified"`
}

func (CourseModuleCompletion) TableName() string { return "course_modules_completion" }

func tables() []interface{} {
	return []interface{}{
		User{}, Course{}, CourseModule{}, Enrolment{}, Capability{},
		Scorm{}, ScormSco{}, ScormTrack{}, CourseModuleCompletion{},
	}
}
