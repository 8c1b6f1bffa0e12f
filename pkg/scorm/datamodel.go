package scorm

import (
	"regexp"
	"strings"
)

// Datamodel describes one runtime datamodel the player can bootstrap.
type Datamodel struct {
	Name               string // scorm_12, scorm_13, aicc
	APIName            string // window object the SCO looks up
	APIConstructor     string
	CompletionElement  string
	SuccessElement     string
	LearnerIDElement   string
	LearnerNameElement string
}

// JSPath is the datamodel's runtime script.
func (d *Datamodel) JSPath() string {
	return "/mod/scorm/datamodels/" + d.Name + ".js"
}

var (
	Scorm12 = &Datamodel{
		Name:               "scorm_12",
		APIName:            "API",
		APIConstructor:     "SCORMapi1_2",
		CompletionElement:  "cmi.core.lesson_status",
		LearnerIDElement:   "cmi.core.student_id",
		LearnerNameElement: "cmi.core.student_name",
	}
	Scorm13 = &Datamodel{
		Name:               "scorm_13",
		APIName:            "API_1484_11",
		APIConstructor:     "SCORMapi1_3",
		CompletionElement:  "cmi.completion_status",
		SuccessElement:     "cmi.success_status",
		LearnerIDElement:   "cmi.learner_id",
		LearnerNameElement: "cmi.learner_name",
	}
	AICC = &Datamodel{
		Name:               "aicc",
		APIName:            "API",
		APIConstructor:     "AICCapi",
		CompletionElement:  "cmi.core.lesson_status",
		LearnerIDElement:   "cmi.core.student_id",
		LearnerNameElement: "cmi.core.student_name",
	}
)

var datamodels = map[string]*Datamodel{
	Scorm12.Name: Scorm12,
	Scorm13.Name: Scorm13,
	AICC.Name:    AICC,
}

var reUnsafeDir = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

// ResolveDatamodel maps a stored version ("SCORM_1.2", "SCORM_1.3", "AICC")
// to a registered datamodel. Unknown versions fall back to scorm_12.
func ResolveDatamodel(version string) *Datamodel {
	name := strings.ToLower(reUnsafeDir.ReplaceAllString(version, ""))
	if d, ok := datamodels[name]; ok {
		return d
	}
	return Scorm12
}
