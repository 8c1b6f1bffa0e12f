package api

import (
	"errors"
	"html/template"
	"net/url"
	"regexp"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/kiyor/scormplayer/pkg/auth"
	"github.com/kiyor/scormplayer/pkg/core"
	"github.com/kiyor/scormplayer/pkg/page"
	"github.com/kiyor/scormplayer/pkg/param"
	"github.com/kiyor/scormplayer/pkg/scorm"
	"github.com/kiyor/scormplayer/pkg/session"
	"github.com/kiyor/scormplayer/pkg/store"
)

const (
	displayPopup = "popup"

	keepaliveFrequency = 30
	keepaliveTimeout   = 10
)

var reNotAlnum = regexp.MustCompile(`[^A-Za-z0-9]`)

// playerData is published to scripts as scormplayerdata.
type playerData struct {
	Launch       bool   `json:"launch"`
	CurrentOrg   string `json:"currentorg"`
	Sco          int64  `json:"sco"`
	Scorm        int64  `json:"scorm"`
	CourseID     int64  `json:"courseid"`
	CWidth       int    `json:"cwidth"`
	CHeight      int    `json:"cheight"`
	PopupOptions string `json:"popupoptions"`
}

// RenderPlayerFiber renders the player page of one SCO and records the start
// time of the attempt.
func (h *Handler) RenderPlayerFiber(c *fiber.Ctx) error {
	sess, err := h.Sessions.Get(c)
	if err != nil {
		return err
	}
	sess.ResetPageFlags()
	err = h.renderPlayer(c, sess)
	if saveErr := sess.Save(); saveErr != nil && err == nil {
		err = saveErr
	}
	return err
}

func (h *Handler) renderPlayer(c *fiber.Ctx, sess *session.Session) error {
	id := param.OptionalInt(c, "cm", 0)
	a := param.OptionalInt(c, "a", 0)
	scoid, err := param.RequiredInt(c, "scoid")
	if err != nil {
		return err
	}
	mode := param.OptionalAlpha(c, "mode", scorm.ModeNormal)
	currentorg := param.OptionalRaw(c, "currentorg", "")
	newattempt := param.OptionalAlpha(c, "newattempt", "off")
	displaymode := param.OptionalAlpha(c, "display", displayPopup)

	course, cm, sc, err := h.resolveScorm(id, a)
	if err != nil {
		return err
	}

	if currentorg != "" {
		exists, err := h.Store.ScoExistsByIdentifier(sc.ID, currentorg)
		if err != nil {
			return err
		}
		if !exists {
			currentorg = ""
		}
	}

	userID := sess.UserID()
	attempt, err := h.Scorm.LastAttempt(userID, sc.ID)
	if err != nil {
		return err
	}
	st, err := h.Scorm.CheckMode(sc, userID, scorm.Attempt{Number: attempt, Mode: mode, NewAttempt: newattempt})
	if err != nil {
		return err
	}
	mode, newattempt, attempt = st.Mode, st.NewAttempt, st.Number

	if scoid != 0 {
		if scoid, err = h.Scorm.CheckLaunchableSco(sc, scoid); err != nil {
			return err
		}
	}

	params := url.Values{}
	params.Set("scoid", strconv.FormatInt(scoid, 10))
	params.Set("cm", strconv.FormatInt(cm.ID, 10))
	if mode != scorm.ModeNormal {
		params.Set("mode", mode)
	}
	if currentorg != "" {
		params.Set("currentorg", currentorg)
	}
	if newattempt != "off" {
		params.Set("newattempt", newattempt)
	}
	if displaymode != "" {
		params.Set("display", displaymode)
	}

	p := page.New(h.Lang)
	p.SetURL(h.url("/mod/scorm/player.php?" + params.Encode()))

	forcejs := h.Config.Scorm.ForceJavascript
	if forcejs {
		p.AddBodyClass("forcejavascript")
	}
	collapsetocwinsize := h.Config.Scorm.CollapseTOC()

	user, err := h.Auth.RequireLogin(userID, course, cm)
	if err != nil {
		return err
	}

	if displaymode == displayPopup {
		p.SetPageLayout(page.LayoutEmbedded)
	} else {
		p.SetTitle(page.StripTags(course.Shortname + ": " + sc.Name))
		p.SetHeading(course.Fullname)
	}

	if !cm.Visible {
		ok, err := h.Auth.HasCapability(user, auth.CapViewHiddenActivities, course, cm)
		if err != nil {
			return err
		}
		if !ok {
			return p.Render(c, "notice", fiber.Map{
				"Message":       h.Lang.Get("activityiscurrentlyhidden", "moodle"),
				"Class":         "box generalbox notice",
				"ContinueURL":   h.courseURL(course, 0),
				"ContinueLabel": h.Lang.Get("continue", "moodle"),
			})
		}
	}

	if available, warnings := h.Scorm.AvailabilityStatus(sc); !available {
		reason := warnings[0]
		return p.Notice(c, h.Lang.Get(reason.Key, "scorm", reason.A), "box py-3 generalbox boxaligncenter")
	}

	dm := scorm.ResolveDatamodel(sc.Version)

	toc, err := h.Scorm.TOC(user.ID, sc, currentorg, scoid, mode, attempt)
	if errors.Is(err, scorm.ErrNoLaunchableSco) {
		return core.NewException(core.ErrInvalidSco, "", err)
	}
	if err != nil {
		return err
	}
	sco := toc.Sco
	if sc.LastAttemptLock == 1 && toc.AttemptLeft <= 0 {
		return p.Notice(c, h.Lang.Get("exceededmaxattempts", "scorm"), "alert alert-danger notification")
	}

	if err := sess.SetScormState(session.ScormState{
		ScoID:       sco.ID,
		ScormStatus: session.StatusNotInitialized,
		ScormMode:   mode,
		Attempt:     attempt,
	}); err != nil {
		return err
	}

	if _, err := h.Store.SetModuleViewed(course, cm, user.ID); err != nil {
		return err
	}

	inline := sc.Popup == 0 || displaymode == displayPopup

	var exitURL string
	if inline {
		viewreport, err := h.Auth.HasCapability(user, auth.CapScormViewReport, course, cm)
		if err != nil {
			return err
		}
		if course.Format == store.CourseFormatSingleActivity && sc.SkipView == scorm.SkipViewAlways && !viewreport {
			exitURL = h.url("/")
		} else {
			exitURL = h.courseURL(course, cm.Section)
		}
	}

	if err := p.DataForJS("scormplayerdata", playerData{
		CourseID:     sc.Course,
		CWidth:       sc.Width,
		CHeight:      sc.Height,
		PopupOptions: sc.Options,
	}); err != nil {
		return err
	}
	p.RequireJS(h.url("/mod/scorm/request.js"))
	p.RequireJS(h.url("/lib/cookies.js"))
	p.RequireJS(h.url(dm.JSPath()))

	p.StringForJS("navigation", "scorm")
	p.StringForJS("toc", "scorm")
	p.StringForJS("hide", "moodle")
	p.StringForJS("show", "moodle")
	p.StringForJS("popupsblocked", "scorm")

	data := fiber.Map{
		"TOC":             toc,
		"TOCTitle":        toc.Title,
		"ShowTOC":         inline,
		"ExitURL":         exitURL,
		"NoScriptMessage": h.Lang.Get("noscriptnoscorm", "scorm"),
		"NoPrerequisites": h.Lang.Get("noprerequisites", "scorm"),
	}
	if !inline {
		link := `<a href="` + template.HTMLEscapeString(h.courseURL(course, 0)) + `">` +
			template.HTMLEscapeString(h.Lang.Get("finishscormlinkname", "scorm")) + `</a>`
		data["FinishSCORM"] = template.HTML(h.Lang.Get("finishscorm", "scorm", link))
	}

	var name interface{} = false
	if toc.Prerequisites && sc.Popup != 0 && displaymode != displayPopup {
		name = windowName(sc.Name)
		popupParams := url.Values{}
		for k, v := range params {
			popupParams[k] = v
		}
		popupParams.Set("scoid", strconv.FormatInt(sco.ID, 10))
		popupParams.Set("display", displayPopup)
		popupParams.Set("mode", mode)
		openPopup, err := page.FunctionCall("scorm_openpopup",
			h.url("/mod/scorm/player.php?"+popupParams.Encode()), name, sc.Options, sc.Width, sc.Height)
		if err != nil {
			return err
		}
		data["PlayerJS"] = h.url("/mod/scorm/player.js")
		data["OpenPopup"] = openPopup
		data["LoadSCOURL"] = "loadSCO?id=" + strconv.FormatInt(cm.ID, 10) +
			"&scoid=" + strconv.FormatInt(sco.ID, 10) + "&mode=" + url.QueryEscape(mode)
	}

	scoes, err := h.Scorm.TOCObject(user.ID, sc, currentorg, sco.ID, mode, attempt)
	if err != nil {
		return err
	}
	adlnav, err := scorm.ADLNavJSON(scoes.Tree)
	if err != nil {
		return err
	}

	if inline {
		toctitle := toc.Title
		if toctitle == "" {
			toctitle = h.Lang.Get("toc", "scorm")
			data["TOCTitle"] = toctitle
		}
		if err := p.JSInitCall(page.Module{Name: "mod_scorm", FullPath: h.url("/mod/scorm/module.js")},
			"M.mod_scorm.init", sc.Nav, sc.NavPositionLeft, sc.NavPositionTop, sc.HideTOC,
			collapsetocwinsize, toctitle, name, sco.ID, adlnav); err != nil {
			return err
		}
	}
	if forcejs {
		data["ForceJSMessage"] = h.Lang.Get("forcejavascriptmessage", "scorm")
	}

	bootstrap, err := h.datamodelScript(dm, user, sc, cm, sco, attempt, mode, currentorg)
	if err != nil {
		return err
	}
	data["DatamodelScript"] = bootstrap

	if err := p.Keepalive("networkdropped", "scorm", keepaliveFrequency, keepaliveTimeout, h.url("/api/session/keepalive")); err != nil {
		return err
	}

	if err := p.Render(c, "player", data); err != nil {
		return err
	}

	trackSco := scoid
	if trackSco == 0 {
		trackSco = sco.ID
	}
	if _, err := h.Scorm.TrackStartTime(user.ID, sc.ID, trackSco, attempt); err != nil {
		return err
	}
	core.Log.Debug("player rendered",
		zap.Int64("user", user.ID), zap.Int64("scorm", sc.ID), zap.Int64("sco", sco.ID),
		zap.Int("attempt", attempt), zap.String("mode", mode))
	return nil
}

// resolveScorm finds course, module and package from either the course
// module id or the scorm instance id.
func (h *Handler) resolveScorm(id, a int64) (*store.Course, *store.CourseModule, *store.Scorm, error) {
	notFound := func(err error, kind *core.Exception) error {
		if errors.Is(err, store.ErrNotFound) {
			return core.NewException(kind, "", err)
		}
		return err
	}
	switch {
	case id != 0:
		cm, err := h.Store.CourseModule("scorm", id, 0)
		if err != nil {
			return nil, nil, nil, notFound(err, core.ErrInvalidCourseModule)
		}
		course, err := h.Store.Course(cm.Course)
		if err != nil {
			return nil, nil, nil, notFound(err, core.ErrCourseMisconf)
		}
		sc, err := h.Store.Scorm(cm.Instance)
		if err != nil {
			return nil, nil, nil, notFound(err, core.ErrInvalidCourseModule)
		}
		return course, cm, sc, nil
	case a != 0:
		sc, err := h.Store.Scorm(a)
		if err != nil {
			return nil, nil, nil, notFound(err, core.ErrInvalidCourseModule)
		}
		course, err := h.Store.Course(sc.Course)
		if err != nil {
			return nil, nil, nil, notFound(err, core.ErrCourseMisconf)
		}
		cm, err := h.Store.CourseModuleByInstance("scorm", sc.ID, course.ID)
		if err != nil {
			return nil, nil, nil, notFound(err, core.ErrInvalidCourseModule)
		}
		return course, cm, sc, nil
	}
	return nil, nil, nil, core.NewException(core.ErrMissingParameter, "cm", nil)
}

// courseURL links to the course page, anchored at section when non-zero.
func (h *Handler) courseURL(course *store.Course, section int) string {
	u := h.url("/course/view.php?id=" + strconv.FormatInt(course.ID, 10))
	if section > 0 {
		u += "#section-" + strconv.Itoa(section)
	}
	return u
}

// windowName builds the popup window name from the package name.
func windowName(name string) string {
	name = reNotAlnum.ReplaceAllString(name, "")
	if name == "" {
		name = "DefaultPlayerWindow"
	}
	return "scorm_" + name
}

// datamodelScript instantiates the runtime API object the SCO looks up,
// seeded with the learner and the values tracked for the attempt.
func (h *Handler) datamodelScript(dm *scorm.Datamodel, user *store.User, sc *store.Scorm, cm *store.CourseModule, sco *store.ScormSco, attempt int, mode, currentorg string) (template.JS, error) {
	tracks, err := h.Store.Tracks(user.ID, sc.ID, attempt)
	if err != nil {
		return "", err
	}
	def := map[string]string{
		dm.LearnerIDElement:   user.Username,
		dm.LearnerNameElement: user.Fullname,
	}
	for _, t := range tracks {
		if t.ScoID == sco.ID {
			def[t.Element] = t.Value
		}
	}
	call, err := page.FunctionCall("new "+dm.APIConstructor, def, map[string]interface{}{
		"scormid":    sc.ID,
		"scoid":      sco.ID,
		"cmid":       cm.ID,
		"attempt":    attempt,
		"viewmode":   mode,
		"currentorg": currentorg,
		"wwwroot":    h.Config.WWWRoot,
		"hidetoc":    sc.HideTOC,
	})
	if err != nil {
		return "", err
	}
	return template.JS("var " + dm.APIName + " = " + string(call) + ";"), nil
}
