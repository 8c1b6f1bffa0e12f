package api

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiyor/scormplayer/pkg/core"
	"github.com/kiyor/scormplayer/pkg/scorm"
	"github.com/kiyor/scormplayer/pkg/store"
)

func TestPlayerRenders(t *testing.T) {
	s := newTestServer(t, nil)
	cookie := s.login(t, "student")

	resp, doc, body := s.get(t, "/mod/scorm/player.php?cm=100&scoid=52&display=current", cookie)
	require.Equal(t, fiber.StatusOK, resp.StatusCode, body)

	assert.Equal(t, "SAFE101: Fire Safety", doc.QuerySelector("title").Text())
	assert.Equal(t, "Safety Training", doc.QuerySelector("#page-header h1").Text())

	page := doc.QuerySelector("#scormpage")
	require.NotNil(t, page)
	assert.Equal(t, testRoot+"/course/view.php?id=10#section-2", page.Attr("data-exiturl"))
	assert.NotNil(t, doc.QuerySelector("#tocbox #scormapi-parent script#external-scormapi"))
	assert.Equal(t, "Fire Safety Course", doc.QuerySelector("#toctree .scorm-toc-title").Text())

	current := doc.QuerySelector("#toctree li.scorm_current a")
	require.NotNil(t, current)
	assert.Equal(t, "52", current.Attr("data-scoid"))
	assert.Len(t, doc.Find("#toctree a[data-scoid]"), 3)
	assert.Nil(t, doc.QuerySelector("#altfinishlink"))
	assert.Nil(t, doc.QuerySelector("#noprerequisites"))

	for _, src := range []string{
		testRoot + "/mod/scorm/request.js",
		testRoot + "/lib/cookies.js",
		testRoot + "/mod/scorm/datamodels/scorm_12.js",
	} {
		assert.Len(t, doc.Find(`head script[src="`+src+`"]`), 1, src)
	}
	assert.Len(t, doc.Find(`body script[src="`+testRoot+`/mod/scorm/module.js"]`), 1)

	assert.Contains(t, body, `var scormplayerdata = {"launch":false,"currentorg":"","sco":0,"scorm":0,"courseid":10,"cwidth":100,"cheight":500,"popupoptions":"resizable=1"};`)
	assert.Contains(t, body, `M.mod_scorm.init(1, 0, 0, 0, 767, "Fire Safety Course", false, 52, "{`)
	assert.Contains(t, body, `"popupsblocked":`)
	assert.Contains(t, body, `M.core.session.keepalive.init({"frequency":30,`)
	assert.Contains(t, body, `var API = new SCORMapi1_2({"cmi.core.student_id":"student","cmi.core.student_name":"Sam Student"}`)
	assert.NotContains(t, body, "forcejavascript")
}

// Both keys of the same instance resolve the same records and page.
func TestPlayerResolvesByModuleOrInstance(t *testing.T) {
	s := newTestServer(t, nil)

	c1, cm1, sc1, err := s.h.resolveScorm(100, 0)
	require.NoError(t, err)
	c2, cm2, sc2, err := s.h.resolveScorm(0, 5)
	require.NoError(t, err)
	assert.Equal(t, c1, c2)
	assert.Equal(t, cm1, cm2)
	assert.Equal(t, sc1, sc2)

	cookie := s.login(t, "student")
	_, byCM, _ := s.get(t, "/mod/scorm/player?cm=100&scoid=52&display=current", cookie)
	_, byA, _ := s.get(t, "/mod/scorm/player?a=5&scoid=52&display=current", cookie)
	assert.Equal(t, byCM.QuerySelector("title").Text(), byA.QuerySelector("title").Text())
	assert.Equal(t, byCM.QuerySelector("#scormpage").Attr("data-exiturl"), byA.QuerySelector("#scormpage").Attr("data-exiturl"))
	assert.Equal(t, byCM.QuerySelector("#toctree").String(), byA.QuerySelector("#toctree").String())
}

func TestPlayerCurrentOrg(t *testing.T) {
	s := newTestServer(t, nil)
	cookie := s.login(t, "student")

	_, doc, _ := s.get(t, "/mod/scorm/player?cm=100&scoid=52&currentorg=ORG-1", cookie)
	href := doc.QuerySelector("#toctree a[data-scoid]").Attr("href")
	assert.Contains(t, href, "currentorg=ORG-1")

	resp, doc, body := s.get(t, "/mod/scorm/player?cm=100&scoid=52&currentorg=NOT-AN-ORG", cookie)
	require.Equal(t, fiber.StatusOK, resp.StatusCode, body)
	href = doc.QuerySelector("#toctree a[data-scoid]").Attr("href")
	assert.NotContains(t, href, "currentorg")
	assert.NotContains(t, body, "NOT-AN-ORG")
}

func TestPlayerHiddenModule(t *testing.T) {
	s := newTestServer(t, func(f *store.Fixture, _ *core.Config) {
		f.Modules[0].Visible = false
	})

	resp, doc, body := s.get(t, "/mod/scorm/player?cm=100&scoid=52", s.login(t, "student"))
	require.Equal(t, fiber.StatusOK, resp.StatusCode, body)
	assert.Equal(t, "Sorry, this activity is currently hidden", doc.QuerySelector("#notice").Text())
	assert.Nil(t, doc.QuerySelector("#scormpage"))
	assert.Equal(t, int64(0), s.countTracks(t, scorm.ElementStartTime))

	resp, doc, _ = s.get(t, "/mod/scorm/player?cm=100&scoid=52", s.login(t, "admin"))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.NotNil(t, doc.QuerySelector("#scormpage"))
}

func TestPlayerExceededAttempts(t *testing.T) {
	s := newTestServer(t, func(f *store.Fixture, _ *core.Config) {
		f.Scorms[0].MaxAttempt = 1
		f.Scorms[0].LastAttemptLock = 1
		f.Tracks = []store.ScormTrack{
			{UserID: 2, ScormID: 5, ScoID: 52, Attempt: 1, Element: "cmi.core.lesson_status", Value: "completed"},
			{UserID: 2, ScormID: 5, ScoID: 53, Attempt: 1, Element: "cmi.core.lesson_status", Value: "completed"},
			{UserID: 2, ScormID: 5, ScoID: 54, Attempt: 1, Element: "cmi.core.lesson_status", Value: "completed"},
		}
	})

	resp, doc, body := s.get(t, "/mod/scorm/player?cm=100&scoid=52&newattempt=on", s.login(t, "student"))
	require.Equal(t, fiber.StatusOK, resp.StatusCode, body)
	notice := doc.QuerySelector("#notice")
	require.NotNil(t, notice)
	assert.Equal(t, "You have reached the maximum number of attempts.", notice.Text())
	assert.True(t, notice.HasClass("notification"))
	assert.Nil(t, doc.QuerySelector("#scormpage"))
	assert.Equal(t, int64(0), s.countTracks(t, scorm.ElementStartTime))
}

func TestPlayerReopenUnfinishedAttempt(t *testing.T) {
	s := newTestServer(t, func(f *store.Fixture, _ *core.Config) {
		f.Scorms[0].MaxAttempt = 1
		f.Scorms[0].LastAttemptLock = 1
	})
	cookie := s.login(t, "student")

	for i := 0; i < 2; i++ {
		resp, doc, body := s.get(t, "/mod/scorm/player?cm=100&scoid=52", cookie)
		require.Equal(t, fiber.StatusOK, resp.StatusCode, body)
		assert.NotNil(t, doc.QuerySelector("#scormpage"), "visit %d", i+1)
		assert.Nil(t, doc.QuerySelector("#notice"), "visit %d", i+1)
	}
}

func TestPlayerAttemptsOverLimit(t *testing.T) {
	s := newTestServer(t, func(f *store.Fixture, _ *core.Config) {
		f.Scorms[0].MaxAttempt = 1
		f.Scorms[0].LastAttemptLock = 1
		f.Tracks = []store.ScormTrack{
			{UserID: 2, ScormID: 5, ScoID: 52, Attempt: 1, Element: "cmi.core.lesson_status", Value: "completed"},
			{UserID: 2, ScormID: 5, ScoID: 52, Attempt: 2, Element: "cmi.core.lesson_status", Value: "incomplete"},
		}
	})

	_, doc, body := s.get(t, "/mod/scorm/player?cm=100&scoid=52", s.login(t, "student"))
	notice := doc.QuerySelector("#notice")
	require.NotNil(t, notice, body)
	assert.True(t, notice.HasClass("notification"))
	assert.Nil(t, doc.QuerySelector("#scormpage"))
}

func TestPlayerTracksStartTimeOnce(t *testing.T) {
	s := newTestServer(t, nil)
	cookie := s.login(t, "student")

	resp, _, body := s.get(t, "/mod/scorm/player?cm=100&scoid=52", cookie)
	require.Equal(t, fiber.StatusOK, resp.StatusCode, body)

	tracks, err := s.store.Tracks(2, 5, 1)
	require.NoError(t, err)
	require.Len(t, tracks, 1)
	assert.Equal(t, int64(52), tracks[0].ScoID)
	assert.Equal(t, scorm.ElementStartTime, tracks[0].Element)
	assert.Equal(t, "1700000000", tracks[0].Value)

	resp, _, _ = s.get(t, "/mod/scorm/player?cm=100&scoid=52", cookie)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, int64(1), s.countTracks(t, scorm.ElementStartTime))

	viewed, err := s.store.ModuleViewed(100, 2)
	require.NoError(t, err)
	assert.True(t, viewed)

	resp, body = s.do(t, "GET", "/api/session/scorm", cookie)
	require.Equal(t, fiber.StatusOK, resp.StatusCode, body)
	var out struct {
		Code int `json:"code"`
		Data struct {
			ScoID       int64  `json:"scoid"`
			ScormStatus string `json:"scormstatus"`
			ScormMode   string `json:"scormmode"`
			Attempt     int    `json:"attempt"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &out))
	assert.Equal(t, int64(52), out.Data.ScoID)
	assert.Equal(t, "Not Initialized", out.Data.ScormStatus)
	assert.Equal(t, scorm.ModeNormal, out.Data.ScormMode)
	assert.Equal(t, 1, out.Data.Attempt)
}

func TestPlayerLaunchableSco(t *testing.T) {
	s := newTestServer(t, nil)
	cookie := s.login(t, "student")

	_, doc, _ := s.get(t, "/mod/scorm/player?cm=100&scoid=51", cookie)
	assert.Equal(t, "52", doc.QuerySelector("#toctree li.scorm_current a").Attr("data-scoid"))

	tracks, err := s.store.Tracks(2, 5, 1)
	require.NoError(t, err)
	require.Len(t, tracks, 1)
	assert.Equal(t, int64(52), tracks[0].ScoID)
}

func TestPlayerWithoutScoTracksCurrentSco(t *testing.T) {
	s := newTestServer(t, nil)

	resp, doc, body := s.get(t, "/mod/scorm/player?cm=100&scoid=0", s.login(t, "student"))
	require.Equal(t, fiber.StatusOK, resp.StatusCode, body)
	assert.Equal(t, "52", doc.QuerySelector("#toctree li.scorm_current a").Attr("data-scoid"))

	tracks, err := s.store.Tracks(2, 5, 1)
	require.NoError(t, err)
	require.Len(t, tracks, 1)
	assert.Equal(t, int64(52), tracks[0].ScoID)
	assert.Equal(t, scorm.ElementStartTime, tracks[0].Element)
}

func TestPlayerErrors(t *testing.T) {
	s := newTestServer(t, func(f *store.Fixture, _ *core.Config) {
		f.Modules = append(f.Modules, store.CourseModule{ID: 101, Course: 77, Module: "scorm", Instance: 5})
	})
	cookie := s.login(t, "student")

	for _, tc := range []struct {
		path   string
		status int
		code   string
	}{
		{"/mod/scorm/player?cm=100", fiber.StatusBadRequest, "missingparameter"},
		{"/mod/scorm/player?scoid=52", fiber.StatusBadRequest, "missingparameter"},
		{"/mod/scorm/player?cm=999&scoid=52", fiber.StatusNotFound, "invalidcoursemodule"},
		{"/mod/scorm/player?a=999&scoid=52", fiber.StatusNotFound, "invalidcoursemodule"},
		{"/mod/scorm/player?cm=101&scoid=52", fiber.StatusNotFound, "coursemisconf"},
	} {
		resp, doc, body := s.get(t, tc.path, cookie)
		assert.Equal(t, tc.status, resp.StatusCode, tc.path)
		box := doc.QuerySelector(`[data-rel="fatalerror"]`)
		require.NotNil(t, box, body)
		assert.Equal(t, tc.code, box.Attr("data-code"), tc.path)
	}

	resp, _, body := s.get(t, "/mod/scorm/player?cm=100", cookie)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body, "A required parameter (scoid) was missing")
}

func TestPlayerLogin(t *testing.T) {
	s := newTestServer(t, nil)

	resp, _ := s.do(t, "GET", "/mod/scorm/player?cm=100&scoid=52", nil)
	assert.Equal(t, fiber.StatusFound, resp.StatusCode)
	assert.True(t, strings.HasPrefix(resp.Header.Get("Location"), testRoot+"/login?wantsurl="))

	resp, doc, _ := s.get(t, "/mod/scorm/player?cm=100&scoid=52", s.login(t, "outsider"))
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "requireloginerror", doc.QuerySelector(`[data-rel="fatalerror"]`).Attr("data-code"))

	s = newTestServer(t, func(_ *store.Fixture, cfg *core.Config) { cfg.DevLogin = false })
	resp, _ = s.do(t, "GET", "/mod/scorm/player?cm=100&scoid=52", nil)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	resp, _ = s.do(t, "GET", "/login?username=student", nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestPlayerUnavailable(t *testing.T) {
	s := newTestServer(t, func(f *store.Fixture, _ *core.Config) {
		f.Scorms[0].TimeOpen = testNow + 7*86400
	})
	resp, doc, body := s.get(t, "/mod/scorm/player?cm=100&scoid=52", s.login(t, "student"))
	require.Equal(t, fiber.StatusOK, resp.StatusCode, body)
	assert.True(t, strings.HasPrefix(doc.QuerySelector("#notice").Text(), "Sorry, this activity is not available until "))
	assert.Nil(t, doc.QuerySelector("#scormpage"))
	assert.Equal(t, int64(0), s.countTracks(t, scorm.ElementStartTime))
}

func TestPlayerPopup(t *testing.T) {
	s := newTestServer(t, func(f *store.Fixture, _ *core.Config) {
		f.Scorms[0].Popup = 1
		f.Scorms[0].Name = "Fire Safety!"
	})
	cookie := s.login(t, "student")

	resp, doc, body := s.get(t, "/mod/scorm/player?cm=100&scoid=52&display=current", cookie)
	require.Equal(t, fiber.StatusOK, resp.StatusCode, body)
	finish := doc.QuerySelector("#altfinishlink a")
	require.NotNil(t, finish)
	assert.Equal(t, testRoot+"/course/view.php?id=10", finish.Attr("href"))
	assert.Equal(t, "", doc.QuerySelector("#scormpage").Attr("data-exiturl"))
	assert.Nil(t, doc.QuerySelector("#toctree ul"))
	assert.Len(t, doc.Find(`script[src="`+testRoot+`/mod/scorm/player.js"]`), 1)
	assert.Contains(t, body, `scorm_openpopup("`+testRoot+`/mod/scorm/player.php?cm=100\u0026display=popup\u0026mode=normal\u0026scoid=52", "scorm_FireSafety", "resizable=1", 100, 500)`)
	assert.Contains(t, body, `src="loadSCO?id=100&amp;scoid=52&amp;mode=normal"`)
	assert.NotContains(t, body, "M.mod_scorm.init")

	resp, doc, body = s.get(t, "/mod/scorm/player?cm=100&scoid=52&display=popup", cookie)
	require.Equal(t, fiber.StatusOK, resp.StatusCode, body)
	assert.Nil(t, doc.QuerySelector("#page-header"))
	assert.NotNil(t, doc.QuerySelector("#toctree ul"))
	assert.NotContains(t, body, "scorm_openpopup(")
	assert.Contains(t, body, `M.mod_scorm.init(1, 0, 0, 0, 767, "Fire Safety Course", false, 52,`)
}

func TestPlayerPrerequisites(t *testing.T) {
	s := newTestServer(t, func(f *store.Fixture, _ *core.Config) {
		f.Scorms[0].Popup = 1
	})
	cookie := s.login(t, "student")

	_, doc, body := s.get(t, "/mod/scorm/player?cm=100&scoid=53&display=current", cookie)
	assert.Equal(t, "Sorry but you don't have the required prerequisites to access this activity.",
		doc.QuerySelector("#noprerequisites").Text())
	assert.NotContains(t, body, "scorm_openpopup(")

	_, doc, _ = s.get(t, "/mod/scorm/player?cm=100&scoid=53&display=current&mode=browse", cookie)
	assert.Nil(t, doc.QuerySelector("#noprerequisites"))
}

func TestPlayerSettings(t *testing.T) {
	s := newTestServer(t, func(f *store.Fixture, cfg *core.Config) {
		cfg.Scorm.ForceJavascript = true
		cfg.Scorm.CollapseTOCWinSize = 1024
		f.Scorms[0].Version = "SCORM_1.3"
		f.Scorms[0].HideTOC = scorm.TOCHidden
		f.Courses[0].Format = store.CourseFormatSingleActivity
		f.Scorms[0].SkipView = scorm.SkipViewAlways
	})
	cookie := s.login(t, "student")

	resp, doc, body := s.get(t, "/mod/scorm/player?cm=100&scoid=52&display=current", cookie)
	require.Equal(t, fiber.StatusOK, resp.StatusCode, body)
	assert.True(t, doc.QuerySelector("body").HasClass("forcejavascript"))
	assert.Contains(t, body, "forcejavascriptmessage")
	assert.Len(t, doc.Find(`head script[src="`+testRoot+`/mod/scorm/datamodels/scorm_13.js"]`), 1)
	assert.Contains(t, body, `var API_1484_11 = new SCORMapi1_3({"cmi.learner_id":"student","cmi.learner_name":"Sam Student"}`)
	assert.Contains(t, body, `M.mod_scorm.init(1, 0, 0, 1, 1024, `)
	assert.Equal(t, testRoot+"/", doc.QuerySelector("#scormpage").Attr("data-exiturl"))
}

func TestPlayerResumesTrackedValues(t *testing.T) {
	s := newTestServer(t, func(f *store.Fixture, _ *core.Config) {
		f.Tracks = []store.ScormTrack{
			{UserID: 2, ScormID: 5, ScoID: 52, Attempt: 1, Element: "cmi.core.lesson_location", Value: "page-3"},
			{UserID: 2, ScormID: 5, ScoID: 53, Attempt: 1, Element: "cmi.core.lesson_location", Value: "other-sco"},
		}
	})
	_, _, body := s.get(t, "/mod/scorm/player?cm=100&scoid=52", s.login(t, "student"))
	assert.Contains(t, body, `"cmi.core.lesson_location":"page-3"`)
	assert.NotContains(t, body, "other-sco")
}
