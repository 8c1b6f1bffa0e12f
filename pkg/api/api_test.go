package api

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/kiyor/scormplayer/pkg/core"
	"github.com/kiyor/scormplayer/pkg/session"
	"github.com/kiyor/scormplayer/pkg/store"
	"github.com/kiyor/scormplayer/pkg/xnode"
)

const (
	testRoot = "http://lms.test"
	testNow  = int64(1700000000)
)

func testFixture() *store.Fixture {
	item := func(id int64, parent, identifier, launch string, sort int) store.FixtureSco {
		it := store.FixtureSco{ScormSco: store.ScormSco{
			ID: id, Scorm: 5, Organization: "ORG-1", Parent: parent,
			Identifier: identifier, Launch: launch, Title: identifier, SortOrder: sort,
		}}
		if launch != "" {
			it.ScormType = store.ScormTypeSco
		}
		return it
	}
	org := item(50, "/", "ORG-1", "", 1)
	org.Organization = ""
	org.Title = "Fire Safety Course"
	second := item(53, "ITEM-1", "SCO-2", "lesson2.html", 4)
	second.Data = map[string]string{"prerequisites": "SCO-1", "parameters": "?chapter=2"}
	external := item(54, "ITEM-1", "SCO-3", "https://cdn.example.com/sco3/start.html", 5)

	return &store.Fixture{
		Users: []store.User{
			{ID: 1, Username: "admin", Fullname: "Site Admin", SiteAdmin: true},
			{ID: 2, Username: "student", Fullname: "Sam Student"},
			{ID: 3, Username: "outsider", Fullname: "Olly Outsider"},
		},
		Courses: []store.Course{
			{ID: 10, Fullname: "Safety Training", Shortname: "SAFE101", Format: "topics", Visible: true, EnableCompletion: true},
		},
		Modules: []store.CourseModule{
			{ID: 100, Course: 10, Module: "scorm", Instance: 5, Section: 2, Visible: true,
				Completion: store.CompletionTrackingAutomatic, CompletionView: true},
		},
		Enrolments: []store.Enrolment{{UserID: 2, CourseID: 10}},
		Scorms: []store.Scorm{
			{ID: 5, Course: 10, Name: "Fire Safety", Version: "SCORM_1.2", Width: 100, Height: 500,
				Options: "resizable=1", Nav: 1},
		},
		Scoes: []store.FixtureSco{
			org,
			item(51, "ORG-1", "ITEM-1", "", 2),
			item(52, "ITEM-1", "SCO-1", "index.html", 3),
			second,
			external,
		},
	}
}

type testServer struct {
	app   *fiber.App
	h     *Handler
	store *store.Store
}

// newTestServer seeds the fixture after mutate has adjusted it.
func newTestServer(t *testing.T, mutate func(f *store.Fixture, cfg *core.Config)) *testServer {
	t.Helper()
	st, err := store.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	contentDir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(contentDir, "5", "content"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(contentDir, "5", "content", "index.html"), []byte("lesson one"), 0644))

	cfg := core.DefaultConfig()
	cfg.WWWRoot = testRoot
	cfg.ContentDir = contentDir
	cfg.DevLogin = true

	f := testFixture()
	if mutate != nil {
		mutate(f, &cfg)
	}
	require.NoError(t, st.Seed(f))

	h := NewHandler(cfg, st, session.NewManager(nil))
	h.Scorm.SetClock(func() time.Time { return time.Unix(testNow, 0) })
	return &testServer{app: NewApp(h), h: h, store: st}
}

func (s *testServer) do(t *testing.T, method, path string, cookie *http.Cookie) (*http.Response, string) {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(b)
}

// get fetches path and parses the response as HTML.
func (s *testServer) get(t *testing.T, path string, cookie *http.Cookie) (*http.Response, *xnode.Node, string) {
	t.Helper()
	resp, body := s.do(t, "GET", path, cookie)
	doc, err := xnode.NewNode([]byte(body))
	require.NoError(t, err)
	return resp, doc, body
}

func (s *testServer) login(t *testing.T, username string) *http.Cookie {
	t.Helper()
	resp, _ := s.do(t, "GET", "/login?username="+username, nil)
	require.Equal(t, fiber.StatusFound, resp.StatusCode)
	for _, c := range resp.Cookies() {
		if c.Name == session.CookieName {
			return c
		}
	}
	t.Fatalf("login %s: no session cookie", username)
	return nil
}

func (s *testServer) countTracks(t *testing.T, element string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, s.store.Model(&store.ScormTrack{}).Where("element = ?", element).Count(&n).Error)
	return n
}
