// Package session keeps per-user request state: the logged in user, the
// SCORM runtime bridge state and the mobile page flags.
package session

import (
	"encoding/json"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
)

const (
	CookieName = "scormplayer_session"

	keyUser         = "userid"
	keyScorm        = "scorm"
	keyPreservePage = "preserve_page"
	keyRedirectPage = "redirect_page"
)

// StatusNotInitialized is the runtime status before the SCO calls Initialize.
const StatusNotInitialized = "Not Initialized"

// ScormState is what the runtime bridge reads back for the open SCO.
type ScormState struct {
	ScoID       int64  `json:"scoid"`
	ScormStatus string `json:"scormstatus"`
	ScormMode   string `json:"scormmode"`
	Attempt     int    `json:"attempt"`
}

// Manager wraps the fiber session store.
type Manager struct {
	store *session.Store
}

// NewManager builds a manager over storage. A nil storage keeps sessions in
// process memory.
func NewManager(storage fiber.Storage) *Manager {
	return &Manager{
		store: session.New(session.Config{
			Storage:        storage,
			Expiration:     24 * time.Hour,
			KeyLookup:      "cookie:" + CookieName,
			CookieHTTPOnly: true,
			CookieSameSite: "Lax",
		}),
	}
}

// Get loads (or starts) the session of the request.
func (m *Manager) Get(c *fiber.Ctx) (*Session, error) {
	sess, err := m.store.Get(c)
	if err != nil {
		return nil, err
	}
	return &Session{Session: sess}, nil
}

// Session adds typed accessors to a fiber session.
type Session struct {
	*session.Session
}

// UserID returns the logged in user, 0 for none.
func (s *Session) UserID() int64 {
	switch v := s.Get(keyUser).(type) {
	case int64:
		return v
	case int:
		return int64(v)
	}
	return 0
}

func (s *Session) SetUserID(id int64) {
	s.Set(keyUser, id)
}

// ResetPageFlags clears the preserve and redirect page markers of the mobile
// app wrapper.
func (s *Session) ResetPageFlags() {
	s.Set(keyPreservePage, false)
	s.Set(keyRedirectPage, false)
}

// PageFlags returns the preserve and redirect page markers.
func (s *Session) PageFlags() (preserve, redirect bool) {
	preserve, _ = s.Get(keyPreservePage).(bool)
	redirect, _ = s.Get(keyRedirectPage).(bool)
	return preserve, redirect
}

// SetScormState replaces the runtime bridge state.
func (s *Session) SetScormState(st ScormState) error {
	b, err := json.Marshal(st)
	if err != nil {
		return err
	}
	s.Set(keyScorm, string(b))
	return nil
}

// ScormState returns the runtime bridge state, false when none was set.
func (s *Session) ScormState() (ScormState, bool) {
	var st ScormState
	raw, ok := s.Get(keyScorm).(string)
	if !ok {
		return st, false
	}
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		return st, false
	}
	return st, true
}
