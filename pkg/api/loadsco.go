package api

import (
	"errors"
	"net/url"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/kiyor/scormplayer/pkg/core"
	"github.com/kiyor/scormplayer/pkg/param"
	"github.com/kiyor/scormplayer/pkg/scorm"
	"github.com/kiyor/scormplayer/pkg/session"
	"github.com/kiyor/scormplayer/pkg/store"
)

// LoadSCOFiber sends the browser to the launch URL of a SCO.
func (h *Handler) LoadSCOFiber(c *fiber.Ctx) error {
	id := param.OptionalInt(c, "id", 0)
	a := param.OptionalInt(c, "a", 0)
	scoid := param.OptionalInt(c, "scoid", 0)
	mode := param.OptionalAlpha(c, "mode", scorm.ModeNormal)

	course, cm, sc, err := h.resolveScorm(id, a)
	if err != nil {
		return err
	}
	sess, err := h.Sessions.Get(c)
	if err != nil {
		return err
	}
	if _, err := h.Auth.RequireLogin(sess.UserID(), course, cm); err != nil {
		return err
	}

	sco, err := h.launchSco(sc, scoid)
	if err != nil {
		return err
	}

	st, ok := sess.ScormState()
	if !ok {
		st = session.ScormState{ScormStatus: session.StatusNotInitialized, ScormMode: mode}
	}
	st.ScoID = sco.ID
	if err := sess.SetScormState(st); err != nil {
		return err
	}
	if err := sess.Save(); err != nil {
		return err
	}

	return c.Redirect(h.launchURL(sc, sco))
}

// launchSco returns scoid when it is launchable in sc, else the first
// launchable item of the package.
func (h *Handler) launchSco(sc *store.Scorm, scoid int64) (*store.ScormSco, error) {
	if scoid != 0 {
		sco, err := h.Store.Sco(scoid)
		if err == nil && sco.Scorm == sc.ID && sco.Launchable() {
			return sco, nil
		}
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
	}
	sco, err := h.Store.FirstLaunchableSco(sc.ID, 0)
	if errors.Is(err, store.ErrNotFound) {
		return nil, core.NewException(core.ErrInvalidSco, strconv.FormatInt(scoid, 10), err)
	}
	return sco, err
}

// launchURL resolves the launch of sco: absolute URLs are used as they are,
// relative ones point into the package content. Manifest parameters are
// appended as a query string.
func (h *Handler) launchURL(sc *store.Scorm, sco *store.ScormSco) string {
	launch := sco.Launch
	if u, err := url.Parse(launch); err != nil || !u.IsAbs() {
		launch = h.url("/pluginfile/" + strconv.FormatInt(sc.ID, 10) + "/content/" + strings.TrimPrefix(launch, "/"))
	}
	parameters := strings.TrimPrefix(sco.GetData()["parameters"], "?")
	if parameters == "" {
		return launch
	}
	if strings.Contains(launch, "?") {
		return launch + "&" + parameters
	}
	return launch + "?" + parameters
}
