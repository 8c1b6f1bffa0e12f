package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/kiyor/scormplayer/pkg/core"
)

// ApiScormSessionFiber returns the runtime bridge state of the open SCO.
func (h *Handler) ApiScormSessionFiber(c *fiber.Ctx) error {
	sess, err := h.Sessions.Get(c)
	if err != nil {
		return err
	}
	if sess.UserID() == 0 {
		return core.ErrRequireLogin
	}
	st, ok := sess.ScormState()
	if !ok {
		return NewErrResp(c, fiber.StatusNotFound, 2, h.Lang.Get("nosession", "scorm"))
	}
	return NewResp(c, st)
}

// ApiKeepaliveFiber extends the session lifetime.
func (h *Handler) ApiKeepaliveFiber(c *fiber.Ctx) error {
	sess, err := h.Sessions.Get(c)
	if err != nil {
		return err
	}
	if sess.UserID() == 0 {
		return core.ErrRequireLogin
	}
	if err := sess.Save(); err != nil {
		return err
	}
	return NewResp(c, "ok")
}
