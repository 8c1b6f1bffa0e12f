package api

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/kiyor/scormplayer/pkg/core"
	"github.com/kiyor/scormplayer/pkg/store"
)

// LoginFiber logs in the user named by the username parameter. It only
// exists for development setups.
func (h *Handler) LoginFiber(c *fiber.Ctx) error {
	if !h.Config.DevLogin {
		return fiber.ErrNotFound
	}
	username := strings.TrimSpace(c.Query("username"))
	wantsurl := c.Query("wantsurl", h.url("/"))
	if !localURL(wantsurl, h.Config.WWWRoot) {
		wantsurl = h.url("/")
	}
	if username == "" {
		return core.NewException(core.ErrMissingParameter, "username", nil)
	}
	user, err := h.Store.UserByName(username)
	if errors.Is(err, store.ErrNotFound) {
		return core.NewException(core.ErrRequireLoginError, username, err)
	}
	if err != nil {
		return err
	}

	sess, err := h.Sessions.Get(c)
	if err != nil {
		return err
	}
	if err := sess.Regenerate(); err != nil {
		return err
	}
	sess.SetUserID(user.ID)
	if err := sess.Save(); err != nil {
		return err
	}
	core.Log.Info("dev login", zap.String("username", user.Username), zap.Int64("user", user.ID))
	return c.Redirect(wantsurl)
}

// localURL reports whether u stays on this site.
func localURL(u, wwwroot string) bool {
	if strings.HasPrefix(u, "//") || strings.HasPrefix(u, "/\\") {
		return false
	}
	return strings.HasPrefix(u, "/") || (wwwroot != "" && strings.HasPrefix(u, wwwroot+"/"))
}
