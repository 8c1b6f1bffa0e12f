package api

import (
	"errors"
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/kiyor/scormplayer/pkg/auth"
	"github.com/kiyor/scormplayer/pkg/content"
	"github.com/kiyor/scormplayer/pkg/core"
	"github.com/kiyor/scormplayer/pkg/lang"
	"github.com/kiyor/scormplayer/pkg/page"
	"github.com/kiyor/scormplayer/pkg/scorm"
	"github.com/kiyor/scormplayer/pkg/session"
	"github.com/kiyor/scormplayer/pkg/store"
)

type Resp struct {
	Code int         `json:"code"`
	Data interface{} `json:"data"`
}

// NewResp sends a standard JSON response.
func NewResp(c *fiber.Ctx, data interface{}, code ...int) error {
	appCode := 0
	if len(code) > 0 {
		appCode = code[0]
	}
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSONCharsetUTF8)
	c.Set(fiber.HeaderCacheControl, "no-store")
	return c.Status(fiber.StatusOK).JSON(&Resp{
		Code: appCode,
		Data: data,
	})
}

// NewErrResp sends a JSON error response.
func NewErrResp(c *fiber.Ctx, httpStatusCode int, appErrorCode int, errMsg string) error {
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSONCharsetUTF8)
	return c.Status(httpStatusCode).JSON(&Resp{
		Code: appErrorCode,
		Data: errMsg,
	})
}

// Handler serves the player and its supporting routes.
type Handler struct {
	Config   core.Config
	Store    *store.Store
	Scorm    *scorm.Library
	Auth     *auth.Checker
	Sessions *session.Manager
	Lang     lang.Pack
}

// NewHandler wires the handler dependencies over an opened store.
func NewHandler(cfg core.Config, st *store.Store, sessions *session.Manager) *Handler {
	return &Handler{
		Config:   cfg,
		Store:    st,
		Scorm:    scorm.New(st, cfg.WWWRoot),
		Auth:     auth.NewChecker(st),
		Sessions: sessions,
		Lang:     lang.Default(),
	}
}

// NewApp builds the fiber app. Middleware runs before every route.
func NewApp(h *Handler, middleware ...fiber.Handler) *fiber.App {
	app := fiber.New(fiber.Config{
		Views:                 page.NewEngine(),
		ErrorHandler:          h.ErrorHandler,
		DisableStartupMessage: true,
	})
	for _, m := range middleware {
		app.Use(m)
	}
	if h.Config.Pretty {
		app.Use(page.Pretty())
	}
	h.Register(app)
	return app
}

// Register adds every route. Static assets go last so they never shadow a
// handler.
func (h *Handler) Register(app *fiber.App) {
	app.Get("/mod/scorm/player.php", h.RenderPlayerFiber)
	app.Get("/mod/scorm/player", h.RenderPlayerFiber)
	app.Get("/mod/scorm/loadSCO.php", h.LoadSCOFiber)
	app.Get("/mod/scorm/loadSCO", h.LoadSCOFiber)
	app.Get("/pluginfile/*", h.requireUser, content.NewHandler("/pluginfile", h.Config.ContentDir))
	app.Get("/login", h.LoginFiber)
	app.Get("/healthz", func(c *fiber.Ctx) error { return NewResp(c, "ok") })

	apiGroup := app.Group("/api")
	apiGroup.Get("/session/scorm", h.ApiScormSessionFiber)
	apiGroup.Get("/session/keepalive", h.ApiKeepaliveFiber)
	apiGroup.Post("/session/keepalive", h.ApiKeepaliveFiber)

	if h.Config.AssetsDir != "" {
		app.Static("/", h.Config.AssetsDir)
	}
}

// url prefixes path with the configured site root.
func (h *Handler) url(path string) string {
	return h.Config.WWWRoot + path
}

// ErrorHandler renders exceptions as an error page, or JSON under /api.
func (h *Handler) ErrorHandler(c *fiber.Ctx, err error) error {
	e := core.AsException(err)
	if e.Status >= fiber.StatusInternalServerError {
		core.Log.Error("request failed", zap.String("path", c.Path()), zap.Error(err))
	} else {
		core.Log.Debug("request rejected", zap.String("path", c.Path()), zap.String("code", e.Code))
	}

	message := h.Lang.Get(e.Code, "moodle", e.A)
	if strings.HasPrefix(c.Path(), "/api/") {
		return NewErrResp(c, e.Status, 1, message)
	}
	if errors.Is(e, core.ErrRequireLogin) && h.Config.DevLogin {
		return c.Redirect(h.url("/login?wantsurl=" + url.QueryEscape(c.OriginalURL())))
	}

	p := page.New(h.Lang)
	p.SetTitle(h.Lang.Get("error", "moodle"))
	p.SetHeading(h.Lang.Get("error", "moodle"))
	c.Status(e.Status)
	return p.Render(c, "error", fiber.Map{
		"Code":          e.Code,
		"Message":       message,
		"ContinueURL":   h.url("/"),
		"ContinueLabel": h.Lang.Get("continue", "moodle"),
	})
}

// requireUser rejects requests without a logged in session user.
func (h *Handler) requireUser(c *fiber.Ctx) error {
	sess, err := h.Sessions.Get(c)
	if err != nil {
		return err
	}
	if sess.UserID() == 0 {
		return core.ErrRequireLogin
	}
	return c.Next()
}
