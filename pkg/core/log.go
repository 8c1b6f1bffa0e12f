package core

import (
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/kiyor/terminal/color"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log is the process logger. It starts as a no-op so packages can log from
// tests without setup; cmd/scormplayer replaces it through InitLogger.
var Log = zap.NewNop()

// InitLogger builds a console logger at the given level ("debug", "info", ...).
func InitLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level %q: %w", level, err)
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.DisableStacktrace = true
	l, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	Log = l
	return l, nil
}

// LogHandler writes one access log line per request.
type LogHandler struct {
	l *log.Logger
}

// NewLogHandler creates a LogHandler writing to stdout.
func NewLogHandler() *LogHandler {
	return &LogHandler{
		l: log.New(os.Stdout, color.Sprint("@{g}[http]@{|} "), log.LstdFlags),
	}
}

// Set allows configuring the logger's output, prefix, and flags.
func (l *LogHandler) Set(out io.Writer, prefix string, flag int) {
	l.l = log.New(out, prefix, flag)
}

// Handler is the fiber middleware.
func (l *LogHandler) Handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		t1 := time.Now()
		err := c.Next()
		status := c.Response().StatusCode()
		if err != nil {
			status = AsException(err).Status
		}
		reqURI := c.OriginalURL()
		ua := c.Get(fiber.HeaderUserAgent)
		l.l.Println(fmt.Sprintf("%v %v %v %v %v %v '%v'", c.IP(), status, len(c.Response().Body()), c.Method(), reqURI, time.Since(t1), ua))
		return err
	}
}
