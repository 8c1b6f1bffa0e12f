// Package param reads typed request parameters the way LMS pages expect:
// query first, then form body, cleaned by type.
package param

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/kiyor/scormplayer/pkg/core"
)

var (
	reLeadingInt = regexp.MustCompile(`^\s*[+-]?\d+`)
	reNotAlpha   = regexp.MustCompile(`[^a-zA-Z]`)
)

// CleanInt keeps the leading integer of v, 0 when there is none.
func CleanInt(v string) int64 {
	m := reLeadingInt.FindString(v)
	if m == "" {
		return 0
	}
	n, err := strconv.ParseInt(strings.TrimSpace(m), 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// CleanAlpha drops everything but ASCII letters.
func CleanAlpha(v string) string {
	return reNotAlpha.ReplaceAllString(v, "")
}

func lookup(c *fiber.Ctx, name string) (string, bool) {
	if v := c.Context().QueryArgs().Peek(name); v != nil {
		return string(v), true
	}
	if c.Method() == fiber.MethodPost {
		if v := c.Context().PostArgs().Peek(name); v != nil {
			return string(v), true
		}
	}
	return "", false
}

// OptionalInt returns the cleaned integer parameter or def when absent.
func OptionalInt(c *fiber.Ctx, name string, def int64) int64 {
	v, ok := lookup(c, name)
	if !ok {
		return def
	}
	return CleanInt(v)
}

// RequiredInt returns the cleaned integer parameter, failing with
// missingparameter when it is absent.
func RequiredInt(c *fiber.Ctx, name string) (int64, error) {
	v, ok := lookup(c, name)
	if !ok {
		return 0, core.NewException(core.ErrMissingParameter, name, nil)
	}
	return CleanInt(v), nil
}

// OptionalAlpha returns the letters of the parameter or def when absent.
func OptionalAlpha(c *fiber.Ctx, name, def string) string {
	v, ok := lookup(c, name)
	if !ok {
		return def
	}
	return CleanAlpha(v)
}

// OptionalRaw returns the parameter untouched or def when absent.
func OptionalRaw(c *fiber.Ctx, name, def string) string {
	v, ok := lookup(c, name)
	if !ok {
		return def
	}
	return v
}
