package page

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/kiyor/scormplayer/pkg/xnode"
)

// Pretty reindents HTML responses. Meant for development only.
func Pretty() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := c.Next(); err != nil {
			return err
		}
		if !strings.HasPrefix(string(c.Response().Header.ContentType()), fiber.MIMETextHTML) {
			return nil
		}
		n, err := xnode.NewNode(c.Response().Body())
		if err != nil {
			return nil
		}
		c.Response().SetBodyString(n.PrettyPrintHTML())
		return nil
	}
}

// StripTags returns the text content of an HTML fragment.
func StripTags(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return s
	}
	n, err := xnode.NewNode([]byte("<body>" + s + "</body>"))
	if err != nil {
		return s
	}
	body := n.QuerySelector("body")
	if body == nil {
		return s
	}
	return body.RawText()
}
