// Package page assembles LMS style HTML pages: a layout with head and footer
// script requirements around a body template.
package page

import (
	"embed"
	"encoding/json"
	"html/template"
	"io/fs"
	"net/http"
	"sort"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/template/html/v2"

	"github.com/kiyor/scormplayer/pkg/lang"
)

// Layouts.
const (
	LayoutStandard = "standard"
	LayoutEmbedded = "embedded"
)

//go:embed templates
var templates embed.FS

// NewEngine returns the template engine over the embedded templates, using
// [[ ]] delimiters so pages can carry client-side {{ }} markup untouched.
func NewEngine() *html.Engine {
	sub, err := fs.Sub(templates, "templates")
	if err != nil {
		panic(err)
	}
	engine := html.NewFileSystem(http.FS(sub), ".html")
	engine.Delims("[[", "]]")
	return engine
}

// Module is a client-side module loaded before its init call runs.
type Module struct {
	Name     string
	FullPath string
}

type jsVar struct {
	name  string
	value json.RawMessage
}

// Page collects what a layout needs around the body: title, heading, body
// classes and script requirements.
type Page struct {
	URL     string
	Layout  string
	Title   string
	Heading string

	lang          lang.Pack
	bodyClasses   []string
	jsData        []jsVar
	jsFiles       []string
	footerJSFiles []string
	strings       map[string]map[string]string
	initCalls     []string
}

// New starts a standard layout page.
func New(pack lang.Pack) *Page {
	return &Page{
		Layout:  LayoutStandard,
		lang:    pack,
		strings: make(map[string]map[string]string),
	}
}

func (p *Page) SetURL(u string)           { p.URL = u }
func (p *Page) SetPageLayout(l string)    { p.Layout = l }
func (p *Page) SetTitle(title string)     { p.Title = title }
func (p *Page) SetHeading(heading string) { p.Heading = heading }

// AddBodyClass appends a class to the body element once.
func (p *Page) AddBodyClass(class string) {
	for _, c := range p.bodyClasses {
		if c == class {
			return
		}
	}
	p.bodyClasses = append(p.bodyClasses, class)
}

// BodyClass is the class attribute of the body element.
func (p *Page) BodyClass() string {
	return strings.Join(append([]string{"path-mod-scorm"}, p.bodyClasses...), " ")
}

// DataForJS defines a global variable holding v as JSON in the page head.
func (p *Page) DataForJS(name string, v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	p.jsData = append(p.jsData, jsVar{name: name, value: b})
	return nil
}

// RequireJS loads a script in the page head.
func (p *Page) RequireJS(path string) {
	for _, f := range p.jsFiles {
		if f == path {
			return
		}
	}
	p.jsFiles = append(p.jsFiles, path)
}

// JSFiles are the head scripts in request order.
func (p *Page) JSFiles() []string { return p.jsFiles }

// FooterJSFiles are the module scripts loaded before the init calls.
func (p *Page) FooterJSFiles() []string { return p.footerJSFiles }

// StringForJS makes a language string available to scripts as M.str.
func (p *Page) StringForJS(identifier, component string) {
	if p.strings[component] == nil {
		p.strings[component] = make(map[string]string)
	}
	p.strings[component][identifier] = p.lang.Get(identifier, component)
}

// JSInitCall runs fn(args...) once the module script is loaded.
func (p *Page) JSInitCall(module Module, fn string, args ...interface{}) error {
	call, err := FunctionCall(fn, args...)
	if err != nil {
		return err
	}
	if module.FullPath != "" {
		found := false
		for _, f := range p.footerJSFiles {
			found = found || f == module.FullPath
		}
		if !found {
			p.footerJSFiles = append(p.footerJSFiles, module.FullPath)
		}
	}
	p.initCalls = append(p.initCalls, string(call))
	return nil
}

// Keepalive pings url every frequency seconds and shows the message string
// when a ping takes longer than timeout seconds.
func (p *Page) Keepalive(identifier, component string, frequency, timeout int, url string) error {
	return p.JSInitCall(Module{}, "M.core.session.keepalive.init", map[string]interface{}{
		"url":       url,
		"message":   p.lang.Get(identifier, component),
		"frequency": frequency,
		"timeout":   timeout,
	})
}

// HeadScript declares the M namespace and the page data variables.
func (p *Page) HeadScript() template.JS {
	var b strings.Builder
	b.WriteString("var M = M || {}; M.cfg = M.cfg || {};")
	for _, v := range p.jsData {
		b.WriteString("\nvar ")
		b.WriteString(v.name)
		b.WriteString(" = ")
		b.Write(v.value)
		b.WriteString(";")
	}
	return template.JS(b.String())
}

// FooterScript publishes the strings and runs the init calls.
func (p *Page) FooterScript() template.JS {
	var b strings.Builder
	strs, _ := json.Marshal(p.strings)
	b.WriteString("M.str = ")
	b.Write(strs)
	b.WriteString(";")
	for _, c := range p.initCalls {
		b.WriteString("\n")
		b.WriteString(c)
		b.WriteString(";")
	}
	return template.JS(b.String())
}

// InitCalls returns the queued init calls.
func (p *Page) InitCalls() []string { return p.initCalls }

// StringsForJS returns the identifiers published to scripts, sorted.
func (p *Page) StringsForJS() []string {
	var out []string
	for component, ids := range p.strings {
		for id := range ids {
			out = append(out, component+"/"+id)
		}
	}
	sort.Strings(out)
	return out
}

// Render executes the body template name inside the page layout.
func (p *Page) Render(c *fiber.Ctx, name string, data fiber.Map) error {
	if data == nil {
		data = fiber.Map{}
	}
	data["Page"] = p
	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.Render(name, data, "layouts/"+p.Layout)
}

// Notice renders message in a box as the whole page body.
func (p *Page) Notice(c *fiber.Ctx, message, class string) error {
	return p.Render(c, "notice", fiber.Map{
		"Message": message,
		"Class":   class,
	})
}

// FunctionCall renders fn(args...) with every argument JSON encoded.
func FunctionCall(fn string, args ...interface{}) (template.JS, error) {
	parts := make([]string, 0, len(args))
	for _, a := range args {
		if raw, ok := a.(template.JS); ok {
			parts = append(parts, string(raw))
			continue
		}
		b, err := json.Marshal(a)
		if err != nil {
			return "", err
		}
		parts = append(parts, string(b))
	}
	return template.JS(fn + "(" + strings.Join(parts, ", ") + ")"), nil
}
