// Package lang resolves interface strings from the embedded language pack.
package lang

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed en.yaml
var enYAML []byte

// Pack maps component -> identifier -> string.
type Pack map[string]map[string]string

var (
	defaultPack Pack
	loadOnce    sync.Once
	loadErr     error
)

// Parse reads a YAML language pack.
func Parse(b []byte) (Pack, error) {
	var p Pack
	if err := yaml.Unmarshal(b, &p); err != nil {
		return nil, fmt.Errorf("parse language pack: %w", err)
	}
	return p, nil
}

// Default returns the embedded English pack.
func Default() Pack {
	loadOnce.Do(func() {
		defaultPack, loadErr = Parse(enYAML)
	})
	if loadErr != nil {
		panic(loadErr)
	}
	return defaultPack
}

// Get returns the string identifier of component with {$a} replaced by a.
// Unknown strings render as [[identifier,component]].
func (p Pack) Get(identifier, component string, a ...string) string {
	s, ok := p[component][identifier]
	if !ok {
		return "[[" + identifier + "," + component + "]]"
	}
	if len(a) > 0 {
		s = strings.ReplaceAll(s, "{$a}", a[0])
	}
	return s
}

// Has reports whether the pack defines the string.
func (p Pack) Has(identifier, component string) bool {
	_, ok := p[component][identifier]
	return ok
}

// Get resolves a string from the default pack.
func Get(identifier, component string, a ...string) string {
	return Default().Get(identifier, component, a...)
}
