package core

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultCollapseTOCWinSize is the window width under which the TOC collapses
// when the scorm plugin setting is empty.
const DefaultCollapseTOCWinSize = 767

// Config holds application-wide configuration. It is filled from the optional
// YAML file first, then Cobra flags override whatever was set explicitly.
type Config struct {
	Interface  string `yaml:"interface"`
	Listen     string `yaml:"listen"`
	DBDir      string `yaml:"db"`
	RedisHost  string `yaml:"redis_host"` // empty keeps sessions in memory
	WWWRoot    string `yaml:"wwwroot"`    // like http://lms.example.com, no trailing slash
	ContentDir string `yaml:"content"`    // unpacked packages, <scormid>/content/...
	AssetsDir  string `yaml:"assets"`
	DevLogin   bool   `yaml:"dev_login"`
	Pretty     bool   `yaml:"pretty"`
	LogLevel   string `yaml:"log_level"`

	Scorm ScormConfig `yaml:"scorm"`
}

// ScormConfig mirrors the scorm plugin settings read by the player.
type ScormConfig struct {
	ForceJavascript    bool `yaml:"forcejavascript"`
	CollapseTOCWinSize int  `yaml:"collapsetocwinsize"`
}

// DefaultConfig returns the settings used when neither file nor flags set a value.
func DefaultConfig() Config {
	return Config{
		Interface:  "0.0.0.0",
		Listen:     ":8080",
		DBDir:      ".",
		WWWRoot:    "",
		ContentDir: "./content",
		LogLevel:   "info",
	}
}

// LoadConfig reads a YAML config file over the defaults. An empty path returns
// the defaults unchanged.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.WWWRoot = strings.TrimRight(cfg.WWWRoot, "/")
	return cfg, nil
}

// Addr is the listen address the server binds to.
func (c Config) Addr() string {
	if strings.Contains(c.Listen, ":") && !strings.HasPrefix(c.Listen, ":") {
		return c.Listen
	}
	return c.Interface + c.Listen
}

// CollapseTOC returns the configured collapse width, falling back to the default.
func (c ScormConfig) CollapseTOC() int {
	if c.CollapseTOCWinSize <= 0 {
		return DefaultCollapseTOCWinSize
	}
	return c.CollapseTOCWinSize
}
