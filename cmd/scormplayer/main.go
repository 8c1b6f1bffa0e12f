package main

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	retryablehttp "github.com/hashicorp/go-retryablehttp"
	"github.com/kiyor/golib"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kiyor/scormplayer/pkg/api"
	"github.com/kiyor/scormplayer/pkg/core"
	"github.com/kiyor/scormplayer/pkg/session"
	"github.com/kiyor/scormplayer/pkg/store"
)

var (
	configFile string
	flags      = core.DefaultConfig()

	seedFile  string
	probeURLs []string
	probeMax  int
)

// loadConfig reads the config file, then applies the flags given on the
// command line over it.
func loadConfig(cmd *cobra.Command) (core.Config, error) {
	cfg, err := core.LoadConfig(configFile)
	if err != nil {
		return cfg, err
	}
	set := cmd.Flags().Changed
	if set("interface") {
		cfg.Interface = flags.Interface
	}
	if set("listen") {
		cfg.Listen = flags.Listen
	}
	if set("db") {
		cfg.DBDir = flags.DBDir
	}
	if set("redis-host") {
		cfg.RedisHost = flags.RedisHost
	}
	if set("wwwroot") {
		cfg.WWWRoot = flags.WWWRoot
	}
	if set("content") {
		cfg.ContentDir = flags.ContentDir
	}
	if set("assets") {
		cfg.AssetsDir = flags.AssetsDir
	}
	if set("dev-login") {
		cfg.DevLogin = flags.DevLogin
	}
	if set("pretty") {
		cfg.Pretty = flags.Pretty
	}
	if set("log-level") {
		cfg.LogLevel = flags.LogLevel
	}
	if set("forcejavascript") {
		cfg.Scorm.ForceJavascript = flags.Scorm.ForceJavascript
	}
	if set("collapsetocwinsize") {
		cfg.Scorm.CollapseTOCWinSize = flags.Scorm.CollapseTOCWinSize
	}
	cfg.WWWRoot = strings.TrimRight(cfg.WWWRoot, "/")

	if cfg.DBDir, err = filepath.Abs(cfg.DBDir); err != nil {
		return cfg, err
	}
	if cfg.ContentDir, err = filepath.Abs(cfg.ContentDir); err != nil {
		return cfg, err
	}
	if _, err := core.InitLogger(cfg.LogLevel); err != nil {
		return cfg, err
	}
	return cfg, nil
}

var rootCmd = &cobra.Command{
	Use:          "scormplayer",
	Short:        "SCORM package player pages for an LMS.",
	SilenceUsage: true,
	RunE:         serve,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the player server (default).",
	RunE:  serve,
}

func serve(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer core.Log.Sync()

	st, err := store.Open(cfg.DBDir)
	if err != nil {
		return err
	}
	defer st.Close()

	sessions := session.NewManager(nil)
	if cfg.RedisHost != "" {
		storage := session.NewRedisStorage(cfg.RedisHost)
		defer storage.Close()
		sessions = session.NewManager(storage)
	}

	h := api.NewHandler(cfg, st, sessions)
	app := api.NewApp(h, core.NewLogHandler().Handler())

	if _, err := os.Stat(cfg.ContentDir); os.IsNotExist(err) {
		core.Log.Warn("content dir does not exist", zap.String("dir", cfg.ContentDir))
	}
	core.Log.Info("scormplayer starting",
		zap.String("addr", cfg.Addr()),
		zap.String("db", cfg.DBDir),
		zap.String("content", cfg.ContentDir),
		zap.String("redis", cfg.RedisHost),
		zap.Bool("dev_login", cfg.DevLogin))
	return app.Listen(cfg.Addr())
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load users, courses and packages from a YAML fixture file.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		defer core.Log.Sync()
		if seedFile == "" {
			return fmt.Errorf("--file is required")
		}
		f, err := store.LoadFixture(seedFile)
		if err != nil {
			return err
		}
		st, err := store.Open(cfg.DBDir)
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.Seed(f); err != nil {
			return err
		}
		core.Log.Info("seeded", zap.String("file", seedFile), zap.String("db", cfg.DBDir))
		return nil
	},
}

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Check that one or more running servers answer /healthz.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := loadConfig(cmd); err != nil {
			return err
		}
		defer core.Log.Sync()
		if len(probeURLs) == 0 {
			probeURLs = []string{"http://127.0.0.1:8080/healthz"}
		}

		client := retryablehttp.NewClient()
		client.HTTPClient.Timeout = 2 * time.Second
		client.RetryMax = probeMax
		client.RetryWaitMax = 5 * time.Second
		client.Logger = nil

		var mu sync.Mutex
		var failed []string
		var tasks []golib.Task
		for _, u := range probeURLs {
			u := u
			tasks = append(tasks, golib.NewTask(func() error {
				err := probe(client, u)
				if err != nil {
					core.Log.Error("probe failed", zap.String("url", u), zap.Error(err))
					mu.Lock()
					failed = append(failed, u)
					mu.Unlock()
					return err
				}
				core.Log.Info("probe ok", zap.String("url", u))
				return nil
			}, nil, false))
		}
		golib.NewManager(4, len(tasks)).Do(tasks)

		if len(failed) > 0 {
			return fmt.Errorf("%d of %d probes failed", len(failed), len(probeURLs))
		}
		return nil
	},
}

func probe(client *retryablehttp.Client, u string) error {
	req, err := retryablehttp.NewRequest(http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&configFile, "config", "c", "", "YAML config file")
	pf.StringVarP(&flags.Interface, "interface", "i", flags.Interface, "http service interface address")
	pf.StringVarP(&flags.Listen, "listen", "l", flags.Listen, "http service listen port")
	pf.StringVar(&flags.DBDir, "db", flags.DBDir, "db dir")
	pf.StringVar(&flags.RedisHost, "redis-host", "", "Redis host for sessions (e.g. localhost:6379), memory when empty")
	pf.StringVar(&flags.WWWRoot, "wwwroot", "", "site root prefixed to links; syntax like http://a.com(:8080)")
	pf.StringVar(&flags.ContentDir, "content", flags.ContentDir, "unpacked package content dir")
	pf.StringVar(&flags.AssetsDir, "assets", "", "static assets dir (player scripts, datamodels)")
	pf.BoolVar(&flags.DevLogin, "dev-login", false, "enable /login?username= for development")
	pf.BoolVar(&flags.Pretty, "pretty", false, "pretty print html pages")
	pf.StringVar(&flags.LogLevel, "log-level", flags.LogLevel, "log level (debug, info, warn, error)")
	pf.BoolVar(&flags.Scorm.ForceJavascript, "forcejavascript", false, "require javascript on the player page")
	pf.IntVar(&flags.Scorm.CollapseTOCWinSize, "collapsetocwinsize", 0, "window width under which the TOC collapses (0 for default)")

	seedCmd.Flags().StringVarP(&seedFile, "file", "f", "", "fixture YAML file")
	probeCmd.Flags().StringSliceVar(&probeURLs, "url", nil, "health URL to probe (can be specified multiple times)")
	probeCmd.Flags().IntVar(&probeMax, "retry", 3, "retries per URL")

	rootCmd.AddCommand(serveCmd, seedCmd, probeCmd)
}
