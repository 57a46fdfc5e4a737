// Command bliss runs the blog server and its maintenance tasks.
package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"
	"go.uber.org/zap"

	"github.com/eringen/bliss"
)

// version is set at build time via ldflags.
var version = "dev"

// CLI is the root command tree.
type CLI struct {
	LogLevel string `name:"log-level" help:"Override LOG_LEVEL (debug, info, warn, error)."`

	Serve   ServeCmd   `cmd:"" default:"1" help:"Run the web server (default)."`
	Sitemap SitemapCmd `cmd:"" help:"Write sitemap.xml and robots.txt into a directory."`
	User    UserCmd    `cmd:"" help:"Create an admin user."`
	Version VersionCmd `cmd:"" help:"Print the bliss version."`
}

// Globals is passed to every command's Run method.
type Globals struct {
	Config bliss.SiteConfig
	Logger *zap.Logger
}

func main() {
	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("bliss"),
		kong.Description("A personal blogging platform."),
		kong.UsageOnError(),
	)

	cfg, err := bliss.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "bliss: %v\n", err)
		os.Exit(1)
	}
	if cli.LogLevel != "" {
		cfg.LogLevel = cli.LogLevel
	}
	logger, err := bliss.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bliss: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	err = kctx.Run(&Globals{Config: cfg, Logger: logger})
	if err != nil {
		logger.Error("command failed", zap.String("command", kctx.Command()), zap.Error(err))
	}
	kctx.FatalIfErrorf(err)
}

// VersionCmd prints the build version.
type VersionCmd struct{}

func (VersionCmd) Run() error {
	fmt.Printf("bliss %s\n", version)
	return nil
}
