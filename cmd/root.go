package cmd

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/lepinkainen/humanlog"

	"github.com/lepinkainen/tunetrackr/internal/config"
	tterrors "github.com/lepinkainen/tunetrackr/internal/errors"
)

// CLI represents the complete command structure for the tunetrackr application
type CLI struct {
	Debug     bool   `help:"Enable debug logging"`
	ConfigDir string `help:"Directory holding config.yaml and .env" default:"." type:"path"`
	DBDriver  string `help:"Database driver, sqlite or postgres (overrides database.driver)" name:"db-driver"`
	DSN       string `help:"Database connection string (overrides database.dsn)" name:"dsn"`

	Fetch   FetchCmd   `cmd:"" help:"Fetch songs from Spotify and MusicBrainz into the songs file"`
	Enrich  EnrichCmd  `cmd:"" help:"Add album track counts to the fetched songs"`
	Load    LoadCmd    `cmd:"" help:"Load enriched songs into the database"`
	Run     RunCmd     `cmd:"" help:"Fetch, enrich and load in one go"`
	Migrate MigrateCmd `cmd:"" help:"Create or upgrade the database schema"`
}

// App is the per-invocation state handed to every command.
type App struct {
	Ctx    context.Context
	Config config.Config
	Logger *slog.Logger
	Out    io.Writer
	HTTP   *http.Client
}

// Execute runs the Kong-based CLI and exits with the code of the failure class.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout)
	stop()
	os.Exit(code)
}

// run parses args, executes the selected command and maps its error to an exit code.
func run(ctx context.Context, args []string, out io.Writer) int {
	var cli CLI
	parser, err := kong.New(&cli,
		kong.Name("tunetrackr"),
		kong.Description("Collects song metadata from music catalogs into a relational database."),
		kong.UsageOnError(),
		kong.Writers(out, out),
	)
	if err != nil {
		slog.Error("Invalid command definition", "error", err)
		return tterrors.ExitFailure
	}

	kctx, err := parser.Parse(args)
	if err != nil {
		parser.Errorf("%s", err)
		return tterrors.ExitConfig
	}

	logger := initLogging(out, cli.Debug)

	cfg, err := loadConfig(&cli)
	if err != nil {
		logger.Error("Configuration error", "error", err)
		return tterrors.ExitCode(err)
	}

	app := &App{
		Ctx:    ctx,
		Config: cfg,
		Logger: logger,
		Out:    out,
		HTTP:   &http.Client{Timeout: 30 * time.Second},
	}

	if err := kctx.Run(app); err != nil {
		logger.Error("Command failed", "command", kctx.Command(), "error", err)
		return tterrors.ExitCode(err)
	}
	return tterrors.ExitOK
}

// loadConfig reads the config directory and applies global flag overrides.
func loadConfig(cli *CLI) (config.Config, error) {
	cfg, err := config.Load(cli.ConfigDir)
	if err != nil {
		return cfg, err
	}
	if cli.DBDriver != "" {
		cfg.Database.Driver = cli.DBDriver
	}
	if cli.DSN != "" {
		cfg.Database.DSN = cli.DSN
	}
	return cfg, nil
}

func initLogging(out io.Writer, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	handler := humanlog.NewHandler(out, &humanlog.Options{
		Level: level,
	})

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}
