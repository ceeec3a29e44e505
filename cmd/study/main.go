// Command study is the CLI for Juniper Study.
// It imports theological texts into citable documents, manages citation
// aliases and anchors, and serves the REST API.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/alecthomas/kong"

	"github.com/FocuswithJustin/JuniperStudy/internal/api"
	"github.com/FocuswithJustin/JuniperStudy/internal/config"
	"github.com/FocuswithJustin/JuniperStudy/internal/library"
	"github.com/FocuswithJustin/JuniperStudy/internal/logging"
	"github.com/FocuswithJustin/JuniperStudy/internal/store"
)

const version = "0.1.0"

// Globals are the flags shared by every command.
type Globals struct {
	Config         kong.ConfigFlag `help:"Load configuration from a JSON file" short:"c" type:"path"`
	Database       string          `help:"SQLite database path" default:"${database}" type:"path"`
	User           string          `help:"Owner of everything created from the CLI" default:"${user}"`
	LogLevel       string          `help:"Log level" default:"${log_level}" enum:"debug,info,warn,error"`
	LogFormat      string          `help:"Log format" default:"${log_format}" enum:"text,json"`
	Translation    string          `help:"Translation label for scripture links" default:"${translation}"`
	CacheSize      int             `help:"Citation lookup cache size" default:"${cache_size}"`
	AnchorCacheTTL time.Duration   `help:"How long anchored paragraph sets are cached" default:"${anchor_cache_ttl}"`
}

// CLI defines the command-line interface for study.
type CLI struct {
	Globals

	Document DocumentGroup `cmd:"" help:"Document operations (import, list, show, export)"`
	Alias    AliasGroup    `cmd:"" help:"Citation alias management"`
	Note     NoteGroup     `cmd:"" help:"Study notes"`
	Anchor   AnchorGroup   `cmd:"" help:"Paragraph anchors"`
	Resolve  ResolveCmd    `cmd:"" help:"Find and resolve citations in text"`
	Autolink AutolinkCmd   `cmd:"" help:"Link citations in an HTML fragment"`
	Serve    ServeCmd      `cmd:"" help:"Start REST API server"`
	Version  VersionCmd    `cmd:"" help:"Print version information"`
}

// config assembles the application configuration from the global flags.
func (g *Globals) config() config.Config {
	cfg := config.Default()
	cfg.DatabasePath = g.Database
	cfg.User = g.User
	cfg.LogLevel = g.LogLevel
	cfg.LogFormat = g.LogFormat
	cfg.Translation = g.Translation
	cfg.CacheSize = g.CacheSize
	cfg.AnchorCacheTTL = g.AnchorCacheTTL
	return cfg
}

// session is an opened library bound to the configured user.
type session struct {
	ctx   context.Context
	lib   *library.Library
	store *store.Store
}

func (s *session) Close() error { return s.store.Close() }

// open validates cfg, initialises logging and opens the library.
func open(ctx context.Context, cfg config.Config) (*session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	format, err := logging.ParseFormat(cfg.LogFormat)
	if err != nil {
		return nil, err
	}
	logging.InitLogger(level, format)

	st, err := store.Open(ctx, cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	lib := library.New(st, library.Options{
		CacheSize:      cfg.CacheSize,
		Translation:    cfg.Translation,
		AnchorCacheTTL: cfg.AnchorCacheTTL,
	})
	return &session{
		ctx:   logging.WithUserID(ctx, cfg.User),
		lib:   lib,
		store: st,
	}, nil
}

// VersionCmd prints version information.
type VersionCmd struct{}

func (c *VersionCmd) Run(out io.Writer) error {
	fmt.Fprintf(out, "study version %s\n", version)
	return nil
}

// ServeCmd starts the REST API server.
type ServeCmd struct {
	Port           int               `help:"HTTP server port" default:"${port}"`
	APIKey         map[string]string `help:"API key to user id mapping (key=user); enables authentication" name:"api-key"`
	AllowedOrigins []string          `help:"Allowed CORS and WebSocket origins" name:"allowed-origin"`
	RateLimit      int               `help:"Requests per minute per client IP (0 disables)" default:"0"`
	RateBurst      int               `help:"Rate limit burst size" default:"10"`
	TLSCert        string            `help:"TLS certificate file" type:"path" name:"tls-cert"`
	TLSKey         string            `help:"TLS key file" type:"path" name:"tls-key"`
}

func (c *ServeCmd) Run(g *Globals) error {
	cfg := g.config()
	cfg.Server = config.Server{
		Port:              c.Port,
		APIKeys:           c.APIKey,
		AllowedOrigins:    c.AllowedOrigins,
		RateLimitRequests: c.RateLimit,
		RateLimitBurst:    c.RateBurst,
		TLS: config.TLS{
			Enabled:  c.TLSCert != "" || c.TLSKey != "",
			CertFile: c.TLSCert,
			KeyFile:  c.TLSKey,
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := open(ctx, cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	api.Version = version
	return api.New(cfg, s.lib).ListenAndServe(ctx)
}

func vars() kong.Vars {
	d := config.Default()
	return kong.Vars{
		"database":         d.DatabasePath,
		"user":             d.User,
		"log_level":        d.LogLevel,
		"log_format":       d.LogFormat,
		"translation":      d.Translation,
		"cache_size":       strconv.Itoa(d.CacheSize),
		"anchor_cache_ttl": d.AnchorCacheTTL.String(),
		"port":             strconv.Itoa(d.Server.Port),
	}
}

func newParser(cli *CLI, out io.Writer) (*kong.Kong, error) {
	return kong.New(cli,
		kong.Name("study"),
		kong.Description("Juniper Study - citable theological documents and notes"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Configuration(kong.JSON),
		kong.DefaultEnvars(config.EnvPrefix),
		vars(),
		kong.Bind(&cli.Globals),
		kong.BindTo(out, (*io.Writer)(nil)),
		kong.Writers(out, os.Stderr),
	)
}

func main() {
	var cli CLI
	parser, err := newParser(&cli, os.Stdout)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	ctx, err := parser.Parse(os.Args[1:])
	parser.FatalIfErrorf(err)
	ctx.FatalIfErrorf(ctx.Run())
}
