// Package config loads the process-level settings cmd/cardroom needs to
// start listening, grounded on lox-pokerforbots's cmd/holdem-server flag
// struct (alecthomas/kong CLI flags with sensible defaults, no config file).
package config

import (
	"time"

	"github.com/alecthomas/kong"
	"github.com/vctt94/cardroom/internal/session"
)

// CLI is the flag struct kong parses at process start.
type CLI struct {
	Listen       string        `short:"l" default:":8443" help:"Address to listen on for websocket connections."`
	DBPath       string        `short:"d" default:"cardroom.db" help:"Path to the rewards sqlite database."`
	PublicLobby  bool          `default:"true" negatable:"" help:"Create the six fixed public lobbies on startup."`
	TurnTimeout  time.Duration `default:"30s" help:"Poker turn timer duration."`
	GraceWindow  time.Duration `default:"15s" help:"Reconnect grace window before a disconnected player is dropped."`
	LogLevel     string        `default:"info" help:"Minimum log level (trace, debug, info, warn, error)."`
}

// Config is the resolved runtime configuration after flag parsing.
type Config struct {
	Listen      string
	DBPath      string
	PublicLobby bool
	TurnTimeout time.Duration
	GraceWindow time.Duration
	LogLevel    string
}

// Parse parses os.Args-style arguments (excluding the program name) into a
// Config. A parse error is returned to the caller rather than exiting the
// process.
func Parse(args []string) (Config, error) {
	var cli CLI
	parser, err := kong.New(&cli, kong.Name("cardroom"), kong.Description("Realtime poker + UNO cardroom server"))
	if err != nil {
		return Config{}, err
	}
	if _, err := parser.Parse(args); err != nil {
		return Config{}, err
	}
	return Config{
		Listen:      cli.Listen,
		DBPath:      cli.DBPath,
		PublicLobby: cli.PublicLobby,
		TurnTimeout: cli.TurnTimeout,
		GraceWindow: cli.GraceWindow,
		LogLevel:    cli.LogLevel,
	}, nil
}

// graceWindowOrDefault falls back to session's own default if unset, keeping
// the two packages' defaults in lockstep.
func (c Config) graceWindowOrDefault() time.Duration {
	if c.GraceWindow > 0 {
		return c.GraceWindow
	}
	return session.DefaultGraceWindow
}

// GraceWindowEffective returns the effective reconnect grace window.
func (c Config) GraceWindowEffective() time.Duration { return c.graceWindowOrDefault() }
