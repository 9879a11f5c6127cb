// Command kotoba builds Japanese flashcard decks from articles and quizzes
// the learner on them.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/japaniel/kotoba/pkg/config"
	"github.com/japaniel/kotoba/pkg/db"
	"github.com/japaniel/kotoba/pkg/dictionary"
	"github.com/japaniel/kotoba/pkg/ingest"
	"github.com/japaniel/kotoba/pkg/keystroke"
	"github.com/japaniel/kotoba/pkg/quiz"
)

const usage = `usage: kotoba <command> [flags]

commands:
  build        add the words of an article (-url or -file) to the deck
  import-dict  fill in missing English from the JMdict dictionary
  quiz         answer flashcards in the enabled input modes
  drill        conjugate verbs and adjectives
  stats        show per-module progress
  convert      transliterate romaji and kana
`

// app is the state shared by every command.
type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	log    zerolog.Logger

	paths    config.Paths
	settings quiz.Settings
	conn     *sql.DB
	// rng drives prompt selection; nil uses math/rand/v2.
	rng func() float64

	verbose bool
	json    bool
	debug   bool
}

type command func(ctx context.Context, a *app, fs *flag.FlagSet, args []string) error

var commands = map[string]command{
	"build":       runBuild,
	"import-dict": runImportDict,
	"quiz":        runQuiz,
	"drill":       runDrill,
	"stats":       runStats,
	"convert":     runConvert,
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	cancel()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) == 0 || args[0] == "-h" || args[0] == "help" {
		fmt.Fprint(stderr, usage)
		return 2
	}
	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(stderr, "unknown command %q\n\n%s", args[0], usage)
		return 2
	}

	a := &app{stdin: stdin, stdout: stdout, stderr: stderr}
	defaults, err := config.DefaultPaths()
	if err != nil {
		fmt.Fprintf(stderr, "Failed to resolve paths: %v\n", err)
		return 1
	}

	fs := flag.NewFlagSet(args[0], flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&a.paths.DB, "db", defaults.DB, "Path to SQLite database")
	fs.StringVar(&a.paths.Settings, "config", defaults.Settings, "Path to settings YAML")
	fs.StringVar(&a.paths.Dictionary, "dict", defaults.Dictionary, "Path to JMdict-Simplified JSON file")
	fs.BoolVar(&a.verbose, "v", false, "Verbose logging")
	fs.BoolVar(&a.json, "json", false, "Print results as JSON")
	fs.BoolVar(&a.debug, "debug", false, "Dump internal structures")

	a.setupLogging()
	if err := cmd(ctx, a, fs, args[1:]); err != nil {
		if err == flag.ErrHelp {
			return 2
		}
		a.log.Error().Err(err).Msg(args[0] + " failed")
		return 1
	}
	return 0
}

// setupLogging installs a console logger on every package, at debug level
// with -v.
func (a *app) setupLogging() {
	level := zerolog.InfoLevel
	if a.verbose {
		level = zerolog.DebugLevel
	}
	a.log = zerolog.New(zerolog.ConsoleWriter{Out: a.stderr, TimeFormat: time.TimeOnly}).
		Level(level).With().Timestamp().Logger()
	ingest.Logger = a.log
	dictionary.Logger = a.log
	quiz.Logger = a.log
	keystroke.Logger = a.log
}

// parse parses the command flags and loads the settings file.
func (a *app) parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return err
	}
	a.setupLogging()
	s, err := config.Load(a.paths.Settings)
	if err != nil {
		return err
	}
	a.settings = s
	a.log.Debug().Str("db", a.paths.DB).Str("settings", a.paths.Settings).Msg("paths")
	return nil
}

func (a *app) openDB() (*sql.DB, error) {
	conn, err := db.Open(a.paths.DB)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return conn, nil
}
