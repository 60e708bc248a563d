package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"newswatch/migrations"
)

var commands = []struct {
	name string
	run  func(*sql.DB, string, ...goose.OptionsFunc) error
	help string
}{
	{"up", goose.Up, "Migrate to the latest version"},
	{"up-one", goose.UpByOne, "Migrate one version up"},
	{"down", goose.Down, "Roll back one version"},
	{"status", goose.Status, "Show migration status"},
	{"version", goose.Version, "Show current version"},
	{"reset", goose.Reset, "Roll back all migrations"},
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "migrate:", err)
		os.Exit(1)
	}
}

func run(argv []string) error {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	dbPath := fs.String("db", envOrDefault("DATABASE_PATH", "./data/newswatch.db"), "path to sqlite database")
	fs.Usage = usage(fs)
	if err := fs.Parse(argv); err != nil {
		return err
	}

	args := fs.Args()
	if len(args) != 1 {
		fs.Usage()
		return errors.New("expected exactly one command")
	}

	var migrate func(*sql.DB, string, ...goose.OptionsFunc) error
	for _, c := range commands {
		if c.name == args[0] {
			migrate = c.run
			break
		}
	}
	if migrate == nil {
		return fmt.Errorf("unknown command %q", args[0])
	}

	db, err := sql.Open("sqlite", *dbPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer func() { _ = db.Close() }()

	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := migrate(db, "."); err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}
	return nil
}

func usage(fs *flag.FlagSet) func() {
	return func() {
		fmt.Fprintln(os.Stderr, "Usage: migrate [-db path] <command>")
		fmt.Fprintln(os.Stderr)
		fmt.Fprintln(os.Stderr, "Commands:")
		for _, c := range commands {
			fmt.Fprintf(os.Stderr, "  %-12s%s\n", c.name, c.help)
		}
		fmt.Fprintln(os.Stderr)
		fmt.Fprintln(os.Stderr, "Flags:")
		fs.PrintDefaults()
	}
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
