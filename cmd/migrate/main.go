// Command migrate applies the embedded schema migrations. The target
// database comes from -dsn, then CASESTUDIO_DB_DSN, then the service's own
// database configuration.
package main

import (
	"embed"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/joho/godotenv"

	_ "github.com/golang-migrate/migrate/v4/database/postgres"

	"github.com/JaimeStill/casestudio/internal/config"
)

//go:embed migrations/*.sql
var migrations embed.FS

const envDSN = "CASESTUDIO_DB_DSN"

type options struct {
	dsn     string
	up      bool
	down    bool
	steps   int
	version bool
	force   int
	forced  bool
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		os.Exit(2)
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("failed to load .env: %v", err)
	}

	dsn, err := resolveDSN(opts.dsn)
	if err != nil {
		log.Fatalf("failed to resolve database: %v", err)
	}

	if err := run(dsn, opts, os.Stdout); err != nil {
		log.Fatal(err)
	}
}

func parseFlags(args []string) (options, error) {
	var o options
	fset := flag.NewFlagSet("migrate", flag.ContinueOnError)
	fset.StringVar(&o.dsn, "dsn", "", "Database connection URL")
	fset.BoolVar(&o.up, "up", false, "Run all up migrations")
	fset.BoolVar(&o.down, "down", false, "Run all down migrations")
	fset.IntVar(&o.steps, "steps", 0, "Number of migrations (positive=up, negative=down)")
	fset.BoolVar(&o.version, "version", false, "Print current migration version")
	fset.IntVar(&o.force, "force", -1, "Force set version (use with caution)")

	if err := fset.Parse(args); err != nil {
		return o, err
	}

	fset.Visit(func(f *flag.Flag) {
		if f.Name == "force" {
			o.forced = true
		}
	})
	return o, nil
}

func resolveDSN(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if v := os.Getenv(envDSN); v != "" {
		return v, nil
	}
	db, err := config.LoadDatabase()
	if err != nil {
		return "", err
	}
	return db.URL(), nil
}

func run(dsn string, o options, out io.Writer) error {
	source, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, dsn)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	defer m.Close()

	applied := func(err error) error {
		if errors.Is(err, migrate.ErrNoChange) {
			fmt.Fprintln(out, "no change")
			return nil
		}
		return err
	}

	switch {
	case o.version:
		v, dirty, err := m.Version()
		if err != nil {
			return fmt.Errorf("read version: %w", err)
		}
		fmt.Fprintf(out, "version: %d, dirty: %v\n", v, dirty)
	case o.forced:
		if err := m.Force(o.force); err != nil {
			return fmt.Errorf("force version: %w", err)
		}
		fmt.Fprintf(out, "forced to version %d\n", o.force)
	case o.up:
		if err := applied(m.Up()); err != nil {
			return fmt.Errorf("up migrations: %w", err)
		}
		fmt.Fprintln(out, "migrations applied")
	case o.down:
		if err := applied(m.Down()); err != nil {
			return fmt.Errorf("down migrations: %w", err)
		}
		fmt.Fprintln(out, "migrations reverted")
	case o.steps != 0:
		if err := applied(m.Steps(o.steps)); err != nil {
			return fmt.Errorf("step migrations: %w", err)
		}
		fmt.Fprintf(out, "applied %d migration steps\n", o.steps)
	default:
		fmt.Fprintln(out, "usage: migrate [-dsn <url>] [-up|-down|-steps N|-version|-force N]")
	}
	return nil
}
