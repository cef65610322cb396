package migrate

import (
	"database/sql"
	"embed"
	"fmt"
	"log"
	"os"
	"strings"

	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

// migrationsFS holds embedded SQL migrations in migrate/sql.
//
//go:embed sql/*.sql
var migrationsFS embed.FS

// Options defines how to run migrations.
type Options struct {
	Driver  string      // sqlite or postgres
	DSN     string      // e.g., ./guardiao.db for sqlite, or full DSN for postgres
	Command string      // up, down, status, version
	Logger  *log.Logger // optional logger
}

// Run executes migrations based on provided options. If Driver or DSN are empty, it is a no-op.
func Run(opts Options) error {
	if strings.TrimSpace(opts.Driver) == "" || strings.TrimSpace(opts.DSN) == "" {
		return nil
	}

	if opts.Logger != nil {
		goose.SetLogger(opts.Logger)
	}
	goose.SetBaseFS(migrationsFS)
	goose.SetTableName("schema_migrations")
	if err := goose.SetDialect(dialectFor(opts.Driver)); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	db, err := sql.Open(opts.Driver, opts.DSN)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	dir := "sql"
	switch strings.ToLower(strings.TrimSpace(opts.Command)) {
	case "", "up":
		return goose.Up(db, dir)
	case "down":
		return goose.Down(db, dir)
	case "status":
		return goose.Status(db, dir)
	case "version":
		return goose.Version(db, dir)
	default:
		return fmt.Errorf("unknown migration command: %s", opts.Command)
	}
}

// dialectFor maps a database/sql driver name to the goose dialect name.
func dialectFor(driver string) string {
	if strings.EqualFold(driver, "sqlite") {
		return "sqlite3"
	}
	return driver
}

// RunFromEnv reads configuration from environment variables and runs migrations
// if MIGRATE_ON_START is truthy (1/true/TRUE/True).
//
// Env vars:
// - MIGRATE_ON_START: if true/1, run migrations
// - MIGRATE_DRIVER: sqlite or postgres
// - MIGRATE_DSN: db connection string (e.g., ./guardiao.db for sqlite)
// - MIGRATE_CMD: up, down, status, version (default: up)
func RunFromEnv() error {
	enabled := os.Getenv("MIGRATE_ON_START")
	if !isTruthy(enabled) {
		return nil
	}

	cmd := strings.TrimSpace(os.Getenv("MIGRATE_CMD"))
	if cmd == "" {
		cmd = "up"
	}

	logger := log.New(os.Stdout, "[migrate] ", log.LstdFlags)

	return Run(Options{
		Driver:  strings.TrimSpace(os.Getenv("MIGRATE_DRIVER")),
		DSN:     strings.TrimSpace(os.Getenv("MIGRATE_DSN")),
		Command: cmd,
		Logger:  logger,
	})
}

func isTruthy(v string) bool {
	s := strings.TrimSpace(strings.ToLower(v))
	return s == "1" || s == "true" || s == "yes" || s == "y"
}
