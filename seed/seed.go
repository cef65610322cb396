package seed

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

// seedFS holds embedded SQL seed files in seed/sql.
//
//go:embed sql/*.sql
var seedFS embed.FS

// Options defines how to run seed migrations.
type Options struct {
	Driver  string      // sqlite or postgres
	DSN     string      // e.g., ./guardiao.db for sqlite, or full DSN for postgres
	Command string      // up, down, status, version
	Logger  *log.Logger // optional logger
}

// Run executes seed migrations based on provided options. If Driver or DSN are empty, it is a no-op.
func Run(opts Options) error {
	if strings.TrimSpace(opts.Driver) == "" || strings.TrimSpace(opts.DSN) == "" {
		return nil
	}

	if opts.Logger != nil {
		goose.SetLogger(opts.Logger)
	}
	goose.SetBaseFS(seedFS)
	goose.SetTableName("seed_migrations") // Separate table from schema migrations
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
		return fmt.Errorf("unknown seed command: %s", opts.Command)
	}
}

// dialectFor maps a database/sql driver name to the goose dialect name.
func dialectFor(driver string) string {
	if strings.EqualFold(driver, "sqlite") {
		return "sqlite3"
	}
	return driver
}

// RunFromEnv reads configuration from environment variables and runs seed migrations
// if SEED_ON_START is truthy (1/true/TRUE/True).
//
// Env vars:
// - SEED_ON_START: if true/1, run seed migrations
// - SEED_DRIVER: sqlite or postgres (falls back to MIGRATE_DRIVER)
// - SEED_DSN: db connection string (falls back to MIGRATE_DSN)
// - SEED_CMD: up, down, status, version (default: up)
func RunFromEnv() error {
	enabled := os.Getenv("SEED_ON_START")
	if !isTruthy(enabled) {
		return nil
	}

	cmd := strings.TrimSpace(os.Getenv("SEED_CMD"))
	if cmd == "" {
		cmd = "up"
	}

	// Fall back to MIGRATE_* env vars if SEED_* are not set
	driver := strings.TrimSpace(os.Getenv("SEED_DRIVER"))
	if driver == "" {
		driver = strings.TrimSpace(os.Getenv("MIGRATE_DRIVER"))
	}
	dsn := strings.TrimSpace(os.Getenv("SEED_DSN"))
	if dsn == "" {
		dsn = strings.TrimSpace(os.Getenv("MIGRATE_DSN"))
	}

	logger := log.New(os.Stdout, "[seed] ", log.LstdFlags)

	return Run(Options{
		Driver:  driver,
		DSN:     dsn,
		Command: cmd,
		Logger:  logger,
	})
}

func isTruthy(v string) bool {
	s := strings.TrimSpace(strings.ToLower(v))
	return s == "1" || s == "true" || s == "yes" || s == "y"
}
