package main

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/erazemk/dukandaar/internal/api"
	"github.com/erazemk/dukandaar/internal/auth"
	"github.com/erazemk/dukandaar/internal/authz"
	"github.com/erazemk/dukandaar/internal/config"
	"github.com/erazemk/dukandaar/internal/db"
	"github.com/erazemk/dukandaar/internal/events"
	"github.com/erazemk/dukandaar/internal/listing"
	"github.com/erazemk/dukandaar/internal/logging"
	"github.com/erazemk/dukandaar/internal/media"
	"github.com/erazemk/dukandaar/internal/model"
	"github.com/erazemk/dukandaar/internal/notify"
	"github.com/erazemk/dukandaar/internal/points"
	"github.com/erazemk/dukandaar/internal/prefs"
	"github.com/erazemk/dukandaar/internal/store"
	"github.com/erazemk/dukandaar/internal/supervisor"
)

const defaultAdminEmail = "admin@dukandaar.local"

func main() {
	fs := flag.NewFlagSet("dukandaar", flag.ContinueOnError)

	var configPath string
	fs.StringVar(&configPath, "config", "", "")
	fs.StringVar(&configPath, "c", "", "")

	var dbPath string
	fs.StringVar(&dbPath, "db", "", "")
	fs.StringVar(&dbPath, "d", "", "")

	var addr string
	fs.StringVar(&addr, "addr", "", "")
	fs.StringVar(&addr, "a", "", "")

	var mediaPath string
	fs.StringVar(&mediaPath, "media", "", "")
	fs.StringVar(&mediaPath, "m", "", "")

	var logPath string
	fs.StringVar(&logPath, "log", "", "")
	fs.StringVar(&logPath, "l", "", "")

	var adminEmail string
	fs.StringVar(&adminEmail, "admin", defaultAdminEmail, "")

	fs.Usage = func() {
		fmt.Fprint(os.Stdout, `Usage: dukandaar [flags]

Flags:
  -c, -config <path>      YAML config file (default: dukandaar.yaml if present)
  -d, -db <path>          SQLite database path (default: dukandaar.sqlite3)
  -a, -addr <host:port>   listen address (default: :8080)
  -m, -media <dir>        photo and preference store directory (default: dukandaar-media)
  -l, -log <path>         log file path (default: no file, stdout/stderr only)
  -admin <email>          admin account created on first run (default: admin@dukandaar.local)
  -h, -help               show this help and exit

Every setting can also be given as DUKANDAAR_<SECTION>__<KEY>, e.g.
DUKANDAAR_AUTH__ADMIN_EMAILS=a@example.com,b@example.com.
`)
	}

	if err := fs.Parse(os.Args[1:]); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	if fs.NArg() > 0 {
		fmt.Fprintf(os.Stderr, "unexpected argument: %s\n", fs.Arg(0))
		fs.Usage()
		os.Exit(1)
	}

	overrides := map[string]any{}
	if dbPath != "" {
		overrides["database.path"] = dbPath
	}
	if addr != "" {
		overrides["server.addr"] = addr
	}
	if mediaPath != "" {
		overrides["media.path"] = mediaPath
	}
	if logPath != "" {
		overrides["logging.file"] = logPath
	}

	cfg, err := config.Load(config.Options{Path: configPath, Overrides: overrides})
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	closeLog, err := logging.Init(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()

	if err := run(cfg, adminEmail); err != nil {
		slog.Error("server failed", "error", err)
		closeLog()
		os.Exit(1)
	}
}

func run(cfg *config.Config, adminEmail string) error {
	// Check if DB exists, auto-init if not.
	if _, err := os.Stat(cfg.Database.Path); os.IsNotExist(err) {
		database, password, err := initDatabase(cfg.Database.Path, adminEmail)
		if err != nil {
			return fmt.Errorf("initializing database: %w", err)
		}
		database.Close()

		printInitResult(cfg.Database.Path, adminEmail, password)
		fmt.Println()
	}

	database, err := db.Open(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer database.Close()

	// Ensure schema exists (idempotent).
	if err := db.EnsureSchema(database); err != nil {
		return fmt.Errorf("ensuring database schema: %w", err)
	}
	slog.Info("database ready", "path", cfg.Database.Path)

	kv, err := db.OpenKV(cfg.Media.Path)
	if err != nil {
		return err
	}
	defer kv.Close()
	slog.Info("media store ready", "path", cfg.Media.Path)

	jwtSecret, err := store.GetJWTSecret(context.Background(), database)
	if err != nil {
		return fmt.Errorf("getting JWT secret: %w", err)
	}

	enforcer, err := authz.NewEnforcer()
	if err != nil {
		return err
	}

	bus := events.NewBus(events.Config{
		Buffer:          cfg.Events.Buffer,
		BreakerFailures: cfg.Events.BreakerFailures,
		BreakerTimeout:  cfg.Events.BreakerTimeout,
	}, slog.Default())
	defer bus.Close()

	ledger := &points.Ledger{DB: database}
	mediaStore := media.NewStore(kv)

	router := api.NewRouter(api.Deps{
		DB:        database,
		JWTSecret: jwtSecret,
		Server:    cfg.Server,
		Auth:      cfg.Auth,
		Listings: &listing.Service{
			DB:              database,
			Authz:           enforcer,
			Ledger:          ledger,
			Media:           mediaStore,
			Events:          bus,
			SubmissionAward: cfg.Points.Submission,
			ReviewAward:     cfg.Points.Review,
		},
		Ledger:  ledger,
		Media:   mediaStore,
		Prefs:   prefs.NewStore(kv),
		Lockout: auth.NewLockout(cfg.Auth.LockoutAttempts, cfg.Auth.LockoutDuration),
	})

	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	tree := supervisor.NewTree(slog.Default(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout * 2,
	})
	tree.AddMessagingService(notify.NewService(database, bus))
	tree.AddAPIService(supervisor.NewHTTPService(server, cfg.Server.ShutdownTimeout))

	// Graceful shutdown on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slog.Info("server started", "addr", cfg.Server.Addr)
	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	if report, err := tree.UnstoppedServiceReport(); err == nil && len(report) > 0 {
		slog.Warn("services did not stop in time", "count", len(report))
	}
	slog.Info("server stopped, closing stores")
	return nil
}

// initDatabase creates a new database, ensures the schema, and creates the admin user.
func initDatabase(path, adminEmail string) (*sql.DB, string, error) {
	database, err := db.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("opening database: %w", err)
	}

	if err := db.EnsureSchema(database); err != nil {
		database.Close()
		os.Remove(path)
		return nil, "", fmt.Errorf("ensuring schema: %w", err)
	}

	password, err := generatePassword(16)
	if err != nil {
		database.Close()
		os.Remove(path)
		return nil, "", fmt.Errorf("generating password: %w", err)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		database.Close()
		os.Remove(path)
		return nil, "", err
	}

	_, err = store.CreateUser(context.Background(), database, adminEmail, "Admin", hash, model.RoleAdmin)
	if err != nil {
		database.Close()
		os.Remove(path)
		return nil, "", fmt.Errorf("creating admin user: %w", err)
	}

	return database, password, nil
}

// printInitResult prints the database initialization result to stdout.
func printInitResult(dbPath, email, password string) {
	fmt.Printf("Database created: %s\n", dbPath)
	fmt.Println("Schema initialized.")
	fmt.Println()
	fmt.Println("Admin account created:")
	fmt.Printf("  Email:    %s\n", email)
	fmt.Printf("  Password: %s\n", password)
	fmt.Println()
	fmt.Println("Save this password. It cannot be recovered.")
	fmt.Println("The admin can change it after signing in.")
}

// generatePassword creates a random password of the given length.
func generatePassword(length int) (string, error) {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%&*"
	result := make([]byte, length)
	for i := range result {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		result[i] = charset[n.Int64()]
	}
	return string(result), nil
}
