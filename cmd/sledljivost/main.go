package main

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/erazemk/sledljivost/internal/api"
	"github.com/erazemk/sledljivost/internal/auth"
	"github.com/erazemk/sledljivost/internal/config"
	"github.com/erazemk/sledljivost/internal/db"
	"github.com/erazemk/sledljivost/internal/ledger"
	"github.com/erazemk/sledljivost/internal/metrics"
	"github.com/erazemk/sledljivost/internal/model"
	"github.com/erazemk/sledljivost/internal/photostore"
	"github.com/erazemk/sledljivost/internal/store"
)

// levelRouter is a slog.Handler that routes INFO/WARN to stdout and ERROR+ to stderr.
type levelRouter struct {
	stdout slog.Handler
	stderr slog.Handler
}

func (lr *levelRouter) Enabled(_ context.Context, level slog.Level) bool {
	return level >= slog.LevelInfo
}

func (lr *levelRouter) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= slog.LevelError {
		return lr.stderr.Handle(ctx, r)
	}
	return lr.stdout.Handle(ctx, r)
}

func (lr *levelRouter) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &levelRouter{
		stdout: lr.stdout.WithAttrs(attrs),
		stderr: lr.stderr.WithAttrs(attrs),
	}
}

func (lr *levelRouter) WithGroup(name string) slog.Handler {
	return &levelRouter{
		stdout: lr.stdout.WithGroup(name),
		stderr: lr.stderr.WithGroup(name),
	}
}

// setupLogger configures structured logging. If logPath is non-empty, all
// levels are also appended to that file. The returned cleanup closes it.
func setupLogger(logPath string) (func(), error) {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}

	var cleanup func()

	stdoutW := io.Writer(os.Stdout)
	stderrW := io.Writer(os.Stderr)

	if logPath != "" {
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("opening log file: %w", err)
		}
		cleanup = func() { f.Close() }
		stdoutW = io.MultiWriter(os.Stdout, f)
		stderrW = io.MultiWriter(os.Stderr, f)
	}

	handler := &levelRouter{
		stdout: slog.NewTextHandler(stdoutW, opts),
		stderr: slog.NewTextHandler(stderrW, opts),
	}
	slog.SetDefault(slog.New(handler))
	return cleanup, nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	fs := flag.NewFlagSet("sledljivost", flag.ContinueOnError)
	cfg.RegisterFlags(fs)
	fs.Usage = func() {
		fmt.Fprint(os.Stdout, `Usage: sledljivost [flags]

Flags:
  -d, -db <path|url>      SQLite path or postgres:// URL (env SLEDLJIVOST_DB, default: sledljivost.sqlite3)
  -a, -addr <host:port>   listen address (env SLEDLJIVOST_ADDR, default: :8080)
  -u, -user <name>        ledger administrator on first run (env SLEDLJIVOST_ADMIN, default: Admin)
  -l, -log <path>         log file path (env SLEDLJIVOST_LOG, default: stdout/stderr only)
  -token-ttl <duration>   API token lifetime (env SLEDLJIVOST_TOKEN_TTL, default: 24h)
  -photo-bucket <name>    store item photos in this S3 bucket (env SLEDLJIVOST_PHOTO_S3_BUCKET, default: database)
  -photo-region <region>  S3 region (env SLEDLJIVOST_PHOTO_S3_REGION, default: us-east-1)
  -photo-endpoint <url>   S3-compatible endpoint, e.g. MinIO (env SLEDLJIVOST_PHOTO_S3_ENDPOINT)
  -photo-path-style       use path-style bucket addressing (env SLEDLJIVOST_PHOTO_S3_PATH_STYLE)
  -h, -help               show this help and exit
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

	closeLog, err := setupLogger(cfg.LogPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if closeLog != nil {
		defer closeLog()
	}

	database, err := db.Open(cfg.DB)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer database.Close()

	if err := db.EnsureSchema(database); err != nil {
		slog.Error("failed to ensure database schema", "error", err)
		os.Exit(1)
	}

	dialect := db.DialectOf(database)
	slog.Info("database ready", "dialect", dialect)

	ctx := context.Background()

	// First run: create the administrator account and fix it as the
	// ledger administrator.
	initialized, err := ledger.Initialized(ctx, database)
	if err != nil {
		slog.Error("failed to read ledger state", "error", err)
		os.Exit(1)
	}
	if !initialized {
		password, err := initLedger(ctx, database, cfg.AdminUser)
		if err != nil {
			slog.Error("failed to initialize ledger", "error", err)
			os.Exit(1)
		}
		printInitResult(dialect, cfg.AdminUser, password)
		fmt.Println()
	}

	l, err := ledger.Open(ctx, database)
	if err != nil {
		slog.Error("failed to open ledger", "error", err)
		os.Exit(1)
	}

	collector := metrics.New()
	l.AddObserver(collector)

	jwtSecret, err := store.GetJWTSecret(ctx, database)
	if err != nil {
		slog.Error("failed to get JWT secret", "error", err)
		os.Exit(1)
	}

	var photos photostore.Store = photostore.NewDB(database)
	if cfg.PhotoBucket != "" {
		photos, err = photostore.NewS3(ctx, photostore.S3Config{
			Bucket:    cfg.PhotoBucket,
			Region:    cfg.PhotoRegion,
			Endpoint:  cfg.PhotoEndpoint,
			PathStyle: cfg.PhotoPathStyle,
		})
		if err != nil {
			slog.Error("failed to set up photo storage", "error", err)
			os.Exit(1)
		}
	}
	slog.Info("photo storage ready", "driver", photos.Driver())

	mux := http.NewServeMux()
	mux.Handle("/api/", api.NewRouter(database, l, photos, jwtSecret, cfg.TokenTTL))
	mux.Handle("GET /metrics", collector.Handler())

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.LoggingMiddleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	janitorCtx, stopJanitor := context.WithCancel(ctx)
	go purgeRevokedTokens(janitorCtx, database, time.Hour)

	// Graceful shutdown on SIGINT/SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-quit
		slog.Info("shutdown signal received", "signal", sig.String())
		stopJanitor()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			slog.Error("server forced to shutdown", "error", err)
		}
	}()

	slog.Info("server started", "addr", cfg.Addr, "admin", l.Admin())
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped, closing database")
}

// purgeRevokedTokens drops expired token revocations every interval until ctx
// is done.
func purgeRevokedTokens(ctx context.Context, database *sql.DB, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			n, err := store.PurgeRevokedTokens(ctx, database, now)
			if err != nil {
				slog.Warn("failed to purge revoked tokens", "error", err)
				continue
			}
			if n > 0 {
				slog.Info("purged revoked tokens", "count", n)
			}
		}
	}
}

// initLedger creates the administrator account with a random password and
// initializes the ledger with it. It returns the generated password.
func initLedger(ctx context.Context, database *sql.DB, adminUsername string) (string, error) {
	password, err := generatePassword(16)
	if err != nil {
		return "", fmt.Errorf("generating password: %w", err)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return "", err
	}

	existing, err := store.GetAccountByUsername(ctx, database, adminUsername)
	if err != nil {
		return "", err
	}
	if existing == nil {
		if _, err := store.CreateAccount(ctx, database, adminUsername, hash, model.AccountAdmin); err != nil {
			return "", fmt.Errorf("creating admin account: %w", err)
		}
	} else {
		if err := store.UpdateAccountKind(ctx, database, existing.ID, model.AccountAdmin); err != nil {
			return "", err
		}
		if err := store.UpdateAccountPassword(ctx, database, existing.ID, hash); err != nil {
			return "", err
		}
	}

	if _, err := ledger.Init(ctx, database, adminUsername); err != nil {
		return "", err
	}
	return password, nil
}

func printInitResult(dialect db.Dialect, username, password string) {
	fmt.Printf("Ledger initialized (%s).\n", dialect)
	fmt.Println()
	fmt.Println("Administrator account created:")
	fmt.Printf("  Username: %s\n", username)
	fmt.Printf("  Password: %s\n", password)
	fmt.Println()
	fmt.Println("Save this password, it cannot be recovered.")
	fmt.Println("The administrator holds every ledger role and grants roles to other accounts.")
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
