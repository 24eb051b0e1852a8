// Package main is the entry point for the mdcms server.
//
// mdcms stores text, markdown and image documents as plain files in a data
// directory and keeps every earlier revision of text documents under
// history/. Configuration is read from CLI flags, a .env file and config.yml.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/lmittmann/tint"
	"github.com/maruel/mdcms/internal/identity"
	"github.com/maruel/mdcms/internal/render"
	"github.com/maruel/mdcms/internal/server"
	"github.com/maruel/mdcms/internal/server/handlers"
	"github.com/maruel/mdcms/internal/server/ratelimit"
	"github.com/maruel/mdcms/internal/storage"
	"github.com/maruel/mdcms/internal/storage/git"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

func main() {
	if err := mainImpl(); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "mdcms: %v\n", err)
		os.Exit(1)
	}
}

func mainImpl() error {
	version := flag.Bool("version", false, "Print version and exit")
	httpAddr := flag.String("http", "localhost:8080", "Address to listen on (e.g., localhost:8080, :8080, 0.0.0.0:8080)")
	dataDir := flag.String("data-dir", "./data", "Data directory holding the documents")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	gitMirror := flag.Bool("git", false, "Commit every mutation to a git repository in the data directory (overrides config.yml)")
	allowSignup := flag.Bool("allow-signup", false, "Let anyone register an account")
	flag.Parse()
	if len(flag.Args()) > 0 {
		return fmt.Errorf("unknown arguments: %v", flag.Args())
	}

	if *version {
		printVersion()
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()
	ll := &slog.LevelVar{}
	ll.Set(slog.LevelInfo)
	slog.SetDefault(newLogger(ll))

	if err := os.MkdirAll(*dataDir, 0o755); err != nil { //nolint:gosec // G301: 0o755 is intentional for data directories
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	env, err := loadDotEnv(*dataDir)
	if err != nil {
		return err
	}

	// Flags set explicitly win over .env.
	set := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) {
		set[f.Name] = true
	})
	if !set["http"] {
		if v := env["HTTP"]; v != "" {
			*httpAddr = v
		}
	}
	if !set["log-level"] {
		if v := env["LOG_LEVEL"]; v != "" {
			*logLevel = v
		}
	}
	if !set["allow-signup"] {
		if v := env["ALLOW_SIGNUP"]; v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("ALLOW_SIGNUP: %w", err)
			}
			*allowSignup = b
		}
	}

	switch *logLevel {
	case "debug":
		ll.Set(slog.LevelDebug)
	case "info":
	case "warn":
		ll.Set(slog.LevelWarn)
	case "error":
		ll.Set(slog.LevelError)
	default:
		return fmt.Errorf("unknown log level: %q", *logLevel)
	}

	serverCfg, err := storage.LoadServerConfig(*dataDir)
	if err != nil {
		return fmt.Errorf("failed to load config.yml: %w", err)
	}
	if set["git"] {
		serverCfg.Git.Enabled = *gitMirror
	}

	users, err := identity.OpenFileStore(filepath.Join(*dataDir, "users.yml"))
	if err != nil {
		return fmt.Errorf("failed to load users: %w", err)
	}
	if users.Len() == 0 && isatty.IsTerminal(os.Stdin.Fd()) {
		if err := runOnboarding(users); err != nil {
			return fmt.Errorf("onboarding failed: %w", err)
		}
	}
	if users.Len() == 0 && !*allowSignup {
		slog.WarnContext(ctx, "No users and sign-up disabled; documents are read-only")
	}

	var opts []storage.Option
	var mirror *git.Mirror
	if serverCfg.Git.Enabled {
		mirror, err = git.Open(ctx, *dataDir, git.Author{Name: serverCfg.Git.AuthorName, Email: serverCfg.Git.AuthorEmail})
		if err != nil {
			return fmt.Errorf("failed to open git mirror: %w", err)
		}
		defer func() {
			if err := mirror.Close(); err != nil {
				slog.Error("Failed to close git mirror", "err", err)
			}
		}()
		opts = append(opts, storage.WithRecorder(mirror))
		slog.InfoContext(ctx, "Git mirror enabled", "author", serverCfg.Git.AuthorName)
	}

	bfs, err := storage.OpenDir(*dataDir)
	if err != nil {
		return err
	}
	store, err := storage.NewStore(bfs, opts...)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}

	// Watch own executable for modifications (for development restarts)
	if err := watchExecutable(ctx, stop); err != nil {
		return fmt.Errorf("failed to watch executable: %w", err)
	}

	buildVersion, _, _, _ := getBuildInfo()
	svc := &server.Services{
		Store: store,
		Creds: users,
		Markdown: render.NewMarkdown(render.Options{
			Extensions: serverCfg.Markdown.Extensions,
			HardWraps:  serverCfg.Markdown.HardWraps,
			Unsafe:     serverCfg.Markdown.Unsafe,
		}),
		Version: buildVersion,
	}
	if *allowSignup {
		svc.Users = users
	}
	if mirror != nil {
		svc.Audit = mirror
	}
	limits := ratelimit.NewConfig(serverCfg.RateLimits.AuthRatePerMin, serverCfg.RateLimits.WriteRatePerMin)
	defer limits.Close()
	cfg := &handlers.Config{
		JWTKey:       serverCfg.JWTKey(),
		TokenTTL:     24 * time.Hour,
		MaxBodyBytes: serverCfg.MaxUploadBytes,
	}

	// Normalize addr: ":8080" becomes "localhost:8080"
	addr := *httpAddr
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           server.NewRouter(svc, cfg, limits),
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.InfoContext(ctx, "Starting server", "addr", addr, "dataDir", *dataDir, "version", buildVersion)
		serverErr <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		slog.InfoContext(ctx, "Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}
		slog.InfoContext(ctx, "Server stopped")
	}
	return nil
}

func newLogger(ll *slog.LevelVar) *slog.Logger {
	// Skip timestamps when running under systemd (it adds its own).
	underSystemd := os.Getenv("JOURNAL_STREAM") != ""
	return slog.New(tint.NewHandler(colorable.NewColorable(os.Stderr), &tint.Options{
		Level:      ll,
		TimeFormat: "15:04:05.000", // Like time.TimeOnly plus milliseconds.
		NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if underSystemd && a.Key == slog.TimeKey && len(groups) == 0 {
				return slog.Attr{}
			}
			if a.Key == "ip" {
				if v := a.Value.String(); v == "127.0.0.1" || v == "::1" {
					return slog.Attr{}
				}
			}
			skip := false
			switch t := a.Value.Any().(type) {
			case string:
				skip = t == ""
			case bool:
				skip = !t
			case uint64:
				skip = t == 0
			case int64:
				skip = t == 0
			case time.Time:
				skip = t.IsZero()
			case time.Duration:
				skip = t == 0
			case nil:
				skip = true
			}
			if skip {
				return slog.Attr{}
			}
			return a
		},
	}))
}

func printVersion() {
	version, goVersion, revision, dirty := getBuildInfo()
	fmt.Printf("mdcms %s\n", version)
	fmt.Printf("  Go version: %s\n", goVersion)
	fmt.Printf("  Revision:   %s\n", revision)
	if dirty {
		fmt.Printf("  Modified:   true\n")
	}
}

func getBuildInfo() (version, goVersion, revision string, dirty bool) {
	version = "unknown"
	goVersion = "unknown"
	revision = "unknown"
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	version = info.Main.Version
	if version == "" || version == "(devel)" {
		version = "dev"
	}
	goVersion = info.GoVersion
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			revision = setting.Value
		case "vcs.modified":
			dirty = setting.Value == "true"
		}
	}
	return
}

// loadDotEnv reads KEY=value lines from dataDir/.env. A missing file is empty.
func loadDotEnv(dataDir string) (map[string]string, error) {
	env := make(map[string]string)
	path := filepath.Join(dataDir, ".env")
	envContent, err := os.ReadFile(path) //nolint:gosec // G304: path is constructed from dataDir flag, not user input
	if err != nil {
		if os.IsNotExist(err) {
			return env, nil
		}
		return nil, err
	}
	for line := range strings.SplitSeq(string(envContent), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, val, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		val = strings.TrimSpace(val)
		if strings.HasPrefix(val, "'") || strings.HasSuffix(val, "'") {
			if strings.HasPrefix(val, "'") && strings.HasSuffix(val, "'") {
				return nil, fmt.Errorf("single quotes are not supported for wrapping in .env: %s", line)
			}
			return nil, fmt.Errorf("unbalanced single quotes in .env: %s", line)
		}
		if strings.HasPrefix(val, "\"") {
			unquoted, err := strconv.Unquote(val)
			if err != nil {
				return nil, fmt.Errorf("failed to unquote %s: %w", key, err)
			}
			val = unquoted
		}
		env[key] = val
	}
	return env, nil
}

// runOnboarding asks for a first account on the terminal. An empty username
// skips it.
func runOnboarding(users *identity.FileStore) error {
	fmt.Println("Welcome to mdcms! No user exists yet.")
	fmt.Println("Create one now to be able to edit documents, or press enter to skip.")
	reader := bufio.NewReader(os.Stdin)
	fmt.Print("Username: ")
	val, err := reader.ReadString('\n')
	if err != nil {
		return fmt.Errorf("failed to read username: %w", err)
	}
	username := strings.TrimSpace(val)
	if username == "" {
		return nil
	}
	fmt.Print("Password (echoed): ")
	val, err = reader.ReadString('\n')
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}
	if err := users.Add(username, strings.TrimRight(val, "\r\n")); err != nil {
		return err
	}
	fmt.Printf("User %q created.\n\n", username)
	return nil
}

// watchExecutable watches the current executable for modifications and calls
// stop to trigger graceful shutdown when detected. This enables seamless
// restarts during development.
func watchExecutable(ctx context.Context, stop context.CancelFunc) error {
	exe, err := os.Executable()
	if err != nil {
		return err
	}
	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(exe); err != nil {
		_ = w.Close()
		return err
	}
	go func() {
		defer func() { _ = w.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				if event.Has(fsnotify.Write) || event.Has(fsnotify.Chmod) {
					slog.InfoContext(ctx, "Executable modified, initiating shutdown")
					stop()
					return
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				slog.WarnContext(ctx, "Error watching executable", "err", err)
			}
		}
	}()
	return nil
}
