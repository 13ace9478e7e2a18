package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"

	"github.com/pulsepoint/pulsepoint/internal/assessment"
	"github.com/pulsepoint/pulsepoint/internal/enrich"
	"github.com/pulsepoint/pulsepoint/internal/handler"
	appI18n "github.com/pulsepoint/pulsepoint/internal/i18n"
	"github.com/pulsepoint/pulsepoint/internal/model"
	"github.com/pulsepoint/pulsepoint/internal/share"
	"github.com/pulsepoint/pulsepoint/internal/store"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "pulsepoint",
		Short: "Trauma screening scoring and secure-sharing server",
	}

	serve := serveCmd()
	root.AddCommand(serve, exportCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `pulsepoint --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP assessment server",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.String("db", "pulsepoint.db", "SQLite database path")
	f.String("llm-url", "", "OpenAI-compatible API base URL for note enrichment (empty = disabled)")
	f.String("llm-key", "ollama", "API key for the enrichment endpoint")
	f.String("llm-model", "llama3.2", "Enrichment model name")
	f.String("note-variant", string(enrich.VariantStandard), "Enrichment note variant (brief, standard, detailed)")
	f.Duration("enrich-timeout", assessment.DefaultEnrichTimeout, "Deadline for a single enrichment attempt")
	f.StringP("lang", "l", "en", "Viewer-facing message language (en, es)")
	f.Bool("secure-cookies", true, "Set Secure flag on session cookies")
	f.Duration("sweep-interval", time.Hour, "How often expired links and sessions are purged")
	f.String("admin-password", "", "Initial admin password (or set PULSEPOINT_ADMIN_PASSWORD)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export all clients and assessment history as JSON",
		RunE:  runExport,
	}
	f := cmd.Flags()
	f.String("db", "pulsepoint.db", "SQLite database path")
	f.String("clinic-name", "", "Clinic name recorded in the export metadata")
	f.String("clinic-contact", "", "Clinic contact recorded in the export metadata")
	f.String("clinic-timezone", "", "Clinic timezone recorded in the export metadata")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func setupLogging(cmd *cobra.Command) {
	v := viperForCmd(cmd)

	var logLevel slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		logHandler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("PULSEPOINT")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("pulsepoint")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/pulsepoint")
	v.AddConfigPath("/etc/pulsepoint")
	v.AddConfigPath("/data")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

func runServe(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	// Open database.
	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	// Seed default admin account if no providers exist.
	if err := seedAdmin(db, v.GetString("admin-password")); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}

	// Initialize i18n.
	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	// Enrichment is optional; assessments save fine without it.
	noteVariant := strings.ToLower(strings.TrimSpace(v.GetString("note-variant")))
	if !enrich.IsValidVariant(noteVariant) {
		slog.Warn("invalid note-variant, using standard", "variant", noteVariant)
		noteVariant = string(enrich.VariantStandard)
	}
	var interp assessment.Interpreter
	if llmURL := v.GetString("llm-url"); llmURL != "" {
		client := enrich.New(
			llmURL,
			v.GetString("llm-key"),
			v.GetString("llm-model"),
			enrich.Variant(noteVariant),
		)
		if err := client.Ping(context.Background()); err != nil {
			slog.Warn("enrichment endpoint unreachable, notes may stay empty", "url", llmURL, "error", err)
		} else {
			slog.Info("enrichment endpoint OK", "url", llmURL, "model", v.GetString("llm-model"))
		}
		interp = client
	} else {
		slog.Info("note enrichment disabled")
	}

	mgr := assessment.NewManager(db, interp, v.GetDuration("enrich-timeout"))
	shares := share.NewEngine(db)

	cfg := model.Config{
		Lang:          lang,
		SecureCookies: v.GetBool("secure-cookies"),
		NoteVariant:   noteVariant,
	}
	h := handler.New(db, mgr, shares, cfg)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(appI18n.Middleware(lang))
	h.Routes(r)

	go sweepExpired(db, v.GetDuration("sweep-interval"))

	addr := v.GetString("addr")
	slog.Info("starting server",
		"addr", addr,
		"lang", lang,
		"note_variant", noteVariant,
		"enrichment", interp != nil,
	)
	return http.ListenAndServe(addr, r)
}

// sweepExpired periodically purges expired share links and auth sessions.
// Expired rows are already unreachable; this keeps the tables bounded.
func sweepExpired(db *store.Store, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for range ticker.C {
		n, err := db.DeleteExpiredShareLinks(time.Now())
		if err != nil {
			slog.Warn("share link sweep failed", "error", err)
		} else if n > 0 {
			slog.Info("purged expired share links", "count", n)
		}
		if err := db.CleanupExpiredSessions(); err != nil {
			slog.Warn("session sweep failed", "error", err)
		}
	}
}

func runExport(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	// Flag-provided clinic metadata overrides what the database holds.
	info := model.ClinicInfo{
		Name:     v.GetString("clinic-name"),
		Contact:  v.GetString("clinic-contact"),
		Timezone: v.GetString("clinic-timezone"),
	}
	if info != (model.ClinicInfo{}) {
		if err := db.SetClinicInfo(info); err != nil {
			return fmt.Errorf("set clinic info: %w", err)
		}
	}

	archive, err := db.ExportArchive()
	if err != nil {
		return fmt.Errorf("export archive: %w", err)
	}

	data, err := json.MarshalIndent(archive, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}

	outPath := v.GetString("output")
	var w io.Writer
	if outPath == "" || outPath == "-" {
		w = os.Stdout
	} else {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	_, err = w.Write(data)
	if err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	// Ensure trailing newline.
	_, _ = fmt.Fprintln(w)

	return nil
}

func seedAdmin(db *store.Store, password string) error {
	count, err := db.ProviderCount()
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	if password == "" {
		return fmt.Errorf("admin password is required: set --admin-password flag or PULSEPOINT_ADMIN_PASSWORD env var")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	_, err = db.CreateProvider(model.Provider{
		Username:     "admin",
		DisplayName:  "Administrator",
		PasswordHash: string(hash),
		Role:         model.RoleAdmin,
		Active:       true,
	})
	if err != nil {
		return fmt.Errorf("create admin account: %w", err)
	}

	slog.Info("seeded default admin account", "username", "admin")
	return nil
}
