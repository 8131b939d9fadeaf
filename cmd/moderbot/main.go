package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"moderbot/internal/bus"
	"moderbot/internal/channel"
	"moderbot/internal/classifier"
	"moderbot/internal/config"
	"moderbot/internal/domain"
	"moderbot/internal/ledger"
	"moderbot/internal/lexicon"
	"moderbot/internal/metrics"
	"moderbot/internal/moderator"
	"moderbot/internal/policy"

	"github.com/spf13/cobra"
)

var (
	version    = "0.1.0"
	logger     *slog.Logger
	configPath string // overridable via --config flag
)

func main() {
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	root := &cobra.Command{
		Use:   "moderbot",
		Short: "moderbot: profanity moderation bot for Telegram groups",
		Long:  "moderbot watches group chats, removes messages that violate the obscenity policy, keeps a per-user violation ledger and temporarily restricts repeat offenders.",
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config.json (default: ~/.moderbot/config.json)")

	root.AddCommand(initCmd())
	root.AddCommand(runCmd())
	root.AddCommand(checkCmd())
	root.AddCommand(historyCmd())
	root.AddCommand(statusCmd())
	root.AddCommand(configCmd())
	root.AddCommand(installDaemonCmd())
	root.AddCommand(uninstallDaemonCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// resolveConfigPath returns the config path from --config flag or default.
func resolveConfigPath() string {
	if configPath != "" {
		return configPath
	}
	return config.DefaultConfigPath()
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize config directory and default config",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgDir := config.DefaultConfigDir()
			cfgPath := config.DefaultConfigPath()
			if err := os.MkdirAll(cfgDir, 0o755); err != nil {
				return err
			}
			if err := config.Save(cfgPath, config.Defaults()); err != nil {
				return err
			}
			logger.Info("initialized", "config", cfgPath)
			logger.Info("set your bot token via MODERBOT_TOKEN or telegram.token in the config")
			return nil
		},
	}
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the moderation bot (Telegram long polling)",
		Long:  "Connects to Telegram, moderates every group message, and keeps running until Ctrl+C.",
		RunE:  runBot,
	}
}

func runBot(cmd *cobra.Command, args []string) error {
	cfgPath := resolveConfigPath()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Telegram.Token == "" || strings.HasPrefix(cfg.Telegram.Token, "${") {
		return fmt.Errorf("telegram token is not configured (set MODERBOT_TOKEN or telegram.token)")
	}

	logger = buildLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	messageBus := bus.New(100, logger)

	violations, err := ledger.NewSQLite(cfg.Storage.DBPath, logger)
	if err != nil {
		return fmt.Errorf("violation ledger: %w", err)
	}
	defer violations.Close()

	lex, err := buildLexicon(cfg)
	if err != nil {
		return err
	}
	logger.Info("lexicon loaded", "version", lex.Version())

	telegramCh := channel.NewTelegram(channel.TelegramConfig{
		Token:  cfg.Telegram.Token,
		Logger: logger,
	})

	mod := moderator.New(moderator.Config{
		Classifier: classifier.New(lex, logger),
		Ledger:     violations,
		Transport:  telegramCh,
		Policy:     policy.New(cfg.Moderation.Threshold, time.Duration(cfg.Moderation.RestrictMinutes)*time.Minute),
		BadSender:  moderator.BadSenderFromList(cfg.Moderation.BadSenders),
		Notice:     cfg.Moderation.Notice,
		Logger:     logger,
	})

	go mod.Run(ctx, messageBus)

	if cfg.Metrics.Enabled {
		go serveMetrics(ctx, cfg.Metrics)
	}

	logger.Info("moderbot started", "version", version, "threshold", cfg.Moderation.Threshold)

	err = telegramCh.Start(ctx, messageBus)
	messageBus.Close()
	if err != nil {
		return fmt.Errorf("telegram channel: %w", err)
	}
	logger.Info("shutdown complete")
	return nil
}

func buildLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.General.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	out := os.Stderr
	if cfg.General.LogFile != "" {
		f, err := os.OpenFile(cfg.General.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			logger.Warn("cannot open log file, using stderr", "path", cfg.General.LogFile, "err", err)
		} else {
			out = f
		}
	}
	return slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level}))
}

func buildLexicon(cfg *config.Config) (*lexicon.Matcher, error) {
	if cfg.Moderation.LexiconPath != "" {
		lex, err := lexicon.LoadFile(cfg.Moderation.LexiconPath)
		if err != nil {
			return nil, fmt.Errorf("custom lexicon: %w", err)
		}
		return lex, nil
	}
	lex, err := lexicon.New()
	if err != nil {
		return nil, fmt.Errorf("embedded lexicon: %w", err)
	}
	return lex, nil
}

func serveMetrics(ctx context.Context, cfg config.MetricsConfig) {
	mux := http.NewServeMux()
	mux.HandleFunc(cfg.Endpoint, metrics.Collector.Handler())
	srv := &http.Server{Addr: cfg.Addr, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logger.Info("metrics endpoint enabled", "addr", cfg.Addr, "endpoint", cfg.Endpoint)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("metrics server error", "err", err)
	}
}

func checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check [text]",
		Short: "Classify a text locally against the lexicon",
		Long:  "Runs the classifier on the given text without touching Telegram or the ledger. Useful for vetting lexicon changes.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Defaults()
			if loaded, err := config.Load(resolveConfigPath()); err == nil {
				cfg = loaded
			}

			lex, err := buildLexicon(cfg)
			if err != nil {
				return err
			}

			text := strings.Join(args, " ")
			verdict := classifier.New(lex, logger).Classify(domain.Message{Text: text})
			if verdict.Violated {
				fmt.Printf("VIOLATION: %q\n", verdict.Offending)
			} else {
				fmt.Println("clean")
			}
			return nil
		},
	}
}

func historyCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent recorded violations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(resolveConfigPath())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			violations, err := ledger.NewSQLite(cfg.Storage.DBPath, logger)
			if err != nil {
				return fmt.Errorf("violation ledger: %w", err)
			}
			defer violations.Close()

			recs, err := violations.ListRecent(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("list violations: %w", err)
			}
			if len(recs) == 0 {
				fmt.Println("no violations recorded")
				return nil
			}
			for _, r := range recs {
				name := strings.TrimSpace(r.FirstName + " " + r.LastName)
				fmt.Printf("%s  user=%d (%s)  %q\n", r.Date.Format(time.DateTime), r.UserID, name, r.Text)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of records to show")
	return cmd
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show configuration and ledger status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			cfg, err := config.Load(cfgPath)
			if err != nil {
				logger.Info("config", "path", cfgPath, "loaded", false)
				cfg = config.Defaults()
			} else {
				logger.Info("config", "path", cfgPath, "loaded", true)
			}

			lex, err := buildLexicon(cfg)
			if err != nil {
				logger.Error("lexicon", "err", err)
			} else {
				logger.Info("lexicon", "version", lex.Version())
			}

			dbPath := config.ExpandPath(cfg.Storage.DBPath)
			if _, err := os.Stat(dbPath); err != nil {
				logger.Info("ledger", "path", dbPath, "exists", false)
				return nil
			}
			violations, err := ledger.NewSQLite(dbPath, logger)
			if err != nil {
				logger.Error("ledger", "path", dbPath, "err", err)
				return nil
			}
			defer violations.Close()
			recs, err := violations.ListRecent(cmd.Context(), 1)
			if err != nil {
				logger.Error("ledger", "path", dbPath, "err", err)
				return nil
			}
			last := "never"
			if len(recs) > 0 {
				last = recs[0].Date.Format(time.DateTime) + " user=" + strconv.FormatInt(recs[0].UserID, 10)
			}
			logger.Info("ledger", "path", dbPath, "last_violation", last)
			return nil
		},
	}
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "View configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List all config values (credentials redacted)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(resolveConfigPath())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			data, _ := json.MarshalIndent(config.Sanitize(cfg), "", "  ")
			fmt.Println(string(data))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show config file path",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(resolveConfigPath())
		},
	})

	return cmd
}
