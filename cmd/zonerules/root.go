package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/aretw0/zonerules"
	"github.com/aretw0/zonerules/internal/config"
	"github.com/aretw0/zonerules/internal/logging"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "zonerules",
		Short: "zonerules answers offset questions from versioned time-zone rules",
		Long: `zonerules resolves zone identifiers such as Europe/Paris, TZDB:Europe/Paris#2019a
or UTC+05:30 to their rules and answers offset, gap and overlap questions.

Rules documents are read from a directory (--dir) or from the groups declared in
the configuration file (--config).`,
		SilenceUsage: true,
	}

	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("dir", ".", "Directory holding the TZDB rules documents")
	rootCmd.PersistentFlags().String("config", config.DefaultPath, "Configuration file (YAML or JSON)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn or error (overrides the config)")

	rootCmd.AddCommand(
		newIDCmd(),
		newOffsetCmd(),
		newResolveCmd(),
		newTransitionsCmd(),
		newValidateCmd(),
		newServeCmd(),
		newMCPCmd(),
		newVersionCmd(),
	)
	return rootCmd
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup holds what every service-backed command needs.
type setup struct {
	cfg     config.Config
	logger  *slog.Logger
	service *zonerules.Service
	close   func() error
}

// openService loads the configuration, builds the logger and opens the
// service. Groups declared in the configuration take precedence over --dir.
// extra, when set, adds options that need the logger.
func openService(cmd *cobra.Command, extra func(*slog.Logger) []zonerules.Option) (*setup, error) {
	cfgPath, _ := cmd.Flags().GetString("config")
	dir, _ := cmd.Flags().GetString("dir")
	levelFlag, _ := cmd.Flags().GetString("log-level")

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	if levelFlag == "" {
		levelFlag = cfg.LogLevel
	}
	level, err := logging.ParseLevel(levelFlag)
	if err != nil {
		return nil, err
	}
	logger := logging.New(level)

	opts, closeFn, err := cfg.Build(logger)
	if err != nil {
		return nil, err
	}
	opts = append(opts, zonerules.WithLogger(logger))
	if extra != nil {
		opts = append(opts, extra(logger)...)
	}

	repoPath := dir
	if cfg.HasDefaultGroup() && !cmd.Flags().Changed("dir") {
		repoPath = ""
	}
	svc, err := zonerules.New(repoPath, opts...)
	if err != nil {
		_ = closeFn()
		return nil, fmt.Errorf("failed to initialize zonerules: %w", err)
	}
	logger.Debug("service ready", "dir", repoPath, "config", cfgPath, "groups", len(cfg.Groups))
	return &setup{cfg: cfg, logger: logger, service: svc, close: closeFn}, nil
}

// styled reports whether w is a terminal that can take colour and glamour output.
func styled(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && isTerminal(f)
}
