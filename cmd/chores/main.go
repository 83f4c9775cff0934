package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"chores/internal/config"
	"chores/internal/logging"
	"chores/internal/storage"
	"chores/internal/ui"
)

var Version = "dev"

// app holds what every subcommand needs once the config has been read.
type app struct {
	cfg      config.Config
	store    *storage.Store
	log      *zap.Logger
	closeLog func() error
}

func main() {
	a := &app{}
	rootCmd := &cobra.Command{
		Use:           "chores",
		Short:         "Household chore tracker",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.open()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.close()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return ui.Run(a.store, a.cfg, a.log)
		},
	}

	rootCmd.AddCommand(listCmd(a))
	rootCmd.AddCommand(addCmd(a))
	rootCmd.AddCommand(doneCmd(a))
	rootCmd.AddCommand(resetCmd(a))
	rootCmd.AddCommand(forceDueCmd(a))
	rootCmd.AddCommand(deleteCmd(a))
	rootCmd.AddCommand(historyCmd(a))
	rootCmd.AddCommand(statsCmd(a))
	rootCmd.AddCommand(pendingCmd(a))
	rootCmd.AddCommand(assigneesCmd(a))
	rootCmd.AddCommand(pruneCmd(a))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		a.close()
		os.Exit(1)
	}
}

func (a *app) open() error {
	configPath := config.ResolveConfigPath()
	cfg, err := config.LoadOrCreate(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	a.cfg = cfg

	log, closeLog, err := logging.New(logging.Config{
		Level:    cfg.Log.Level,
		Encoding: cfg.Log.Encoding,
		Path:     cfg.Log.Path,
	})
	if err != nil {
		return fmt.Errorf("failed to open log: %w", err)
	}
	a.log, a.closeLog = log, closeLog

	store, err := storage.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	a.store = store
	a.log.Debug("started", zap.String("config", configPath), zap.String("db", cfg.DBPath))
	return nil
}

func (a *app) close() error {
	var errs []error
	if a.store != nil {
		errs = append(errs, a.store.Close())
		a.store = nil
	}
	if a.log != nil {
		_ = a.log.Sync()
		errs = append(errs, a.closeLog())
		a.log = nil
	}
	return errors.Join(errs...)
}
