// Package cmd holds the vmsg2csv command line.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/dhcgn/vmsg2csv/config"
	"github.com/dhcgn/vmsg2csv/filter"
	"github.com/dhcgn/vmsg2csv/model"
	"github.com/dhcgn/vmsg2csv/vmsg"
)

// NewRootCommand builds the command tree. The root command converts a vmsg
// backup into CSV; the subcommands reuse its parser, format and filter flags.
func NewRootCommand() (*cobra.Command, error) {
	rootCmd := &cobra.Command{
		Use:           "vmsg2csv <source.vmsg> <dest.csv>",
		Short:         "Convert a vmsg SMS backup into CSV rows",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runConvert,
	}
	config.RegisterFlags(rootCmd)

	syncCmd, err := newSyncCommand()
	if err != nil {
		return nil, fmt.Errorf("register sync flags: %w", err)
	}
	rootCmd.AddCommand(newStatsCommand(), newMboxCommand(), syncCmd)
	return rootCmd, nil
}

// Execute runs the command line with os.Args. An interrupt cancels the
// running command.
func Execute() error {
	rootCmd, err := NewRootCommand()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

// session is the per-invocation state every command starts from.
type session struct {
	cfg     config.Config
	logger  *slog.Logger
	cleanup func() error
}

func start(cmd *cobra.Command) (*session, error) {
	cfg, err := config.LoadConfig(cmd)
	if err != nil {
		return nil, err
	}

	logger, cleanup, err := setupLogger(cfg, cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)

	return &session{cfg: cfg, logger: logger, cleanup: cleanup}, nil
}

func (s *session) close() {
	_ = s.cleanup()
}

// loadRecords parses the backup at path and applies the configured filter.
// The returned filter carries the hit counters of that pass.
func (s *session) loadRecords(path string) ([]model.Record, *filter.Filter, error) {
	decoder, err := vmsg.NewDecoder(s.cfg.Format)
	if err != nil {
		return nil, nil, err
	}

	f, err := filter.New(s.cfg.Filter())
	if err != nil {
		return nil, nil, fmt.Errorf("create filter: %w", err)
	}

	parser := vmsg.NewParser(vmsg.Options{Decoder: decoder, Logger: s.logger})
	records, err := parser.ParseFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("parse %s: %w", path, err)
	}

	kept := f.Apply(records)
	s.logger.Debug("parsed backup", "path", path, "records", len(records), "kept", len(kept), "format", s.cfg.Format)
	return kept, f, nil
}
