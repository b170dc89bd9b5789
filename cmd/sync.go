package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dhcgn/vmsg2csv/config"
	"github.com/dhcgn/vmsg2csv/imap"
	"github.com/dhcgn/vmsg2csv/mbox"
	"github.com/dhcgn/vmsg2csv/progress"
	"github.com/dhcgn/vmsg2csv/runner"
	"github.com/dhcgn/vmsg2csv/state"
	"github.com/dhcgn/vmsg2csv/stats"
)

func newSyncCommand() (*cobra.Command, error) {
	syncCmd := &cobra.Command{
		Use:   "sync <source.vmsg>",
		Short: "Upload a vmsg backup into an IMAP folder",
		Args:  cobra.ExactArgs(1),
		RunE:  runSync,
	}
	if err := config.RegisterSyncFlags(syncCmd); err != nil {
		return nil, err
	}
	return syncCmd, nil
}

func runSync(cmd *cobra.Command, args []string) error {
	syncCfg, err := config.LoadSyncConfig(cmd)
	if err != nil {
		return err
	}

	s, err := start(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	source := args[0]
	records, _, err := s.loadRecords(source)
	if err != nil {
		return err
	}

	s.logger.Info("starting sync", "source", source, "records", len(records), "target", syncCfg.TargetFolder, "dryRun", syncCfg.DryRun)

	tracker, err := state.NewFileTracker(syncCfg.StateDir, syncCfg.TargetFolder, !syncCfg.DryRun)
	if err != nil {
		return fmt.Errorf("open state: %w", err)
	}
	defer func() {
		if err := tracker.Close(); err != nil {
			s.logger.Warn("closing state failed", "path", tracker.Path(), "err", err)
		}
	}()

	r, err := runner.New(cmd.Context(), tracker, s.logger)
	if err != nil {
		return fmt.Errorf("runner.New: %w", err)
	}

	bar := progress.New(len(records), tracker.Snapshot().Processed, s.cfg.LogLevel)
	if bar.Enabled() {
		progress.NewReporter(r, bar, s.logger)
	} else {
		stats.NewReporter(r, s.logger)
	}

	uploaderOpts := imap.Options{
		Host:               syncCfg.IMAPHost,
		Port:               syncCfg.IMAPPort,
		Username:           syncCfg.IMAPUser,
		Password:           syncCfg.IMAPPass,
		UseTLS:             syncCfg.UseTLS,
		InsecureSkipVerify: syncCfg.InsecureSkipVerify,
		TargetFolder:       syncCfg.TargetFolder,
		MarkSeen:           syncCfg.MarkSeen,
		DryRun:             syncCfg.DryRun,
	}
	if _, err := imap.NewUploader(uploaderOpts, r, s.logger); err != nil {
		r.CloseComposed()
		_ = r.Start()
		return fmt.Errorf("imap.NewUploader: %w", err)
	}
	mbox.NewProducer(records, composeOptions(syncCfg.Compose), r, s.logger)

	return r.Start()
}
