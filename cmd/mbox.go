package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dhcgn/vmsg2csv/config"
	"github.com/dhcgn/vmsg2csv/mbox"
)

func newMboxCommand() *cobra.Command {
	mboxCmd := &cobra.Command{
		Use:   "mbox <source.vmsg> <dest.mbox>",
		Short: "Export a vmsg backup as an mbox archive",
		Args:  cobra.ExactArgs(2),
		RunE:  runMbox,
	}
	config.RegisterComposeFlags(mboxCmd)
	return mboxCmd
}

func runMbox(cmd *cobra.Command, args []string) error {
	composeCfg, err := config.LoadComposeConfig(cmd)
	if err != nil {
		return err
	}

	s, err := start(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	source, dest := args[0], args[1]
	records, _, err := s.loadRecords(source)
	if err != nil {
		return err
	}

	n, err := mbox.Export(dest, records, composeOptions(composeCfg))
	if err != nil {
		return fmt.Errorf("export %s: %w", dest, err)
	}

	s.logger.Info("exported backup", "source", source, "dest", dest, "messages", n)
	return nil
}

func composeOptions(cfg config.ComposeConfig) mbox.ComposeOptions {
	return mbox.ComposeOptions{Owner: cfg.Owner, Domain: cfg.Domain}
}
