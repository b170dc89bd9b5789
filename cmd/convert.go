package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/dhcgn/vmsg2csv/atomicfile"
	"github.com/dhcgn/vmsg2csv/row"
)

func runConvert(cmd *cobra.Command, args []string) error {
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

	if err := atomicfile.Write(dest, 0o644, func(w io.Writer) error {
		return row.Write(w, records)
	}); err != nil {
		return fmt.Errorf("write %s: %w", dest, err)
	}

	s.logger.Info("converted backup", "source", source, "dest", dest, "records", len(records))
	return nil
}
