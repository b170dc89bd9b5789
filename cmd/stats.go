package cmd

import (
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dhcgn/vmsg2csv/atomicfile"
	"github.com/dhcgn/vmsg2csv/filter"
	"github.com/dhcgn/vmsg2csv/stats"
)

const reportLimit = 1000

func newStatsCommand() *cobra.Command {
	statsCmd := &cobra.Command{
		Use:   "stats <source.vmsg>",
		Short: "Analyse a vmsg backup and show statistics",
		Args:  cobra.ExactArgs(1),
		RunE:  runStats,
	}
	statsCmd.Flags().StringP("output", "o", "", "Output directory for CSV reports (none when empty)")
	statsCmd.Flags().IntP("top", "t", 10, "Number of top items to display in statistics")
	return statsCmd
}

func runStats(cmd *cobra.Command, args []string) error {
	reportDir, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	topN, err := cmd.Flags().GetInt("top")
	if err != nil {
		return err
	}

	s, err := start(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	records, f, err := s.loadRecords(args[0])
	if err != nil {
		return err
	}

	breakdown := stats.NewBreakdown()
	for _, rec := range records {
		breakdown.Add(rec)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Analysed %s: %d messages\n\n", args[0], breakdown.Total)
	printFilterStats(out, f.GetStats())
	for _, category := range stats.Categories {
		fmt.Fprintf(out, "Top %d %s:\n", topN, category)
		stats.PrettyPrintTop(out, breakdown.Counts[category], topN)
		fmt.Fprintln(out)
	}

	if reportDir == "" {
		return nil
	}
	if err := saveCSVReports(breakdown, reportDir, reportLimit); err != nil {
		return fmt.Errorf("save CSV reports: %w", err)
	}
	fmt.Fprintf(out, "Reports saved to directory: %s\n", reportDir)
	return nil
}

func saveCSVReports(b *stats.Breakdown, dir string, limit int) error {
	for _, category := range stats.Categories {
		filename := fmt.Sprintf("report_%s.csv", normalizeCategory(category))
		path := filepath.Join(dir, filename)

		err := atomicfile.Write(path, 0o644, func(w io.Writer) error {
			writer := csv.NewWriter(w)
			if err := writer.Write([]string{"Value", "Count"}); err != nil {
				return err
			}
			for _, p := range stats.Top(b.Counts[category], limit) {
				if err := writer.Write([]string{p.Key, strconv.Itoa(p.Value)}); err != nil {
					return err
				}
			}
			writer.Flush()
			return writer.Error()
		})
		if err != nil {
			return fmt.Errorf("%s: %w", filename, err)
		}
	}
	return nil
}

func normalizeCategory(category string) string {
	name := strings.ToLower(category)
	name = strings.ReplaceAll(name, "-", "_")
	name = strings.ReplaceAll(name, " ", "_")
	return name
}

func printFilterStats(w io.Writer, fs filter.Stats) {
	groups := []struct {
		title    string
		patterns []string
	}{
		{"Include Phone Filters", fs.IncludePhonePatterns},
		{"Include Content Filters", fs.IncludeContentPatterns},
		{"Exclude Phone Filters", fs.ExcludePhonePatterns},
		{"Exclude Content Filters", fs.ExcludeContentPatterns},
	}

	printed := false
	for _, g := range groups {
		if len(g.patterns) == 0 {
			continue
		}
		printed = true
		fmt.Fprintf(w, "%s:\n", g.title)
		printFilterHits(w, g.patterns, fs.Hits)
		fmt.Fprintln(w)
	}
	if printed {
		fmt.Fprintln(w, "---")
		fmt.Fprintln(w)
	}
}

func printFilterHits(w io.Writer, patterns []string, hits map[string]int) {
	type pair struct {
		Pattern string
		Count   int
	}
	pairs := make([]pair, 0, len(patterns))
	for _, pattern := range patterns {
		pairs = append(pairs, pair{pattern, hits[pattern]})
	}

	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].Count != pairs[j].Count {
			return pairs[i].Count > pairs[j].Count
		}
		return pairs[i].Pattern < pairs[j].Pattern
	})

	for _, p := range pairs {
		if p.Count > 0 {
			fmt.Fprintf(w, "  ✓ %s: %d hits\n", p.Pattern, p.Count)
		} else {
			fmt.Fprintf(w, "  ✗ %s: 0 hits\n", p.Pattern)
		}
	}
}
