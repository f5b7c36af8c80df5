package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Shobayosamuel/cloudbox-go/internal/history"
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent transfers",
		Args:  cobra.NoArgs,
		RunE:  runHistory,
	}

	cmd.Flags().Int("limit", 50, "maximum number of entries to show")

	return cmd
}

func runHistory(cmd *cobra.Command, _ []string) error {
	logger := buildLogger()

	if err := os.MkdirAll(resolvedCfg.StateDir, 0o700); err != nil {
		return fmt.Errorf("creating state dir: %w", err)
	}

	ledger, err := history.Open(cmd.Context(), historyDBPath(), logger)
	if err != nil {
		return err
	}
	defer ledger.Close()

	limit, _ := cmd.Flags().GetInt("limit")

	entries, err := ledger.Recent(cmd.Context(), limit)
	if err != nil {
		return err
	}

	if flagJSON {
		return json.NewEncoder(os.Stdout).Encode(entries)
	}

	if len(entries) == 0 {
		statusf(flagQuiet, "No transfers recorded\n")
		return nil
	}

	rows := make([][]string, 0, len(entries))

	for _, e := range entries {
		name := e.FileName
		if name == "" && e.FileID != 0 {
			name = "#" + strconv.FormatInt(e.FileID, 10)
		}

		outcome := e.Outcome
		if e.Detail != "" {
			outcome = fmt.Sprintf("%s (%s)", e.Outcome, e.Detail)
		}

		size := ""
		if e.Size > 0 {
			size = formatSize(e.Size)
		}

		rows = append(rows, []string{
			e.At.Local().Format("2006-01-02 15:04"),
			e.Op,
			name,
			size,
			outcome,
		})
	}

	printTable([]string{"WHEN", "OP", "FILE", "SIZE", "OUTCOME"}, rows)

	return nil
}
