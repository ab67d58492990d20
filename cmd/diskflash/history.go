package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/diskflash/diskflash/internal/journal"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show past flash operations",
	Run:   runHistory,
}

func init() {
	historyCmd.Flags().Int("limit", 20, "Maximum number of operations to show")
	historyCmd.Flags().String("identity", "", "Filter by device identity")
}

func runHistory(cmd *cobra.Command, args []string) {
	cfg := loadConfig()

	db, err := journal.New(cfg.JournalPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening journal: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	limit, _ := cmd.Flags().GetInt("limit")
	identityFilter, _ := cmd.Flags().GetString("identity")

	var ops []*journal.Operation
	if identityFilter != "" {
		ops, err = db.ListByIdentity(identityFilter, limit)
	} else {
		ops, err = db.List(limit)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error querying journal: %v\n", err)
		os.Exit(1)
	}

	if len(ops) == 0 {
		fmt.Println("No flash operations recorded.")
		return
	}

	fmt.Printf("%-14s %-14s %-24s %-10s %s\n",
		"WHEN", "DEVICE", "IMAGE", "STATE", "DETAIL")
	fmt.Println(strings.Repeat("-", 90))
	for _, op := range ops {
		fmt.Printf("%-14s %-14s %-24s %-10s %s\n",
			humanize.Time(op.StartedAt),
			op.DevicePath,
			filepath.Base(op.ImagePath),
			op.State,
			op.Detail)
	}
}
