package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/diskflash/diskflash/internal/discovery"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List flashable removable devices",
	Long: `Run one enumeration pass and print the flashable candidates.

Partitions and the boot device are never listed as targets; mounted
disk images are excluded.`,
	Run: runList,
}

func init() {
	listCmd.Flags().Bool("json", false, "Output as JSON")
}

func runList(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	scanner, _ := newScanner(cfg)

	records, err := scanner.Scan(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error scanning devices: %v\n", err)
		os.Exit(1)
	}

	jsonOut, _ := cmd.Flags().GetBool("json")
	if jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(records); err != nil {
			fmt.Fprintf(os.Stderr, "Error encoding output: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if len(records) == 0 {
		fmt.Println("No flashable devices found.")
		return
	}

	printDeviceTable(records)
}

func printDeviceTable(records []*discovery.DeviceRecord) {
	fmt.Printf("%-14s %-12s %10s  %-8s %-24s %s\n",
		"DEVICE", "TYPE", "SIZE", "SCHEME", "NAME", "IDENTITY")
	fmt.Println(strings.Repeat("-", 96))

	for _, rec := range records {
		name := rec.MediaName
		if name == "" {
			name = "-"
		}
		fmt.Printf("%-14s %-12s %10s  %-8s %-24s %s\n",
			rec.DevicePath,
			rec.DeviceType,
			humanize.IBytes(uint64(rec.SizeBytes)),
			rec.Scheme,
			name,
			rec.Identity)

		for _, p := range rec.Partitions {
			mount := p.MountPoint
			if mount == "" {
				mount = "not mounted"
			}
			fmt.Printf("  %-12s %-12s %10s  %-8s %s\n",
				p.DevicePath,
				p.Filesystem,
				humanize.IBytes(uint64(p.SizeBytes)),
				p.VolumeName,
				mount)
		}
	}
}
