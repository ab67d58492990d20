package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/diskflash/diskflash/internal/checksum"
	"github.com/diskflash/diskflash/internal/scheme"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <device-or-image>",
	Short: "Detect the partition-table scheme of a device or image",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		loadConfig()
		fmt.Println(scheme.DetectPath(args[0]))
	},
}

var checksumCmd = &cobra.Command{
	Use:   "checksum <image>",
	Short: "Compute the SHA-256 digest of an image file",
	Args:  cobra.ExactArgs(1),
	Run:   runChecksum,
}

func runChecksum(cmd *cobra.Command, args []string) {
	loadConfig()

	job := checksum.NewJob(args[0], 0)

	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(200 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				fmt.Fprintf(os.Stderr, "\rhashing... %5.1f%%", job.Progress()*100)
			}
		}
	}()

	digest, err := job.Run(context.Background())
	close(done)
	fmt.Fprintln(os.Stderr)

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("%s  %s\n", digest, args[0])
}
