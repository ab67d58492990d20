package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/diskflash/diskflash/internal/config"
	"github.com/diskflash/diskflash/internal/discovery"
	"github.com/diskflash/diskflash/internal/flash"
	"github.com/diskflash/diskflash/internal/journal"
	"github.com/diskflash/diskflash/internal/volume"
)

var flashCmd = &cobra.Command{
	Use:   "flash <image> <device>",
	Short: "Write an image to a removable device with verification",
	Long: `Write a raw .img/.iso byte stream to a removable device.

The target must appear in 'diskflash list'. The image checksum is
verified (or computed and recorded) before the first byte is written,
the device is unmounted for the write and remounted afterwards, and
the written prefix is read back for verification.`,
	Args: cobra.ExactArgs(2),
	Run:  runFlash,
}

func init() {
	flashCmd.Flags().BoolP("yes", "y", false, "Skip the confirmation prompt")
	flashCmd.Flags().Bool("simulate", false, "Write to an in-memory device instead of hardware")
	flashCmd.Flags().String("checksum", "", "Expected SHA-256 digest of the image")
}

func runFlash(cmd *cobra.Command, args []string) {
	imagePath, devicePath := args[0], args[1]
	cfg := loadConfig()

	yes, _ := cmd.Flags().GetBool("yes")
	simulate, _ := cmd.Flags().GetBool("simulate")
	declared, _ := cmd.Flags().GetString("checksum")
	simulate = simulate || cfg.Simulate

	scanner, _ := newScanner(cfg)
	records, err := scanner.Scan(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error scanning devices: %v\n", err)
		os.Exit(1)
	}

	var rec *discovery.DeviceRecord
	for _, r := range records {
		if r.DevicePath == devicePath {
			rec = r
			break
		}
	}
	if rec == nil {
		fmt.Fprintf(os.Stderr, "Error: %s is not a flashable device (see 'diskflash list')\n", devicePath)
		os.Exit(1)
	}

	st, err := os.Stat(imagePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: image not found: %s\n", imagePath)
		os.Exit(1)
	}
	img := &flash.ImageDescriptor{
		Path:      imagePath,
		SizeBytes: st.Size(),
		Format:    strings.TrimPrefix(filepath.Ext(imagePath), "."),
		Checksum:  declared,
	}

	if !yes && !confirmFlash(img, rec) {
		fmt.Println("Operation cancelled.")
		return
	}

	db, err := journal.New(cfg.JournalPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening journal: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	engine := newFlashEngine(cfg, rec, simulate)

	opID, err := db.Begin(rec.DevicePath, rec.Identity, img.Path, img.SizeBytes)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error recording operation: %v\n", err)
		os.Exit(1)
	}

	done := make(chan struct{})
	go reportProgress(engine, done)

	flashErr := engine.Flash(context.Background(), img, rec)
	close(done)
	fmt.Println()

	if flashErr != nil {
		if jerr := db.Finish(opID, journal.StateFailed, img.Checksum, flashErr.Error()); jerr != nil {
			fmt.Fprintf(os.Stderr, "Warning: journal update failed: %v\n", jerr)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", flashErr)
		os.Exit(1)
	}

	if jerr := db.Finish(opID, journal.StateCompleted, img.Checksum, ""); jerr != nil {
		fmt.Fprintf(os.Stderr, "Warning: journal update failed: %v\n", jerr)
	}
	fmt.Printf("Flash completed: %s -> %s (sha256 %s)\n", img.Path, rec.DevicePath, img.Checksum)
}

func newFlashEngine(cfg *config.Config, rec *discovery.DeviceRecord, simulate bool) *flash.Engine {
	opts := flash.Options{
		Volumes:   volume.NewDiskutil(cfg.CommandTimeout()),
		ChunkSize: cfg.ChunkSize(),
	}
	if simulate {
		opts.Opener = &flash.MemOpener{Devices: map[string]*flash.MemDevice{
			rec.DevicePath: flash.NewMemDevice(rec.SizeBytes),
		}}
		opts.Volumes = volume.NewFake("")
	}
	return flash.NewEngine(opts)
}

func confirmFlash(img *flash.ImageDescriptor, rec *discovery.DeviceRecord) bool {
	fmt.Printf("Flashing %s (%s) to %s (%s, %s). This erases all data on the device.\n",
		img.Path, humanize.IBytes(uint64(img.SizeBytes)),
		rec.DevicePath, rec.MediaName, humanize.IBytes(uint64(rec.SizeBytes)))
	fmt.Print("Are you sure? [y/N]: ")

	var response string
	fmt.Scanln(&response)
	return response == "y" || response == "Y"
}

// reportProgress polls the engine state and redraws a single status
// line until done closes.
func reportProgress(engine *flash.Engine, done <-chan struct{}) {
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			st := engine.State()
			switch st.Phase {
			case flash.PhaseCalculatingChecksum, flash.PhaseFlashing:
				fmt.Printf("\r%s... %5.1f%%", st.Phase, st.Progress*100)
			default:
				fmt.Printf("\r%s...", st.Phase)
			}
		}
	}
}
