package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/diskflash/diskflash/internal/config"
	"github.com/diskflash/diskflash/internal/discovery"
	"github.com/diskflash/diskflash/internal/inventory"
	"github.com/diskflash/diskflash/internal/logging"
	"github.com/diskflash/diskflash/internal/metadata"
	"github.com/diskflash/diskflash/internal/version"
	"github.com/diskflash/diskflash/internal/volume"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "diskflash",
	Short: "Removable-device discovery and verified image flashing",
	Long: `diskflash discovers external removable storage devices, tracks them
across reconnections by a derived stable identity, and writes raw disk
images to them with checksum verification and safe unmount/remount
bracketing.`,
	Version: version.Version,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the diskflash version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.Version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is /etc/diskflash/config.yaml)")

	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(flashCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(checksumCmd)
	rootCmd.AddCommand(inventoryCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig loads configuration and applies the log level. Errors
// here are unrecoverable for every command.
func loadConfig() *config.Config {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if err := logging.SetLevel(cfg.LogLevel); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

// newScanner wires the production discovery pipeline.
func newScanner(cfg *config.Config) (*discovery.Scanner, *inventory.Store) {
	inv := inventory.Open(cfg.InventoryPath)
	reg := metadata.NewSystemRegistry(cfg.CommandTimeout())
	vol := volume.NewDiskutil(cfg.CommandTimeout())
	return discovery.NewScanner(reg, vol, inv), inv
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
