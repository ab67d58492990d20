package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/diskflash/diskflash/internal/inventory"
)

var inventoryCmd = &cobra.Command{
	Use:   "inventory",
	Short: "Manage the device inventory",
	Long: `Manage the persistent inventory of devices seen across scans.

Devices are keyed by a stable identity derived from vendor, revision
and size, so the same stick is recognized whichever port or device
path it comes back on. Custom names and type overrides survive
restarts.`,
}

var inventoryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all remembered devices",
	Run:   runInventoryList,
}

var inventoryRenameCmd = &cobra.Command{
	Use:   "rename <identity> [name]",
	Short: "Set or clear a device's display name",
	Long:  "Set the custom display name for a device. Omit the name to clear the override.",
	Args:  cobra.RangeArgs(1, 2),
	Run:   runInventoryRename,
}

var inventorySetTypeCmd = &cobra.Command{
	Use:   "set-type <identity> <type>",
	Short: "Override a device's type classification",
	Args:  cobra.ExactArgs(2),
	Run:   runInventorySetType,
}

var inventoryForgetCmd = &cobra.Command{
	Use:   "forget <identity>",
	Short: "Delete a device from the inventory",
	Args:  cobra.ExactArgs(1),
	Run:   runInventoryForget,
}

func init() {
	inventoryCmd.AddCommand(inventoryListCmd)
	inventoryCmd.AddCommand(inventoryRenameCmd)
	inventoryCmd.AddCommand(inventorySetTypeCmd)
	inventoryCmd.AddCommand(inventoryForgetCmd)

	inventoryListCmd.Flags().Bool("json", false, "Output as JSON")
}

func openInventory() *inventory.Store {
	cfg := loadConfig()
	return inventory.Open(cfg.InventoryPath)
}

func runInventoryList(cmd *cobra.Command, args []string) {
	store := openInventory()
	items := store.Items()

	jsonOut, _ := cmd.Flags().GetBool("json")
	if jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(items); err != nil {
			fmt.Fprintf(os.Stderr, "Error encoding output: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if len(items) == 0 {
		fmt.Println("No devices in inventory. Run 'diskflash list' to populate.")
		return
	}

	fmt.Printf("%-28s %-24s %-12s %10s  %-14s %s\n",
		"IDENTITY", "NAME", "TYPE", "SIZE", "FIRST SEEN", "LAST SEEN")
	fmt.Println(strings.Repeat("-", 110))
	for _, it := range items {
		fmt.Printf("%-28s %-24s %-12s %10s  %-14s %s\n",
			it.MediaUUID,
			it.DisplayName(),
			it.DeviceType,
			humanize.IBytes(uint64(it.Size)),
			humanize.Time(it.FirstSeen),
			humanize.Time(it.LastSeen))
	}
}

func runInventoryRename(cmd *cobra.Command, args []string) {
	store := openInventory()

	var name *string
	if len(args) == 2 && args[1] != "" {
		name = &args[1]
	}
	if err := store.SetCustomName(args[0], name); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runInventorySetType(cmd *cobra.Command, args []string) {
	store := openInventory()
	if err := store.SetDeviceType(args[0], args[1]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runInventoryForget(cmd *cobra.Command, args []string) {
	store := openInventory()
	if err := store.Remove(args[0]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
