// Package volume wraps the platform volume-management utility. All
// calls shell out to diskutil with a bounded context so a wedged
// subprocess cannot stall a scan or flash indefinitely.
package volume

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"howett.net/plist"

	"github.com/diskflash/diskflash/internal/logging"
)

// Manager is the mount/unmount and boot-device boundary.
type Manager interface {
	// BootDevicePath returns the whole-disk device path backing the
	// root filesystem, e.g. /dev/disk0.
	BootDevicePath(ctx context.Context) (string, error)

	// IsMounted reports whether the device or any of its volumes is
	// currently mounted.
	IsMounted(ctx context.Context, devicePath string) (bool, error)

	// UnmountDisk unmounts every volume of the device.
	UnmountDisk(ctx context.Context, devicePath string) error

	// MountDisk remounts the device's volumes.
	MountDisk(ctx context.Context, devicePath string) error
}

// Diskutil is the production Manager.
type Diskutil struct {
	timeout time.Duration
}

func NewDiskutil(timeout time.Duration) *Diskutil {
	return &Diskutil{timeout: timeout}
}

var volLog = logging.Get("volume")

// rootInfo is the subset of `diskutil info -plist /` the boot-device
// query reads.
type rootInfo struct {
	ParentWholeDisk string `plist:"ParentWholeDisk"`
	DeviceNode      string `plist:"DeviceNode"`
	MountPoint      string `plist:"MountPoint"`
}

func (d *Diskutil) BootDevicePath(ctx context.Context) (string, error) {
	out, err := d.run(ctx, "info", "-plist", "/")
	if err != nil {
		return "", fmt.Errorf("boot device query failed: %w", err)
	}

	var info rootInfo
	if _, err := plist.Unmarshal(out, &info); err != nil {
		return "", fmt.Errorf("boot device query returned undecodable output: %w", err)
	}

	if info.ParentWholeDisk != "" {
		return "/dev/" + info.ParentWholeDisk, nil
	}
	if info.DeviceNode != "" {
		return info.DeviceNode, nil
	}
	return "", fmt.Errorf("boot device query returned no device node")
}

func (d *Diskutil) IsMounted(ctx context.Context, devicePath string) (bool, error) {
	out, err := d.run(ctx, "info", "-plist", devicePath)
	if err != nil {
		return false, fmt.Errorf("mount query for %s failed: %w", devicePath, err)
	}

	var info rootInfo
	if _, err := plist.Unmarshal(out, &info); err != nil {
		return false, fmt.Errorf("mount query for %s returned undecodable output: %w", devicePath, err)
	}
	return info.MountPoint != "", nil
}

func (d *Diskutil) UnmountDisk(ctx context.Context, devicePath string) error {
	if _, err := d.run(ctx, "unmountDisk", devicePath); err != nil {
		return fmt.Errorf("unmount %s: %w", devicePath, err)
	}
	return nil
}

func (d *Diskutil) MountDisk(ctx context.Context, devicePath string) error {
	if _, err := d.run(ctx, "mountDisk", devicePath); err != nil {
		return fmt.Errorf("mount %s: %w", devicePath, err)
	}
	return nil
}

// run executes diskutil under the configured timeout. A non-zero exit
// surfaces the captured output as the error detail.
func (d *Diskutil) run(ctx context.Context, args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	volLog.Debug("diskutil", "args", strings.Join(args, " "))

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, "diskutil", args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			detail = strings.TrimSpace(stdout.String())
		}
		if detail != "" {
			return nil, fmt.Errorf("diskutil %s: %w: %s", args[0], err, detail)
		}
		return nil, fmt.Errorf("diskutil %s: %w", args[0], err)
	}
	return stdout.Bytes(), nil
}
