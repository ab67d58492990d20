package metadata

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"time"

	"github.com/jaypipes/ghw"
	"howett.net/plist"

	"github.com/diskflash/diskflash/internal/logging"
)

// Registry answers read-only queries against the host's block-device
// registry and arbitration layer.
type Registry interface {
	// ListAll returns property bags for every block device, whole
	// disks followed by their slices, in discovery order.
	ListAll(ctx context.Context) ([]*Metadata, error)

	// ListRemovable returns bags for devices flagged both removable
	// and ejectable, in discovery order.
	ListRemovable(ctx context.Context) ([]*Metadata, error)

	// Query returns the property bag for a single device path. It
	// never fails: when metadata is unavailable the bag degrades to
	// the device path alone.
	Query(ctx context.Context, devicePath string) *Metadata
}

// SystemRegistry reads the live host: ghw walks the block-device
// registry, diskutil supplies the arbitration-layer property bag for
// each device. Per-device failures degrade the bag, never the walk.
type SystemRegistry struct {
	cache   *bagCache
	timeout time.Duration
}

func NewSystemRegistry(timeout time.Duration) *SystemRegistry {
	return &SystemRegistry{
		cache:   newBagCache(),
		timeout: timeout,
	}
}

var regLog = logging.Get("metadata")

func (r *SystemRegistry) ListAll(ctx context.Context) ([]*Metadata, error) {
	block, err := ghw.Block()
	if err != nil {
		return nil, fmt.Errorf("block registry enumeration failed: %w", err)
	}

	var bags []*Metadata
	for _, disk := range block.Disks {
		path := "/dev/" + disk.Name
		bags = append(bags, r.diskBag(ctx, path, disk))
		for _, part := range disk.Partitions {
			bags = append(bags, r.partitionBag(ctx, "/dev/"+part.Name, part))
		}
	}
	return bags, nil
}

func (r *SystemRegistry) ListRemovable(ctx context.Context) ([]*Metadata, error) {
	all, err := r.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	var bags []*Metadata
	for _, bag := range all {
		if bag.Removable && bag.Ejectable {
			bags = append(bags, bag)
		}
	}
	return bags, nil
}

func (r *SystemRegistry) Query(ctx context.Context, devicePath string) *Metadata {
	if m := r.cache.get(devicePath); m != nil {
		return m
	}
	m := translate(devicePath, nil, nil, r.arbitrationBag(ctx, devicePath))
	r.cache.set(devicePath, m)
	return m
}

func (r *SystemRegistry) diskBag(ctx context.Context, path string, disk *ghw.Disk) *Metadata {
	if m := r.cache.get(path); m != nil {
		return m
	}
	m := translate(path, disk, nil, r.arbitrationBag(ctx, path))
	r.cache.set(path, m)
	return m
}

func (r *SystemRegistry) partitionBag(ctx context.Context, path string, part *ghw.Partition) *Metadata {
	if m := r.cache.get(path); m != nil {
		return m
	}
	m := translate(path, nil, part, r.arbitrationBag(ctx, path))
	r.cache.set(path, m)
	return m
}

// arbitrationBag runs `diskutil info -plist` for one device. Returns
// nil when the utility fails or its output cannot be decoded; callers
// fall back to registry-only fields.
func (r *SystemRegistry) arbitrationBag(ctx context.Context, devicePath string) *arbitrationInfo {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, "diskutil", "info", "-plist", devicePath).Output()
	if err != nil {
		regLog.Debug("arbitration query failed", "device", devicePath, "err", err)
		return nil
	}

	var info arbitrationInfo
	if _, err := plist.Unmarshal(bytes.TrimSpace(out), &info); err != nil {
		regLog.Debug("arbitration bag decode failed", "device", devicePath, "err", err)
		return nil
	}
	return &info
}

// arbitrationInfo mirrors the subset of the diskutil property bag the
// engine consumes.
type arbitrationInfo struct {
	DeviceNode     string `plist:"DeviceNode"`
	MediaName      string `plist:"MediaName"`
	BusProtocol    string `plist:"BusProtocol"`
	DeviceVendor   string `plist:"DeviceVendor"`
	DeviceRevision string `plist:"DeviceRevision"`
	Ejectable      bool   `plist:"Ejectable"`
	RemovableMedia bool   `plist:"RemovableMedia"`
	WritableMedia  bool   `plist:"WritableMedia"`
	WholeDisk      bool   `plist:"WholeDisk"`
	TotalSize      int64  `plist:"TotalSize"`
	DiskUUID       string `plist:"DiskUUID"`
	VolumeName     string `plist:"VolumeName"`
	FilesystemName string `plist:"FilesystemName"`
	MountPoint     string `plist:"MountPoint"`
}

// translate is the single translation point from raw OS structures to
// the typed bag. Any of disk, part and info may be nil; absent inputs
// leave fields at their unknown defaults.
func translate(path string, disk *ghw.Disk, part *ghw.Partition, info *arbitrationInfo) *Metadata {
	m := &Metadata{DevicePath: path}

	if disk != nil {
		m.WholeDisk = true
		m.Removable = disk.IsRemovable
		m.Vendor = trimPtr(disk.Vendor)
		if disk.SizeBytes > 0 {
			m.SizeBytes = int64Ptr(int64(disk.SizeBytes))
		}
		if disk.Model != "" && disk.Model != "unknown" {
			m.MediaName = trimPtr(disk.Model)
		}
	}

	if part != nil {
		if part.SizeBytes > 0 {
			m.SizeBytes = int64Ptr(int64(part.SizeBytes))
		}
		m.Filesystem = trimPtr(part.Type)
		m.MountPoint = trimPtr(part.MountPoint)
		m.Writable = !part.IsReadOnly
		m.VolumeName = trimPtr(part.Label)
	}

	if info != nil {
		m.Ejectable = info.Ejectable
		m.Removable = m.Removable || info.RemovableMedia
		m.Writable = info.WritableMedia
		m.WholeDisk = m.WholeDisk || info.WholeDisk
		if info.TotalSize > 0 {
			m.SizeBytes = int64Ptr(info.TotalSize)
		}
		if m.Vendor == nil {
			m.Vendor = trimPtr(info.DeviceVendor)
		}
		m.Revision = trimPtr(info.DeviceRevision)
		if p := trimPtr(info.MediaName); p != nil {
			m.MediaName = p
		}
		if p := trimPtr(info.BusProtocol); p != nil {
			m.Protocol = p
		}
		if p := trimPtr(info.DiskUUID); p != nil {
			m.MediaUUID = p
		}
		if p := trimPtr(info.VolumeName); p != nil {
			m.VolumeName = p
		}
		if p := trimPtr(info.FilesystemName); p != nil {
			m.Filesystem = p
		}
		if p := trimPtr(info.MountPoint); p != nil {
			m.MountPoint = p
		}
	}

	return m
}
