// Package discovery enumerates removable block devices and assembles
// the flashable candidate list consumed by the presentation layer.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync/atomic"

	"github.com/charmbracelet/log"

	"github.com/diskflash/diskflash/internal/identity"
	"github.com/diskflash/diskflash/internal/inventory"
	"github.com/diskflash/diskflash/internal/logging"
	"github.com/diskflash/diskflash/internal/metadata"
	"github.com/diskflash/diskflash/internal/scheme"
	"github.com/diskflash/diskflash/internal/volume"
)

// diskImageSentinel is the media name the arbitration layer assigns to
// mounted disk-image volumes, which must never be offered as targets.
const diskImageSentinel = "Disk Image"

// ErrScanInProgress is returned when a scan is requested while another
// one is still running. Concurrent scans are not supported.
var ErrScanInProgress = errors.New("scan already in progress")

// Scanner produces the authoritative candidate list for a scan cycle.
type Scanner struct {
	registry  metadata.Registry
	volumes   volume.Manager
	inventory *inventory.Store

	// detectScheme is the partition-scheme probe; overridable so
	// tests do not read raw device nodes.
	detectScheme func(path string) scheme.Scheme

	scanning atomic.Bool
	log      *log.Logger
}

func NewScanner(reg metadata.Registry, vol volume.Manager, inv *inventory.Store) *Scanner {
	return &Scanner{
		registry:     reg,
		volumes:      vol,
		inventory:    inv,
		detectScheme: scheme.DetectPath,
		log:          logging.Get("discovery"),
	}
}

// Scan runs one enumeration pass and returns the filtered, enriched
// device list in registry discovery order. A registry-wide failure
// yields a nil list and an error; a single device's metadata failure
// only degrades that device's record.
func (s *Scanner) Scan(ctx context.Context) ([]*DeviceRecord, error) {
	if !s.scanning.CompareAndSwap(false, true) {
		return nil, ErrScanInProgress
	}
	defer s.scanning.Store(false)

	bootPath, err := s.volumes.BootDevicePath(ctx)
	if err != nil {
		// Without a boot path the exclusion check cannot match, so
		// candidates are still produced; flashing it remains blocked
		// by the removable+ejectable class filter.
		s.log.Warn("boot device query failed", "err", err)
	}

	candidates, err := s.registry.ListRemovable(ctx)
	if err != nil {
		return nil, fmt.Errorf("device registry enumeration failed: %w", err)
	}

	allBags, err := s.registry.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("device registry enumeration failed: %w", err)
	}

	var records []*DeviceRecord
	for _, bag := range candidates {
		// Slices of another device are rejected before any further
		// metadata work or inventory writes happen for them.
		if !IsWholeDevicePath(bag.DevicePath) {
			continue
		}

		rec := s.buildRecord(ctx, bag, allBags)

		if rec.DevicePath == bootPath && bootPath != "" {
			s.log.Debug("excluding boot device", "device", rec.DevicePath)
			continue
		}
		if isDiskImage(bag) {
			s.log.Debug("excluding mounted disk image", "device", rec.DevicePath)
			continue
		}

		rec.Scheme = s.detectScheme(rec.DevicePath)
		records = append(records, rec)
	}

	return records, nil
}

// buildRecord assembles the immutable snapshot for one accepted whole
// device and records its sighting in the inventory.
func (s *Scanner) buildRecord(ctx context.Context, bag *metadata.Metadata, allBags []*metadata.Metadata) *DeviceRecord {
	rec := &DeviceRecord{
		DevicePath: bag.DevicePath,
		Removable:  bag.Removable,
		Ejectable:  bag.Ejectable,
		ReadOnly:   !bag.Writable,
		SizeBytes:  bag.Size(),
		MediaName:  bag.MediaNameOr(""),
		Vendor:     bag.VendorOrUnknown(),
		Revision:   bag.RevisionOrUnknown(),
		DeviceType: Classify(bag.ProtocolOr(""), bag.MediaNameOr("")),
		Scheme:     scheme.Unknown,
		Partitions: s.scanPartitions(ctx, bag.DevicePath, allBags),
	}

	if hasIdentityInputs(bag) {
		rec.Identity = identity.Derive(bag)
		err := s.inventory.AddOrUpdate(rec.Identity, rec.DevicePath, rec.SizeBytes,
			rec.MediaName, string(rec.DeviceType), bag.Vendor, bag.Revision)
		if err != nil {
			s.log.Warn("inventory update failed", "identity", rec.Identity, "err", err)
		}
	}

	return rec
}

// Partitions enumerates the slices of a whole device, ordered by
// slice number ascending. Zero partitions is a valid result.
func (s *Scanner) Partitions(ctx context.Context, parentPath string) ([]PartitionInfo, error) {
	allBags, err := s.registry.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("device registry enumeration failed: %w", err)
	}
	return s.scanPartitions(ctx, parentPath, allBags), nil
}

func (s *Scanner) scanPartitions(ctx context.Context, parentPath string, allBags []*metadata.Metadata) []PartitionInfo {
	type numbered struct {
		n    int
		info PartitionInfo
	}

	var slices []numbered
	for _, bag := range allBags {
		n, ok := sliceNumber(parentPath, bag.DevicePath)
		if !ok {
			continue
		}

		// Volume-level enrichment goes through the query service so
		// slices listed without volume fields still degrade cleanly.
		vol := s.registry.Query(ctx, bag.DevicePath)
		if vol == nil {
			vol = bag
		}

		slices = append(slices, numbered{n: n, info: PartitionInfo{
			DevicePath: bag.DevicePath,
			SizeBytes:  vol.Size(),
			VolumeName: strOr(vol.VolumeName, ""),
			Filesystem: strOr(vol.Filesystem, ""),
			MountPoint: strOr(vol.MountPoint, ""),
			Writable:   vol.Writable,
		}})
	}

	// Slice order follows the numeric suffix, not discovery order.
	sort.Slice(slices, func(i, j int) bool { return slices[i].n < slices[j].n })

	out := make([]PartitionInfo, len(slices))
	for i, sl := range slices {
		out[i] = sl.info
	}
	return out
}

// isDiskImage reports whether the bag describes a mounted disk image.
func isDiskImage(bag *metadata.Metadata) bool {
	return bag.MediaNameOr("") == diskImageSentinel ||
		strOr(bag.VolumeName, "") == diskImageSentinel
}

// hasIdentityInputs reports whether enough metadata exists to derive a
// meaningful identity. With nothing reported at all the record keeps
// an absent identity instead of a degenerate constant one.
func hasIdentityInputs(bag *metadata.Metadata) bool {
	return bag.Vendor != nil || bag.Revision != nil || bag.Size() > 0
}

func strOr(p *string, def string) string {
	if p != nil {
		return *p
	}
	return def
}
