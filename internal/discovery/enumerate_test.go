package discovery

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diskflash/diskflash/internal/inventory"
	"github.com/diskflash/diskflash/internal/metadata"
	"github.com/diskflash/diskflash/internal/scheme"
	"github.com/diskflash/diskflash/internal/volume"
)

func strPtr(s string) *string { return &s }

func int64Ptr(v int64) *int64 { return &v }

func removableDisk(path string, size int64, vendor, revision string) *metadata.Metadata {
	return &metadata.Metadata{
		DevicePath: path,
		Removable:  true,
		Ejectable:  true,
		Writable:   true,
		WholeDisk:  true,
		Vendor:     strPtr(vendor),
		Revision:   strPtr(revision),
		SizeBytes:  int64Ptr(size),
		MediaName:  strPtr("Flash Drive"),
		Protocol:   strPtr("USB"),
	}
}

func newTestScanner(t *testing.T, reg metadata.Registry, vol volume.Manager) (*Scanner, *inventory.Store) {
	t.Helper()
	inv := inventory.Open(filepath.Join(t.TempDir(), "inventory.json"))
	s := NewScanner(reg, vol, inv)
	s.detectScheme = func(string) scheme.Scheme { return scheme.MBR }
	return s, inv
}

func TestScanEndToEnd(t *testing.T) {
	// One boot device, one removable device per the distilled
	// acceptance scenario.
	reg := &metadata.StaticRegistry{Bags: []*metadata.Metadata{
		removableDisk("/dev/disk2", 16000000000, "Acme", "1.0"),
	}}
	s, inv := newTestScanner(t, reg, volume.NewFake("/dev/disk0"))

	records, err := s.Scan(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, "/dev/disk2", rec.DevicePath)
	assert.Equal(t, "Acme_1.0_1600", rec.Identity)
	assert.Empty(t, rec.Partitions)
	assert.Equal(t, scheme.MBR, rec.Scheme)
	assert.Equal(t, TypeUSBDrive, rec.DeviceType)
	assert.False(t, rec.ReadOnly)

	// The sighting landed in the inventory.
	require.NotNil(t, inv.Get("Acme_1.0_1600"))
}

func TestScanExcludesBootDevice(t *testing.T) {
	reg := &metadata.StaticRegistry{Bags: []*metadata.Metadata{
		removableDisk("/dev/disk0", 500000000000, "Apple", "2.0"),
		removableDisk("/dev/disk2", 16000000000, "Acme", "1.0"),
	}}
	s, _ := newTestScanner(t, reg, volume.NewFake("/dev/disk0"))

	records, err := s.Scan(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	for _, rec := range records {
		assert.NotEqual(t, "/dev/disk0", rec.DevicePath)
	}
}

func TestScanRejectsSlicesBeforeInventory(t *testing.T) {
	// A slice reported in the removable class must never become a
	// top-level record nor an inventory entry.
	slice := removableDisk("/dev/disk2s1", 8000000000, "Acme", "1.0")
	slice.WholeDisk = false
	reg := &metadata.StaticRegistry{Bags: []*metadata.Metadata{
		slice,
		removableDisk("/dev/disk2", 16000000000, "Acme", "1.0"),
	}}
	s, inv := newTestScanner(t, reg, volume.NewFake("/dev/disk0"))

	records, err := s.Scan(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "/dev/disk2", records[0].DevicePath)

	// Only one sighting: the whole device.
	assert.Len(t, inv.Items(), 1)
}

func TestScanExcludesMountedDiskImages(t *testing.T) {
	img := removableDisk("/dev/disk5", 700000000, "Apple", "1.0")
	img.MediaName = strPtr("Disk Image")
	reg := &metadata.StaticRegistry{Bags: []*metadata.Metadata{img}}
	s, _ := newTestScanner(t, reg, volume.NewFake("/dev/disk0"))

	records, err := s.Scan(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestScanPartitionsOrderedBySliceNumber(t *testing.T) {
	p2 := &metadata.Metadata{
		DevicePath: "/dev/disk2s2", SizeBytes: int64Ptr(4000),
		VolumeName: strPtr("DATA"), Filesystem: strPtr("exfat"),
		MountPoint: strPtr("/Volumes/DATA"), Writable: true,
	}
	p10 := &metadata.Metadata{
		DevicePath: "/dev/disk2s10", SizeBytes: int64Ptr(1000),
		VolumeName: strPtr("EXTRA"), Writable: true,
	}
	p1 := &metadata.Metadata{
		DevicePath: "/dev/disk2s1", SizeBytes: int64Ptr(2000),
		VolumeName: strPtr("BOOT"), Filesystem: strPtr("fat32"),
	}
	// Discovery order deliberately scrambled; output must sort by
	// slice number, 2 before 10.
	reg := &metadata.StaticRegistry{Bags: []*metadata.Metadata{
		removableDisk("/dev/disk2", 16000000000, "Acme", "1.0"),
		p10, p2, p1,
		// A different disk's slice must not leak in.
		{DevicePath: "/dev/disk3s1", SizeBytes: int64Ptr(5000)},
	}}
	s, _ := newTestScanner(t, reg, volume.NewFake("/dev/disk0"))

	records, err := s.Scan(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)

	parts := records[0].Partitions
	require.Len(t, parts, 3)
	assert.Equal(t, "/dev/disk2s1", parts[0].DevicePath)
	assert.Equal(t, "/dev/disk2s2", parts[1].DevicePath)
	assert.Equal(t, "/dev/disk2s10", parts[2].DevicePath)
	assert.Equal(t, "DATA", parts[1].VolumeName)
	assert.Equal(t, "/Volumes/DATA", parts[1].MountPoint)
	assert.True(t, records[0].Mounted())
}

func TestScanRegistryFailure(t *testing.T) {
	reg := &metadata.StaticRegistry{Err: errors.New("arbitration daemon unreachable")}
	s, _ := newTestScanner(t, reg, volume.NewFake("/dev/disk0"))

	records, err := s.Scan(context.Background())
	assert.Error(t, err)
	assert.Empty(t, records)
}

func TestScanBootQueryFailureDegrades(t *testing.T) {
	reg := &metadata.StaticRegistry{Bags: []*metadata.Metadata{
		removableDisk("/dev/disk2", 16000000000, "Acme", "1.0"),
	}}
	vol := volume.NewFake("")
	vol.BootErr = errors.New("diskutil timed out")
	s, _ := newTestScanner(t, reg, vol)

	records, err := s.Scan(context.Background())
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestScanDegradedMetadata(t *testing.T) {
	// Only a size: identity degrades to Unknown tokens but the scan
	// still emits the record.
	bag := &metadata.Metadata{
		DevicePath: "/dev/disk4",
		Removable:  true,
		Ejectable:  true,
		Writable:   true,
		SizeBytes:  int64Ptr(32000000000),
	}
	reg := &metadata.StaticRegistry{Bags: []*metadata.Metadata{bag}}
	s, _ := newTestScanner(t, reg, volume.NewFake("/dev/disk0"))

	records, err := s.Scan(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Unknown_Unknown_3200", records[0].Identity)
}

func TestScanGuardRejectsConcurrentScan(t *testing.T) {
	reg := &metadata.StaticRegistry{}
	s, _ := newTestScanner(t, reg, volume.NewFake("/dev/disk0"))

	s.scanning.Store(true)
	_, err := s.Scan(context.Background())
	assert.ErrorIs(t, err, ErrScanInProgress)

	s.scanning.Store(false)
	_, err = s.Scan(context.Background())
	assert.NoError(t, err)
}
