package discovery

import "github.com/diskflash/diskflash/internal/scheme"

// DeviceType is the closed classification of a removable device.
type DeviceType string

const (
	TypeUSBDrive    DeviceType = "usb-drive"
	TypeSDCard      DeviceType = "sd-card"
	TypeExternalSSD DeviceType = "external-ssd"
	TypeExternalHDD DeviceType = "external-hdd"
	TypeUnknown     DeviceType = "unknown"
)

// PartitionInfo describes one slice of a whole device. It is owned by
// exactly one DeviceRecord and discarded with it.
type PartitionInfo struct {
	DevicePath string `json:"device_path"`
	SizeBytes  int64  `json:"size_bytes"`
	VolumeName string `json:"volume_name,omitempty"`
	Filesystem string `json:"filesystem,omitempty"`
	MountPoint string `json:"mount_point,omitempty"`
	Writable   bool   `json:"writable"`
}

// DeviceRecord is an immutable snapshot of one flashable candidate,
// constructed fresh on every enumeration pass and superseded, never
// mutated, by the next one.
type DeviceRecord struct {
	DevicePath string `json:"device_path"`
	Removable  bool   `json:"removable"`
	Ejectable  bool   `json:"ejectable"`
	ReadOnly   bool   `json:"read_only"`
	SizeBytes  int64  `json:"size_bytes"`

	// Identity is the derived stable identity; empty when metadata
	// was entirely unavailable.
	Identity string `json:"identity,omitempty"`

	MediaName  string        `json:"media_name,omitempty"`
	Vendor     string        `json:"vendor,omitempty"`
	Revision   string        `json:"revision,omitempty"`
	DeviceType DeviceType    `json:"device_type"`
	Scheme     scheme.Scheme `json:"scheme"`

	// Partitions is ordered by slice number ascending. Empty for
	// freshly wiped media.
	Partitions []PartitionInfo `json:"partitions"`
}

// Mounted reports whether any partition of the device is mounted.
func (r *DeviceRecord) Mounted() bool {
	for _, p := range r.Partitions {
		if p.MountPoint != "" {
			return true
		}
	}
	return false
}
