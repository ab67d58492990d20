package metadata

import "strings"

// Unknown is the token substituted for metadata fields that the host
// could not provide.
const Unknown = "Unknown"

// Metadata is the typed property bag for one block device, whole disk
// or slice. Pointer fields are nil when the host did not report a
// value; accessors fold nil into explicit defaults so callers never
// branch on presence.
type Metadata struct {
	// === Identity ===
	DevicePath string  `json:"device_path"`
	MediaUUID  *string `json:"media_uuid,omitempty"`

	// === Hardware ===
	Vendor    *string `json:"vendor,omitempty"`
	Revision  *string `json:"revision,omitempty"`
	MediaName *string `json:"media_name,omitempty"`
	Protocol  *string `json:"protocol,omitempty"`
	SizeBytes *int64  `json:"size_bytes,omitempty"`

	// === Flags ===
	Removable bool `json:"removable"`
	Ejectable bool `json:"ejectable"`
	Writable  bool `json:"writable"`
	WholeDisk bool `json:"whole_disk"`

	// === Volume (populated for slices) ===
	VolumeName *string `json:"volume_name,omitempty"`
	Filesystem *string `json:"filesystem,omitempty"`
	MountPoint *string `json:"mount_point,omitempty"`
}

// VendorOrUnknown returns the vendor string or the Unknown token.
func (m *Metadata) VendorOrUnknown() string {
	return orUnknown(m.Vendor)
}

// RevisionOrUnknown returns the product revision or the Unknown token.
func (m *Metadata) RevisionOrUnknown() string {
	return orUnknown(m.Revision)
}

// MediaNameOr returns the media name, or def when unreported.
func (m *Metadata) MediaNameOr(def string) string {
	if m.MediaName != nil {
		return *m.MediaName
	}
	return def
}

// ProtocolOr returns the bus protocol, or def when unreported.
func (m *Metadata) ProtocolOr(def string) string {
	if m.Protocol != nil {
		return *m.Protocol
	}
	return def
}

// Size returns the media-size hint in bytes, 0 when unreported.
func (m *Metadata) Size() int64 {
	if m.SizeBytes != nil {
		return *m.SizeBytes
	}
	return 0
}

// Mounted reports whether the device currently has a mount point.
func (m *Metadata) Mounted() bool {
	return m.MountPoint != nil && *m.MountPoint != ""
}

func orUnknown(s *string) string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return Unknown
	}
	return *s
}

// trimPtr returns a pointer to the trimmed string, or nil when the
// trimmed value is empty.
func trimPtr(s string) *string {
	t := strings.TrimSpace(s)
	if t == "" {
		return nil
	}
	return &t
}

func int64Ptr(v int64) *int64 {
	return &v
}
