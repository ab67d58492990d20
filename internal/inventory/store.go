// Package inventory persists the history of devices seen across scans,
// keyed by stable identity. The store survives custom display names and
// device-type overrides across restarts.
package inventory

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/diskflash/diskflash/internal/logging"
)

// Item is one remembered device. Field names follow the on-disk JSON
// schema, which is rewritten in full on every mutation.
type Item struct {
	MediaUUID    string    `json:"mediaUUID"`
	Size         int64     `json:"size"`
	OriginalName string    `json:"originalName"`
	CustomName   *string   `json:"customName,omitempty"`
	FirstSeen    time.Time `json:"firstSeen"`
	LastSeen     time.Time `json:"lastSeen"`
	DeviceType   string    `json:"deviceType"`
	Vendor       *string   `json:"vendor,omitempty"`
	Revision     *string   `json:"revision,omitempty"`
}

// DisplayName returns the custom name when set, else the name the
// device was first seen with.
func (it *Item) DisplayName() string {
	if it.CustomName != nil && *it.CustomName != "" {
		return *it.CustomName
	}
	return it.OriginalName
}

// Store is the shared inventory. All mutations persist immediately;
// a crash never loses more than the in-flight write.
type Store struct {
	mu    sync.Mutex
	path  string
	items []*Item

	// last known device path per identity; transient bookkeeping,
	// not serialized
	devicePaths map[string]string

	now func() time.Time
}

var invLog = logging.Get("inventory")

// Open loads the store at path. Loading is best effort: a missing or
// corrupt file yields an empty inventory, never a startup failure.
func Open(path string) *Store {
	s := &Store{
		path:        path,
		devicePaths: make(map[string]string),
		now:         time.Now,
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			invLog.Warn("inventory unreadable, starting empty", "path", path, "err", err)
		}
		return s
	}
	if err := json.Unmarshal(data, &s.items); err != nil {
		invLog.Warn("inventory corrupt, starting empty", "path", path, "err", err)
		s.items = nil
	}
	return s
}

// AddOrUpdate records a sighting of identity. First sight inserts a
// full record; later sightings refresh lastSeen and the device-path
// bookkeeping only, leaving size, name and type as first recorded so
// user overrides and original data survive.
func (s *Store) AddOrUpdate(identity string, devicePath string, size int64, name, deviceType string, vendor, revision *string) error {
	if identity == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.devicePaths[identity] = devicePath

	if existing := s.find(identity); existing != nil {
		existing.LastSeen = s.now()
		return s.persist()
	}

	now := s.now()
	s.items = append(s.items, &Item{
		MediaUUID:    identity,
		Size:         size,
		OriginalName: name,
		FirstSeen:    now,
		LastSeen:     now,
		DeviceType:   deviceType,
		Vendor:       vendor,
		Revision:     revision,
	})
	return s.persist()
}

// SetCustomName sets or clears (nil) the display-name override.
func (s *Store) SetCustomName(identity string, name *string) error {
	return s.mutate(identity, "custom name", func(it *Item) {
		it.CustomName = name
	})
}

// SetDeviceType overrides the recorded device type.
func (s *Store) SetDeviceType(identity, deviceType string) error {
	return s.mutate(identity, "device type", func(it *Item) {
		it.DeviceType = deviceType
	})
}

// SetVendor overrides the recorded vendor.
func (s *Store) SetVendor(identity string, vendor *string) error {
	return s.mutate(identity, "vendor", func(it *Item) {
		it.Vendor = vendor
	})
}

// SetRevision overrides the recorded revision.
func (s *Store) SetRevision(identity string, revision *string) error {
	return s.mutate(identity, "revision", func(it *Item) {
		it.Revision = revision
	})
}

// Remove deletes the record for identity permanently.
func (s *Store) Remove(identity string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, it := range s.items {
		if it.MediaUUID == identity {
			s.items = append(s.items[:i], s.items[i+1:]...)
			delete(s.devicePaths, identity)
			return s.persist()
		}
	}
	return nil
}

// GetDisplayName returns the custom name if set, else the original
// name. Unknown identities return the empty string.
func (s *Store) GetDisplayName(identity string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if it := s.find(identity); it != nil {
		return it.DisplayName()
	}
	return ""
}

// Get returns a copy of the item for identity, or nil.
func (s *Store) Get(identity string) *Item {
	s.mu.Lock()
	defer s.mu.Unlock()

	if it := s.find(identity); it != nil {
		cp := *it
		return &cp
	}
	return nil
}

// Items returns a snapshot of all records in insertion order.
func (s *Store) Items() []*Item {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*Item, len(s.items))
	for i, it := range s.items {
		cp := *it
		out[i] = &cp
	}
	return out
}

// LastDevicePath returns the device path identity was last seen at
// during this process, or "".
func (s *Store) LastDevicePath(identity string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.devicePaths[identity]
}

func (s *Store) mutate(identity, what string, fn func(*Item)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	it := s.find(identity)
	if it == nil {
		invLog.Info("override ignored, identity not in inventory", "identity", identity, "field", what)
		return nil
	}
	fn(it)
	return s.persist()
}

// find must be called with the lock held.
func (s *Store) find(identity string) *Item {
	for _, it := range s.items {
		if it.MediaUUID == identity {
			return it
		}
	}
	return nil
}

// persist rewrites the whole store. Must be called with the lock held.
func (s *Store) persist() error {
	data, err := json.MarshalIndent(s.items, "", "  ")
	if err != nil {
		return fmt.Errorf("encode inventory: %w", err)
	}
	if s.items == nil {
		data = []byte("[]")
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create inventory directory: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write inventory: %w", err)
	}
	return nil
}
