package volume

import (
	"context"
	"sync"
)

// Fake is an in-memory Manager for tests and simulate mode.
type Fake struct {
	mu sync.Mutex

	BootPath string
	BootErr  error

	// Mounted holds the device paths currently considered mounted.
	MountedPaths map[string]bool

	UnmountErr error
	MountErr   error

	// Calls records the operations performed, in order.
	Calls []string
}

func NewFake(bootPath string) *Fake {
	return &Fake{
		BootPath:     bootPath,
		MountedPaths: make(map[string]bool),
	}
}

func (f *Fake) BootDevicePath(ctx context.Context) (string, error) {
	f.record("boot")
	return f.BootPath, f.BootErr
}

func (f *Fake) IsMounted(ctx context.Context, devicePath string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, "isMounted "+devicePath)
	return f.MountedPaths[devicePath], nil
}

func (f *Fake) UnmountDisk(ctx context.Context, devicePath string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, "unmount "+devicePath)
	if f.UnmountErr != nil {
		return f.UnmountErr
	}
	f.MountedPaths[devicePath] = false
	return nil
}

func (f *Fake) MountDisk(ctx context.Context, devicePath string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, "mount "+devicePath)
	if f.MountErr != nil {
		return f.MountErr
	}
	f.MountedPaths[devicePath] = true
	return nil
}

func (f *Fake) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, call)
}
