package flash

import (
	"fmt"
	"io"
	"os"
	"sync"

	"golang.org/x/sys/unix"
)

// Device is a writable block device. The raw-device and in-memory
// implementations are selected by which Opener the engine is built
// with, never by runtime branches.
type Device interface {
	io.ReaderAt
	io.WriterAt
	Size() (int64, error)
	Sync() error
	Close() error
}

// Opener opens device paths.
type Opener interface {
	Exists(path string) bool
	Open(path string) (Device, error)
}

// RawOpener opens real device nodes read-write.
type RawOpener struct{}

func (RawOpener) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (RawOpener) Open(path string) (Device, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, err
	}
	return &rawDevice{f: f}, nil
}

type rawDevice struct {
	f *os.File
}

func (d *rawDevice) ReadAt(p []byte, off int64) (int, error) {
	return d.f.ReadAt(p, off)
}

func (d *rawDevice) WriteAt(p []byte, off int64) (int, error) {
	return d.f.WriteAt(p, off)
}

func (d *rawDevice) Size() (int64, error) {
	return d.f.Seek(0, io.SeekEnd)
}

// Sync forces buffered writes down to the medium, the equivalent of
// dd's conv=fsync.
func (d *rawDevice) Sync() error {
	return unix.Fsync(int(d.f.Fd()))
}

func (d *rawDevice) Close() error {
	return d.f.Close()
}

// MemDevice is a fixed-size in-memory Device backing simulate mode
// and tests.
type MemDevice struct {
	mu  sync.Mutex
	buf []byte
}

func NewMemDevice(size int64) *MemDevice {
	return &MemDevice{buf: make([]byte, size)}
}

func (d *MemDevice) ReadAt(p []byte, off int64) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if off >= int64(len(d.buf)) {
		return 0, io.EOF
	}
	n := copy(p, d.buf[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (d *MemDevice) WriteAt(p []byte, off int64) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if off+int64(len(p)) > int64(len(d.buf)) {
		return 0, fmt.Errorf("write past end of device: off=%d len=%d size=%d", off, len(p), len(d.buf))
	}
	return copy(d.buf[off:], p), nil
}

func (d *MemDevice) Size() (int64, error) {
	return int64(len(d.buf)), nil
}

func (d *MemDevice) Sync() error { return nil }

func (d *MemDevice) Close() error { return nil }

// Bytes returns a copy of the device contents.
func (d *MemDevice) Bytes() []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]byte, len(d.buf))
	copy(out, d.buf)
	return out
}

// MemOpener serves MemDevices by path.
type MemOpener struct {
	Devices map[string]*MemDevice
}

func (o *MemOpener) Exists(path string) bool {
	_, ok := o.Devices[path]
	return ok
}

func (o *MemOpener) Open(path string) (Device, error) {
	d, ok := o.Devices[path]
	if !ok {
		return nil, os.ErrNotExist
	}
	return d, nil
}
