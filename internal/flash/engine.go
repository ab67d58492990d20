// Package flash orchestrates one verified image write: precondition
// validation, unmount, chunked raw write, verification and remount.
package flash

import (
	"bytes"
	"context"
	"errors"
	"io"
	"math"
	"os"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"

	"github.com/diskflash/diskflash/internal/checksum"
	"github.com/diskflash/diskflash/internal/discovery"
	"github.com/diskflash/diskflash/internal/logging"
	"github.com/diskflash/diskflash/internal/volume"
)

// ImageDescriptor is the externally supplied source image. The file
// handler owning it has already validated extension and minimum size.
type ImageDescriptor struct {
	Path      string
	SizeBytes int64
	Format    string

	// Checksum is the previously recorded digest, empty when none
	// exists yet. The engine fills it after computing a fresh one.
	Checksum string
}

const (
	// probeLen is the size of the writability probe at offset 0.
	probeLen = 10

	// verifyLen is the prefix compared between source and device
	// after the write.
	verifyLen = 1024

	defaultChunkSize = 1024 * 1024
)

// probePattern is the known test payload for the writability probe.
var probePattern = []byte{0xDF, 0x1A, 0x5B, 0xC4, 0x3E, 0x99, 0x27, 0x60, 0xB1, 0x4D}

// Options configures an Engine.
type Options struct {
	Opener    Opener
	Volumes   volume.Manager
	ChunkSize int64

	// OnState, when set, observes every state transition. Called on
	// the flashing goroutine; keep it cheap.
	OnState func(State)
}

// Engine runs at most one flash operation at a time. A second start
// while one is active reports device-busy rather than queueing.
type Engine struct {
	mu      sync.Mutex
	state   State
	job     *checksum.Job // live during calculatingChecksum
	written atomic.Uint64 // float bits of flashing progress

	opener    Opener
	volumes   volume.Manager
	chunkSize int64
	onState   func(State)
	log       *log.Logger
}

func NewEngine(opts Options) *Engine {
	e := &Engine{
		state:     State{Phase: PhaseIdle},
		opener:    opts.Opener,
		volumes:   opts.Volumes,
		chunkSize: opts.ChunkSize,
		onState:   opts.OnState,
		log:       logging.Get("flash"),
	}
	if e.opener == nil {
		e.opener = RawOpener{}
	}
	if e.chunkSize <= 0 {
		e.chunkSize = defaultChunkSize
	}
	return e
}

// State returns the current state. During the checksum and write
// phases the progress fraction is read live, so callers may poll from
// another goroutine without blocking the operation.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()

	st := e.state
	switch st.Phase {
	case PhaseCalculatingChecksum:
		if e.job != nil {
			st.Progress = e.job.Progress()
		}
	case PhaseFlashing:
		st.Progress = math.Float64frombits(e.written.Load())
	}
	return st
}

// Reset returns a terminal engine to idle. Resetting a running
// operation is refused.
func (e *Engine) Reset() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state.Phase != PhaseIdle && !e.state.Phase.Terminal() {
		return ErrDeviceBusy
	}
	e.state = State{Phase: PhaseIdle}
	e.job = nil
	e.written.Store(0)
	return nil
}

// Flash writes img to the device described by rec and verifies the
// result. On failure the engine lands in failed and must be Reset
// before the next attempt; the outcome on the device is indeterminate
// and callers must re-validate before retrying.
func (e *Engine) Flash(ctx context.Context, img *ImageDescriptor, rec *discovery.DeviceRecord) error {
	if err := e.begin(); err != nil {
		return err
	}

	err := e.run(ctx, img, rec)
	if err != nil {
		e.transition(State{Phase: PhaseFailed, Reason: err.Error()})
		e.log.Error("flash failed", "device", rec.DevicePath, "err", err)
		return err
	}

	e.transition(State{Phase: PhaseCompleted, Progress: 1})
	e.log.Info("flash completed", "device", rec.DevicePath, "image", img.Path)
	return nil
}

func (e *Engine) begin() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state.Phase != PhaseIdle {
		return ErrDeviceBusy
	}
	e.state = State{Phase: PhasePreparing}
	e.written.Store(0)
	if e.onState != nil {
		e.onState(e.state)
	}
	return nil
}

func (e *Engine) transition(st State) {
	e.mu.Lock()
	e.state = st
	if st.Phase != PhaseCalculatingChecksum {
		e.job = nil
	}
	cb := e.onState
	e.mu.Unlock()

	if cb != nil {
		cb(st)
	}
}

func (e *Engine) run(ctx context.Context, img *ImageDescriptor, rec *discovery.DeviceRecord) error {
	// Preconditions, in order; the first unmet one aborts with its
	// specific error before anything destructive happens.
	if !e.opener.Exists(rec.DevicePath) {
		return ErrDeviceNotFound
	}

	st, err := os.Stat(img.Path)
	if err != nil {
		return ErrImageNotFound
	}
	imageSize := img.SizeBytes
	if imageSize <= 0 {
		imageSize = st.Size()
	}

	if rec.ReadOnly {
		return ErrDeviceReadOnly
	}

	// An image the same size as the device counts as too large.
	if imageSize >= rec.SizeBytes {
		return ErrImageTooLarge
	}

	dev, err := e.opener.Open(rec.DevicePath)
	if err != nil {
		if errors.Is(err, os.ErrPermission) {
			return ErrInsufficientPermissions
		}
		return ErrDeviceNotFound
	}
	defer dev.Close()

	if err := probeWritable(dev); err != nil {
		e.log.Warn("writability probe failed", "device", rec.DevicePath, "err", err)
		return ErrDeviceReadOnly
	}

	// Main sequence. Every failure from here lands in flashFailed
	// with its cause; the checksum gate runs before any byte is
	// written to the device.
	wasMounted, err := e.volumes.IsMounted(ctx, rec.DevicePath)
	if err != nil {
		return failf("mount state query: %v", err)
	}
	if wasMounted {
		if err := e.volumes.UnmountDisk(ctx, rec.DevicePath); err != nil {
			return failf("unmount: %v", err)
		}
	}

	if err := e.verifyChecksum(ctx, img, imageSize); err != nil {
		return err
	}

	if err := e.writeImage(ctx, img.Path, imageSize, dev); err != nil {
		return err
	}

	if err := verifyPrefix(img.Path, imageSize, dev); err != nil {
		return err
	}

	if wasMounted {
		if err := e.volumes.MountDisk(ctx, rec.DevicePath); err != nil {
			return failf("remount: %v", err)
		}
	}
	return nil
}

// verifyChecksum compares the image against its recorded digest, or
// records a fresh one when none exists.
func (e *Engine) verifyChecksum(ctx context.Context, img *ImageDescriptor, imageSize int64) error {
	job := checksum.NewJob(img.Path, imageSize)

	e.mu.Lock()
	e.job = job
	e.mu.Unlock()
	e.transition(State{Phase: PhaseCalculatingChecksum})

	digest, err := job.Run(ctx)
	if err != nil {
		return failf("checksum: %v", err)
	}

	if img.Checksum != "" && img.Checksum != digest {
		return failf("checksum mismatch: recorded %s, computed %s", img.Checksum, digest)
	}
	img.Checksum = digest
	return nil
}

// writeImage streams the image onto the device in fixed-size chunks.
func (e *Engine) writeImage(ctx context.Context, imagePath string, imageSize int64, dev Device) error {
	e.written.Store(0)
	e.transition(State{Phase: PhaseFlashing})

	src, err := os.Open(imagePath)
	if err != nil {
		return failf("open image: %v", err)
	}
	defer src.Close()

	buf := make([]byte, e.chunkSize)
	var off int64
	for off < imageSize {
		if err := ctx.Err(); err != nil {
			return failf("write interrupted: %v", err)
		}

		n, err := src.Read(buf)
		if n > 0 {
			if _, werr := dev.WriteAt(buf[:n], off); werr != nil {
				return failf("write at offset %d: %v", off, werr)
			}
			off += int64(n)
			e.written.Store(math.Float64bits(float64(off) / float64(imageSize)))
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return failf("read image at offset %d: %v", off, err)
		}
	}

	if err := dev.Sync(); err != nil {
		return failf("sync: %v", err)
	}
	return nil
}

// verifyPrefix re-reads the leading bytes of source and destination
// and compares them. A mismatch here is distinct from a write failure.
func verifyPrefix(imagePath string, imageSize int64, dev Device) error {
	n := int64(verifyLen)
	if imageSize < n {
		n = imageSize
	}

	want := make([]byte, n)
	src, err := os.Open(imagePath)
	if err != nil {
		return failf("verification: reopen image: %v", err)
	}
	defer src.Close()
	if _, err := io.ReadFull(src, want); err != nil {
		return failf("verification: read image prefix: %v", err)
	}

	got := make([]byte, n)
	if _, err := dev.ReadAt(got, 0); err != nil {
		return failf("verification: read device prefix: %v", err)
	}

	if !bytes.Equal(want, got) {
		return failf("verification mismatch in first %d bytes", n)
	}
	return nil
}

// probeWritable reads the device's first bytes, writes a known test
// pattern, reads it back and restores the original content. Anything
// short of a clean round trip means not writable.
func probeWritable(dev Device) error {
	original := make([]byte, probeLen)
	if _, err := dev.ReadAt(original, 0); err != nil {
		return err
	}

	if _, err := dev.WriteAt(probePattern, 0); err != nil {
		return err
	}

	readBack := make([]byte, probeLen)
	if _, err := dev.ReadAt(readBack, 0); err != nil {
		return err
	}
	if !bytes.Equal(readBack, probePattern) {
		return errors.New("probe read-back mismatch")
	}

	if _, err := dev.WriteAt(original, 0); err != nil {
		return err
	}
	return nil
}
