// Package checksum computes streaming SHA-256 digests of image files
// with a progress gauge that callers may poll from another goroutine.
package checksum

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"sync/atomic"
)

// DefaultChunkSize is the read granularity between progress updates.
const DefaultChunkSize = 1024 * 1024

// Job is one digest computation. Progress is safe to call while Run
// executes on another goroutine.
type Job struct {
	path      string
	chunkSize int64
	total     atomic.Int64
	done      atomic.Int64
}

// NewJob prepares a digest of the file at path. totalBytes is the
// declared image size used for the progress denominator; pass 0 to
// size the file at run time.
func NewJob(path string, totalBytes int64) *Job {
	j := &Job{
		path:      path,
		chunkSize: DefaultChunkSize,
	}
	j.total.Store(totalBytes)
	return j
}

// Progress reports the fraction of bytes hashed so far, in [0, 1].
// It increases monotonically while Run is executing.
func (j *Job) Progress() float64 {
	total := j.total.Load()
	if total <= 0 {
		return 0
	}
	f := float64(j.done.Load()) / float64(total)
	if f > 1 {
		f = 1
	}
	return f
}

// Run streams the file through SHA-256 in fixed-size chunks and
// returns the lowercase hex digest. Any read error aborts; a partial
// digest is never returned.
func (j *Job) Run(ctx context.Context) (string, error) {
	f, err := os.Open(j.path)
	if err != nil {
		return "", fmt.Errorf("open image for checksum: %w", err)
	}
	defer f.Close()

	if j.total.Load() <= 0 {
		st, err := f.Stat()
		if err != nil {
			return "", fmt.Errorf("stat image: %w", err)
		}
		j.total.Store(st.Size())
	}

	h := sha256.New()
	buf := make([]byte, j.chunkSize)
	for {
		if err := ctx.Err(); err != nil {
			return "", fmt.Errorf("checksum aborted: %w", err)
		}

		n, err := f.Read(buf)
		if n > 0 {
			h.Write(buf[:n])
			j.done.Add(int64(n))
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("read image during checksum: %w", err)
		}
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// File is the one-shot form: digest the whole file at path.
func File(ctx context.Context, path string) (string, error) {
	return NewJob(path, 0).Run(ctx)
}
