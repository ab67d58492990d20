package checksum

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeImage(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.img")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestFileDigest(t *testing.T) {
	data := []byte("bootable image contents")
	path := writeImage(t, data)

	got, err := File(context.Background(), path)
	require.NoError(t, err)

	want := sha256.Sum256(data)
	assert.Equal(t, hex.EncodeToString(want[:]), got)
}

func TestJobMultipleChunks(t *testing.T) {
	// Spans several chunks so the loop accumulates across reads.
	data := make([]byte, 3*1024+17)
	for i := range data {
		data[i] = byte(i % 251)
	}
	path := writeImage(t, data)

	job := NewJob(path, int64(len(data)))
	job.chunkSize = 1024

	got, err := job.Run(context.Background())
	require.NoError(t, err)

	want := sha256.Sum256(data)
	assert.Equal(t, hex.EncodeToString(want[:]), got)
	assert.Equal(t, 1.0, job.Progress())
}

func TestJobProgressBeforeRun(t *testing.T) {
	job := NewJob("irrelevant", 4096)
	assert.Equal(t, 0.0, job.Progress())
}

func TestJobMissingFile(t *testing.T) {
	job := NewJob(filepath.Join(t.TempDir(), "absent.img"), 0)
	_, err := job.Run(context.Background())
	assert.Error(t, err)
}

func TestJobCancelled(t *testing.T) {
	path := writeImage(t, make([]byte, 4096))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewJob(path, 4096).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
