package scheme

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mbrBuffer(entryType byte) []byte {
	buf := make([]byte, 1024)
	buf[510] = 0x55
	buf[511] = 0xAA
	buf[450] = entryType
	return buf
}

func TestDetectProtectiveMBRIsGPT(t *testing.T) {
	assert.Equal(t, GPT, Detect(mbrBuffer(0xEE)))
}

func TestDetectPlainMBR(t *testing.T) {
	// 0x83: a Linux partition entry, anything but the protective type
	assert.Equal(t, MBR, Detect(mbrBuffer(0x83)))
	assert.Equal(t, MBR, Detect(mbrBuffer(0x00)))
}

func TestDetectGPTHeaderWithoutBootSignature(t *testing.T) {
	buf := make([]byte, 1024)
	copy(buf[512:], "EFI PART")
	assert.Equal(t, GPT, Detect(buf))
}

func TestDetectZerosIsUnknown(t *testing.T) {
	assert.Equal(t, Unknown, Detect(make([]byte, 1024)))
}

func TestDetectShortBufferIsUnknown(t *testing.T) {
	assert.Equal(t, Unknown, Detect(mbrBuffer(0xEE)[:1000]))
	assert.Equal(t, Unknown, Detect(nil))
}

func TestDetectReaderShortStream(t *testing.T) {
	assert.Equal(t, Unknown, DetectReader(bytes.NewReader([]byte{0x55, 0xAA})))
}

func TestDetectPath(t *testing.T) {
	dir := t.TempDir()
	img := filepath.Join(dir, "disk.img")
	require.NoError(t, os.WriteFile(img, mbrBuffer(0x0C), 0o644))

	assert.Equal(t, MBR, DetectPath(img))
	assert.Equal(t, Unknown, DetectPath(filepath.Join(dir, "missing.img")))
}
