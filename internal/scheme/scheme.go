// Package scheme classifies the partition-table layout of a device or
// image file by sniffing its first two sectors.
package scheme

import (
	"io"
	"os"
)

// Scheme is the detected partition-table layout.
type Scheme string

const (
	MBR     Scheme = "MBR"
	GPT     Scheme = "GPT"
	Unknown Scheme = "Unknown"
)

const (
	sniffLen = 1024

	// Offsets within the first sector
	bootSigOffset   = 510
	firstEntryType  = 450
	protectiveEntry = 0xEE
)

// gptSignature is the ASCII header literal at the start of LBA 1.
var gptSignature = []byte("EFI PART")

// DetectPath reads the first 1024 bytes of a device node or local
// file and classifies it. Open or read failures classify as Unknown;
// detection is advisory and must not abort enumeration.
func DetectPath(path string) Scheme {
	f, err := os.Open(path)
	if err != nil {
		return Unknown
	}
	defer f.Close()
	return DetectReader(f)
}

// DetectReader classifies the partition scheme from the stream's
// first 1024 bytes. A short stream is Unknown, not an error.
func DetectReader(r io.Reader) Scheme {
	buf := make([]byte, sniffLen)
	n, err := io.ReadFull(r, buf)
	if err != nil && n < sniffLen {
		return Unknown
	}
	return Detect(buf)
}

// Detect classifies a raw 1024-byte prefix.
//
// Sector 0 carrying the 0x55AA boot signature is an MBR; if its first
// partition entry's type byte is the protective sentinel 0xEE the MBR
// only shields a GPT. Without a boot signature, the "EFI PART" header
// at the start of LBA 1 still identifies GPT.
func Detect(buf []byte) Scheme {
	if len(buf) < sniffLen {
		return Unknown
	}

	if buf[bootSigOffset] == 0x55 && buf[bootSigOffset+1] == 0xAA {
		if buf[firstEntryType] == protectiveEntry {
			return GPT
		}
		return MBR
	}

	if string(buf[512:512+len(gptSignature)]) == string(gptSignature) {
		return GPT
	}

	return Unknown
}
