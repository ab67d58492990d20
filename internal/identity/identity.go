// Package identity derives a stable identifier for a physical device
// from its metadata. The OS does not guarantee a persistent UUID for
// every device class (USB mass-storage bridges in particular), so the
// key is composed from vendor, revision and a size prefix instead.
//
// Two distinct devices of the same make, model and size produce the
// same identity. That false-positive merge is an accepted trade-off.
package identity

import (
	"strconv"
	"strings"

	"github.com/diskflash/diskflash/internal/metadata"
)

// sizeDigits is how many leading decimal digits of the byte size feed
// the identity.
const sizeDigits = 4

// Derive builds the stable identity for a property bag. The result is
// deterministic for identical metadata; absent vendor or revision
// degrade to the Unknown token rather than failing.
func Derive(m *metadata.Metadata) string {
	return Compose(m.VendorOrUnknown(), m.RevisionOrUnknown(), m.Size())
}

// Compose joins the normalized vendor, revision and size prefix with
// underscores.
func Compose(vendor, revision string, sizeBytes int64) string {
	return normalize(vendor) + "_" + normalize(revision) + "_" + sizePrefix(sizeBytes)
}

// normalize collapses whitespace runs inside a field to a single
// dash so the underscore separators stay unambiguous.
func normalize(field string) string {
	field = strings.TrimSpace(field)
	if field == "" {
		return metadata.Unknown
	}
	return strings.Join(strings.Fields(field), "-")
}

// sizePrefix returns the first significant decimal digits of the byte
// size, at most sizeDigits of them.
func sizePrefix(sizeBytes int64) string {
	if sizeBytes <= 0 {
		return "0"
	}
	s := strconv.FormatInt(sizeBytes, 10)
	if len(s) > sizeDigits {
		s = s[:sizeDigits]
	}
	return s
}
