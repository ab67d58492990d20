package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/diskflash/diskflash/internal/metadata"
)

func strPtr(s string) *string { return &s }

func int64Ptr(v int64) *int64 { return &v }

func TestDeriveComposite(t *testing.T) {
	m := &metadata.Metadata{
		DevicePath: "/dev/disk2",
		Vendor:     strPtr("Acme"),
		Revision:   strPtr("1.0"),
		SizeBytes:  int64Ptr(16000000000),
	}
	assert.Equal(t, "Acme_1.0_1600", Derive(m))
}

func TestDeriveDeterministic(t *testing.T) {
	m := &metadata.Metadata{
		Vendor:    strPtr("SanDisk"),
		Revision:  strPtr("2.00"),
		SizeBytes: int64Ptr(31914983424),
	}
	assert.Equal(t, Derive(m), Derive(m))
}

func TestDeriveChangesWithEachField(t *testing.T) {
	base := Compose("Acme", "1.0", 16000000000)

	assert.NotEqual(t, base, Compose("Acmf", "1.0", 16000000000))
	assert.NotEqual(t, base, Compose("Acme", "1.1", 16000000000))
	assert.NotEqual(t, base, Compose("Acme", "1.0", 17000000000))
}

func TestDeriveSizePrefixOnly(t *testing.T) {
	// A size change beyond the fourth significant digit does not
	// change the identity.
	assert.Equal(t,
		Compose("Acme", "1.0", 16000000000),
		Compose("Acme", "1.0", 16009999999))
}

func TestDeriveUnknownSubstitution(t *testing.T) {
	m := &metadata.Metadata{
		DevicePath: "/dev/disk3",
		SizeBytes:  int64Ptr(512000000),
	}
	assert.Equal(t, "Unknown_Unknown_5120", Derive(m))
}

func TestDeriveWhitespaceNormalization(t *testing.T) {
	assert.Equal(t, "Generic-Flash_PMAP-1.0_8004",
		Compose("Generic  Flash", "PMAP 1.0", 8004485120))
}

func TestSizePrefixShortSizes(t *testing.T) {
	assert.Equal(t, "Acme_1.0_512", Compose("Acme", "1.0", 512))
	assert.Equal(t, "Acme_1.0_0", Compose("Acme", "1.0", 0))
}
