package discovery

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		protocol, mediaName string
		want                DeviceType
	}{
		{"USB", "SanDisk Ultra Flash Drive", TypeUSBDrive},
		{"usb", "", TypeUSBDrive},
		{"Secure Digital", "SD Card Reader", TypeSDCard},
		{"USB", "MicroSD Adapter", TypeSDCard},
		{"USB", "SDXC Media", TypeSDCard},
		{"USB", "Samsung Portable SSD T7", TypeExternalSSD},
		{"USB", "Seagate External HDD", TypeExternalHDD},
		{"USB", "WD Hard Drive", TypeExternalHDD},
		{"Thunderbolt", "Mystery Media", TypeUnknown},
		{"", "", TypeUnknown},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, Classify(tc.protocol, tc.mediaName),
			"protocol=%q media=%q", tc.protocol, tc.mediaName)
	}
}

func TestIsWholeDevicePath(t *testing.T) {
	assert.True(t, IsWholeDevicePath("/dev/disk2"))
	assert.True(t, IsWholeDevicePath("/dev/disk10"))
	assert.True(t, IsWholeDevicePath("/dev/rdisk2"))
	assert.False(t, IsWholeDevicePath("/dev/disk2s1"))
	assert.False(t, IsWholeDevicePath("/dev/disk2s10"))
	assert.False(t, IsWholeDevicePath("/dev/sda"))
	assert.False(t, IsWholeDevicePath("disk2"))
}

func TestSliceNumber(t *testing.T) {
	n, ok := sliceNumber("/dev/disk2", "/dev/disk2s3")
	assert.True(t, ok)
	assert.Equal(t, 3, n)

	n, ok = sliceNumber("/dev/disk2", "/dev/disk2s12")
	assert.True(t, ok)
	assert.Equal(t, 12, n)

	_, ok = sliceNumber("/dev/disk2", "/dev/disk20s1")
	assert.False(t, ok)

	_, ok = sliceNumber("/dev/disk2", "/dev/disk2")
	assert.False(t, ok)

	_, ok = sliceNumber("/dev/disk2", "/dev/disk2sX")
	assert.False(t, ok)
}
