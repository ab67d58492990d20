package discovery

import (
	"regexp"
	"strconv"
	"strings"
)

// wholeDiskPattern matches a whole-device node like /dev/disk2, as
// opposed to a slice like /dev/disk2s1.
var wholeDiskPattern = regexp.MustCompile(`^/dev/(r?disk\d+)$`)

// IsWholeDevicePath reports whether path names a whole disk rather
// than a slice of one.
func IsWholeDevicePath(path string) bool {
	return wholeDiskPattern.MatchString(path)
}

// sliceNumber returns the numeric slice suffix of child relative to
// parent ("/dev/disk2", "/dev/disk2s3" -> 3). The second return is
// false when child is not a slice of parent.
func sliceNumber(parent, child string) (int, bool) {
	rest, ok := strings.CutPrefix(child, parent+"s")
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
