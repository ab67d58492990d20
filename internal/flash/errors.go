package flash

import (
	"errors"
	"fmt"
)

// Precondition and operation errors. Every precondition failure names
// its specific unmet condition; mid-write and verification failures
// wrap ErrFlashFailed with a human-readable cause.
var (
	ErrDeviceNotFound          = errors.New("device not found")
	ErrImageNotFound           = errors.New("image not found")
	ErrDeviceReadOnly          = errors.New("device is read-only")
	ErrImageTooLarge           = errors.New("image does not fit on device")
	ErrInsufficientPermissions = errors.New("insufficient permissions for device")
	ErrDeviceBusy              = errors.New("a flash operation is already in progress")
	ErrFlashFailed             = errors.New("flash failed")
)

// failf builds a flashFailed error carrying detail.
func failf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrFlashFailed, fmt.Sprintf(format, args...))
}
