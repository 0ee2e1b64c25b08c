//go:build windows

package cache

import (
	"fmt"

	"golang.org/x/sys/windows"
)

// checkDiskSpace fails when path's volume has less than required bytes free.
// Unknown sizes and failed queries pass.
func checkDiskSpace(path string, required int64) error {
	if required <= 0 {
		return nil
	}
	p, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return nil
	}
	var freeToCaller, total, totalFree uint64
	if err := windows.GetDiskFreeSpaceEx(p, &freeToCaller, &total, &totalFree); err != nil {
		return nil
	}
	if freeToCaller < uint64(required) {
		return fmt.Errorf("%w: required %d bytes, available %d bytes",
			ErrInsufficientDiskSpace, required, freeToCaller)
	}
	return nil
}
