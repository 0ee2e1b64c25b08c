//go:build darwin || freebsd || linux

package cache

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// checkDiskSpace fails when path's volume has less than required bytes free.
// Unknown sizes and failed stat calls pass.
func checkDiskSpace(path string, required int64) error {
	if required <= 0 {
		return nil
	}
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return nil
	}
	available := int64(stat.Bavail) * int64(stat.Bsize)
	if available < required {
		return fmt.Errorf("%w: required %d bytes, available %d bytes",
			ErrInsufficientDiskSpace, required, available)
	}
	return nil
}
