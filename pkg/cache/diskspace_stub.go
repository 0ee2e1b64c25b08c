//go:build !darwin && !freebsd && !linux && !windows

package cache

func checkDiskSpace(path string, required int64) error {
	return nil
}
