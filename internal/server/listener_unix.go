//go:build !windows

package server

import (
	"net"
	"os"

	"github.com/warpdl/warpfetch/common"
)

// ListenLocal listens on a Unix domain socket at path, replacing any stale
// socket file. Only the owner may connect.
func ListenLocal(path string) (net.Listener, error) {
	_ = os.Remove(path)
	l, err := net.ListenUnix("unix", &net.UnixAddr{Name: path, Net: "unix"})
	if err != nil {
		return nil, err
	}
	l.SetUnlinkOnClose(true)
	if err := os.Chmod(path, 0700); err != nil {
		l.Close()
		return nil, err
	}
	return l, nil
}

// DefaultLocalAddress is the Unix socket path.
func DefaultLocalAddress() string {
	return common.SocketPath()
}
