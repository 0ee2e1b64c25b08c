//go:build windows

package server

import (
	"net"

	"github.com/Microsoft/go-winio"
	"github.com/warpdl/warpfetch/common"
)

// pipeSecurityDescriptor grants access to SYSTEM, Administrators and the
// creating user only.
const pipeSecurityDescriptor = "D:(A;;GA;;;SY)(A;;GA;;;BA)(A;;GA;;;CO)"

// ListenLocal listens on the named pipe at path.
func ListenLocal(path string) (net.Listener, error) {
	return winio.ListenPipe(path, &winio.PipeConfig{
		SecurityDescriptor: pipeSecurityDescriptor,
	})
}

// DefaultLocalAddress is the named pipe path.
func DefaultLocalAddress() string {
	return common.PipePath()
}
