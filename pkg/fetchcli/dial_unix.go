//go:build !windows

package fetchcli

import (
	"context"
	"net"
)

func dialLocal(ctx context.Context, path string) (net.Conn, error) {
	var d net.Dialer
	return d.DialContext(ctx, "unix", path)
}
