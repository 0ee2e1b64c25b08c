// Package common holds the names and wire types shared by the warpfetch
// daemon and its clients.
package common

import (
	"os"
	"path/filepath"
	"strconv"
)

// Environment variable names for configuration.
const (
	// ConfigDirEnv overrides the configuration directory.
	ConfigDirEnv = "WARPFETCH_CONFIG_DIR"
	// SocketPathEnv overrides the Unix socket path.
	SocketPathEnv = "WARPFETCH_SOCKET_PATH"
	// PipeNameEnv overrides the Windows named pipe.
	PipeNameEnv = "WARPFETCH_PIPE_NAME"
	// TCPPortEnv overrides the TCP port.
	TCPPortEnv = "WARPFETCH_TCP_PORT"
	// RPCSecretEnv holds the bearer token for RPC endpoints.
	RPCSecretEnv = "WARPFETCH_RPC_SECRET"
	// DebugEnv enables debug logging.
	DebugEnv = "WARPFETCH_DEBUG"
)

const (
	TCPHost        = "127.0.0.1"
	DefaultTCPPort = 3850
	AppName        = "warpfetch"
)

// ConfigDir returns the configuration directory, honoring ConfigDirEnv.
func ConfigDir() string {
	if dir := os.Getenv(ConfigDirEnv); dir != "" {
		return dir
	}
	base, err := os.UserConfigDir()
	if err != nil {
		base = os.TempDir()
	}
	return filepath.Join(base, AppName)
}

// SocketPath returns the Unix socket path, honoring SocketPathEnv.
func SocketPath() string {
	if p := os.Getenv(SocketPathEnv); p != "" {
		return p
	}
	return filepath.Join(os.TempDir(), AppName+".sock")
}

// TCPPort returns the TCP port, honoring TCPPortEnv. Invalid values fall
// back to DefaultTCPPort.
func TCPPort() int {
	if v := os.Getenv(TCPPortEnv); v != "" {
		if p, err := strconv.Atoi(v); err == nil && p > 0 && p < 65536 {
			return p
		}
	}
	return DefaultTCPPort
}

// Debug reports whether DebugEnv is set to a true value.
func Debug() bool {
	v, _ := strconv.ParseBool(os.Getenv(DebugEnv))
	return v
}
