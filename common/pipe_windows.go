//go:build windows

package common

import (
	"os"
	"strings"
)

const pipePrefix = `\\.\pipe\`

// PipePath returns the named pipe path, honoring PipeNameEnv. A value that
// already carries the \\.\pipe\ prefix is used as-is.
func PipePath() string {
	if name := os.Getenv(PipeNameEnv); name != "" {
		if strings.HasPrefix(name, pipePrefix) {
			return name
		}
		return pipePrefix + name
	}
	return pipePrefix + AppName
}
