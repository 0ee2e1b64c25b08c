package catalog

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/warpdl/warpfetch/pkg/logger"
)

var ErrNoSource = errors.New("catalog: no source configured")

// Source produces the full URL list on every Load.
type Source interface {
	Load() ([]string, error)
}

// FileSource reads one URL per line from a file.
type FileSource struct {
	Path string
}

func (s FileSource) Load() ([]string, error) {
	return LoadFile(s.Path)
}

// LoadFile reads one URL per line. Blank lines and lines starting with '#'
// are skipped.
func LoadFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}
	defer f.Close()
	return parseLines(f)
}

func parseLines(r io.Reader) ([]string, error) {
	var urls []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("catalog: read: %w", err)
	}
	return urls, nil
}

// NewSource picks a source by file extension: ".js" files are scripts,
// anything else is a plain list.
func NewSource(path string, l logger.Logger) (Source, error) {
	if path == "" {
		return nil, ErrNoSource
	}
	if strings.EqualFold(filepath.Ext(path), ".js") {
		return &ScriptSource{Path: path, Logger: l}, nil
	}
	return FileSource{Path: path}, nil
}
