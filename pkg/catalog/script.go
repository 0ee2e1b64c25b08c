package catalog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dop251/goja"
	requirePkg "github.com/dop251/goja_nodejs/require"
	"github.com/warpdl/warpfetch/pkg/logger"
)

var (
	ErrScriptMissingFunc = errors.New("catalog: script must define count() and url(i)")
	ErrScriptBadCount    = errors.New("catalog: count() returned a negative value")
)

// ScriptSource runs a JavaScript file that defines count() and url(i).
// A fresh runtime is used for every Load so scripts may keep state at top
// level without leaking it between refreshes.
type ScriptSource struct {
	Path   string
	Logger logger.Logger
}

func (s *ScriptSource) Load() ([]string, error) {
	src, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}
	vm, err := s.newRuntime()
	if err != nil {
		return nil, err
	}
	if _, err := vm.RunScript(filepath.Base(s.Path), string(src)); err != nil {
		return nil, fmt.Errorf("catalog: run %s: %w", s.Path, err)
	}

	count, ok := goja.AssertFunction(vm.Get("count"))
	if !ok {
		return nil, ErrScriptMissingFunc
	}
	urlAt, ok := goja.AssertFunction(vm.Get("url"))
	if !ok {
		return nil, ErrScriptMissingFunc
	}

	v, err := count(goja.Undefined())
	if err != nil {
		return nil, fmt.Errorf("catalog: count(): %w", err)
	}
	n := v.ToInteger()
	if n < 0 {
		return nil, ErrScriptBadCount
	}
	urls := make([]string, 0, n)
	for i := int64(0); i < n; i++ {
		u, err := urlAt(goja.Undefined(), vm.ToValue(i))
		if err != nil {
			return nil, fmt.Errorf("catalog: url(%d): %w", i, err)
		}
		urls = append(urls, u.String())
	}
	return urls, nil
}

func (s *ScriptSource) newRuntime() (*goja.Runtime, error) {
	l := logger.OrNop(s.Logger)
	registry := new(requirePkg.Registry)
	vm := goja.New()
	reqM := registry.Enable(vm)
	wd := filepath.Dir(s.Path)

	err := vm.Set("print", func(call goja.FunctionCall) goja.Value {
		parts := make([]string, len(call.Arguments))
		for i, a := range call.Arguments {
			parts[i] = a.String()
		}
		l.Info("catalog script: %s", strings.Join(parts, " "))
		return goja.Undefined()
	})
	if err != nil {
		return nil, err
	}
	err = vm.Set("require", func(call goja.FunctionCall) goja.Value {
		name := call.Argument(0).String()
		v, err := reqM.Require(filepath.Join(wd, name))
		if err != nil {
			panic(vm.NewGoError(fmt.Errorf("require %q: %w", name, err)))
		}
		return v
	})
	if err != nil {
		return nil, err
	}
	return vm, nil
}
