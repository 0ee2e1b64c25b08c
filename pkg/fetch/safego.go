package fetch

import (
	"runtime/debug"
	"sync"

	"github.com/warpdl/warpfetch/pkg/logger"
)

// safeGo runs fn in a goroutine and recovers panics. wg, when non-nil, is
// released on return either way; onPanic receives the recovered value.
func safeGo(l logger.Logger, wg *sync.WaitGroup, name string, onPanic func(r interface{}), fn func()) {
	go func() {
		if wg != nil {
			defer wg.Done()
		}
		defer func() {
			if r := recover(); r != nil {
				l.Error("PANIC [%s]: %v\n%s", name, r, debug.Stack())
				if onPanic != nil {
					onPanic(r)
				}
			}
		}()
		fn()
	}()
}
