package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/warpdl/warpfetch/pkg/logger"
)

type funcSource func() ([]string, error)

func (f funcSource) Load() ([]string, error) { return f() }

func TestRefresher_Refresh(t *testing.T) {
	urls := []string{"http://a/1", "http://a/2"}
	var fail error
	src := funcSource(func() ([]string, error) {
		if fail != nil {
			return nil, fail
		}
		return urls, nil
	})
	list := NewList(nil)
	ml := logger.NewMockLogger()
	r := NewRefresher(src, list, "list.txt", ml)
	fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	r.now = func() time.Time { return fixed }

	if err := r.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	st := r.Status()
	if st.Items != 2 || st.Source != "list.txt" || !st.LastRefresh.Equal(fixed) || st.LastError != "" {
		t.Fatalf("status = %+v", st)
	}

	fail = errors.New("boom")
	if err := r.Refresh(context.Background()); !errors.Is(err, fail) {
		t.Fatalf("Refresh error = %v", err)
	}
	st = r.Status()
	if st.Items != 2 {
		t.Errorf("failed refresh replaced list: %d items", st.Items)
	}
	if st.LastError != "boom" {
		t.Errorf("LastError = %q", st.LastError)
	}
	if len(ml.ErrorCalls()) != 1 {
		t.Errorf("error calls = %v", ml.ErrorCalls())
	}
}

func TestRefresher_NoSource(t *testing.T) {
	r := NewRefresher(nil, NewList(nil), "", nil)
	if err := r.Refresh(context.Background()); !errors.Is(err, ErrNoSource) {
		t.Fatalf("err = %v, want ErrNoSource", err)
	}
}

func TestRefresher_CancelledContext(t *testing.T) {
	called := false
	src := funcSource(func() ([]string, error) {
		called = true
		return nil, nil
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := NewRefresher(src, NewList(nil), "", nil)
	if err := r.Refresh(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
	if called {
		t.Error("source loaded after cancel")
	}
}
