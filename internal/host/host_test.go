package host

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/weft-lang/weft/internal/compiler"
)

func TestWatchCompilesOnStartAndOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "main.weft")
	require.NoError(t, os.WriteFile(path, []byte(`display = [me.x, me.y, 0]`), 0o644))

	var results int32
	w := &Watcher{
		Session:  compiler.NewSession(compiler.Options{}),
		Path:     path,
		Debounce: 10 * time.Millisecond,
		OnResult: func(*compiler.Result) { atomic.AddInt32(&results, 1) },
		OnError:  func(err error) { t.Logf("unexpected watch error: %v", err) },
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- w.Watch(ctx, func(p string) (string, error) {
			b, err := os.ReadFile(p)
			return string(b), err
		})
	}()

	require.Eventually(t, func() bool { return atomic.LoadInt32(&results) >= 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, os.WriteFile(path, []byte(`display = [me.x, me.y, 1]`), 0o644))
	require.Eventually(t, func() bool { return atomic.LoadInt32(&results) >= 2 }, time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}

func TestWatchReportsCompileErrorWithoutAbortingLoop(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "main.weft")
	require.NoError(t, os.WriteFile(path, []byte(`display = `), 0o644))

	var errs int32
	w := &Watcher{
		Session:  compiler.NewSession(compiler.Options{}),
		Path:     path,
		Debounce: 10 * time.Millisecond,
		OnResult: func(*compiler.Result) {},
		OnError:  func(error) { atomic.AddInt32(&errs, 1) },
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- w.Watch(ctx, func(p string) (string, error) {
			b, err := os.ReadFile(p)
			return string(b), err
		})
	}()

	require.Eventually(t, func() bool { return atomic.LoadInt32(&errs) >= 1 }, time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)
}

func TestWatchReadFileErrorReportsOnError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "main.weft")
	require.NoError(t, os.WriteFile(path, []byte(`display = [me.x, me.y, 0]`), 0o644))

	var errs int32
	w := &Watcher{
		Session:  compiler.NewSession(compiler.Options{}),
		Path:     path,
		Debounce: 5 * time.Millisecond,
		OnResult: func(*compiler.Result) {},
		OnError:  func(error) { atomic.AddInt32(&errs, 1) },
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- w.Watch(ctx, func(p string) (string, error) {
			return "", fmt.Errorf("boom")
		})
	}()

	require.Eventually(t, func() bool { return atomic.LoadInt32(&errs) >= 1 }, time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)
}

type flakyDevice struct {
	failuresLeft int
	opened       int
	closed       int
}

func (d *flakyDevice) Open() error {
	d.opened++
	if d.failuresLeft > 0 {
		d.failuresLeft--
		return fmt.Errorf("device busy")
	}
	return nil
}

func (d *flakyDevice) Close() error {
	d.closed++
	return nil
}

func TestOpenDeviceWithRetrySucceedsAfterTransientFailures(t *testing.T) {
	dev := &flakyDevice{failuresLeft: 2}
	err := OpenDeviceWithRetry(context.Background(), dev, 5, nil)
	require.NoError(t, err)
	require.Equal(t, 3, dev.opened)
}

func TestOpenDeviceWithRetryGivesUpAfterAttempts(t *testing.T) {
	dev := &flakyDevice{failuresLeft: 10}
	err := OpenDeviceWithRetry(context.Background(), dev, 3, nil)
	require.Error(t, err)
	require.Equal(t, 3, dev.opened)
}
