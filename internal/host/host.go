// Package host provides the minimal render/audio/control loop
// scaffolding needed to exercise the compiled IR end to end (§5, §9
// SPEC_FULL Non-goals: "not a real renderer or audio backend"). It is
// not a GPU driver or an audio device; it gives a caller enough
// structure — a watch-driven recompile loop and a retrying device
// open — to drive compiler.Session the way a real host would.
package host

import (
	"context"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	retry "github.com/avast/retry-go/v4"

	"github.com/weft-lang/weft/internal/compiler"
)

// Watcher recompiles path whenever it changes, debounced by Debounce
// (§5 control loop). Only path itself is watched; a change to a file
// it includes does not trigger a recompile.
type Watcher struct {
	Session  *compiler.Session
	Path     string
	Debounce time.Duration
	Log      *logrus.Entry

	OnResult func(*compiler.Result)
	OnError  func(error)

	watcher *fsnotify.Watcher
}

// Watch blocks, recompiling on every debounced filesystem event, until
// ctx is canceled.
func (w *Watcher) Watch(ctx context.Context, readFile func(string) (string, error)) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	w.watcher = fw
	defer fw.Close()

	if err := fw.Add(w.Path); err != nil {
		return err
	}

	debounce := w.Debounce
	if debounce <= 0 {
		debounce = 150 * time.Millisecond
	}

	w.recompile(readFile)

	var timer *time.Timer
	pending := make(chan struct{}, 1)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounce, func() {
				select {
				case pending <- struct{}{}:
				default:
				}
			})
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			if w.OnError != nil {
				w.OnError(err)
			}
		case <-pending:
			w.recompile(readFile)
		}
	}
}

func (w *Watcher) recompile(readFile func(string) (string, error)) {
	source, err := readFile(w.Path)
	if err != nil {
		if w.OnError != nil {
			w.OnError(err)
		}
		return
	}
	result, err := w.Session.Compile(source, w.Path)
	if err != nil {
		if w.OnError != nil {
			w.OnError(err)
		}
		return
	}
	if w.OnResult != nil {
		w.OnResult(result)
	}
}

// Device is a host audio output the audio loop reattaches to on
// failure — distinct from compile errors, which are never retried
// (§4.7 Failure semantics).
type Device interface {
	Open() error
	Close() error
}

// OpenDeviceWithRetry opens dev with a bounded number of attempts and
// backoff, for transient device-busy/unplugged failures; it never
// retries a compile, only the host's own device handle (§4.7, DOMAIN
// STACK avast/retry-go wiring).
func OpenDeviceWithRetry(ctx context.Context, dev Device, attempts uint, log *logrus.Entry) error {
	return retry.Do(
		func() error { return dev.Open() },
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.OnRetry(func(n uint, err error) {
			if log != nil {
				log.WithError(err).WithField("attempt", n).Warn("audio device open failed, retrying")
			}
		}),
	)
}
