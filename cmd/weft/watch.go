package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/weft-lang/weft/internal/compiler"
	"github.com/weft-lang/weft/internal/config"
	"github.com/weft-lang/weft/internal/host"
)

func newWatchCmd(v *viper.Viper, log *logrus.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "watch <file>",
		Short: "recompile a WEFT source file on every change",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(args[0], v, log)
		},
	}
}

func runWatch(path string, v *viper.Viper, log *logrus.Logger) error {
	cfg := config.Load(v)
	sess := compiler.NewSession(compiler.Options{
		SearchPaths:          cfg.SearchPaths,
		StdlibDir:            cfg.StdlibDir,
		MaterializeThreshold: cfg.MaterializeThreshold,
		Logger:               log,
	})

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	w := &host.Watcher{
		Session:  sess,
		Path:     path,
		Debounce: cfg.WatchDebounce,
		Log:      log.WithField("component", "watch"),
		OnResult: func(r *compiler.Result) {
			fmt.Printf("recompiled: %d bundle(s)\n", len(r.Program.Bundles))
		},
		OnError: func(err error) {
			printCompileError(err)
		},
	}

	return w.Watch(ctx, func(p string) (string, error) {
		b, err := os.ReadFile(p)
		return string(b), err
	})
}
