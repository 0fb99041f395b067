package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/weft-lang/weft/internal/compiler"
	"github.com/weft-lang/weft/internal/config"
)

func newBuildCmd(v *viper.Viper, log *logrus.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "build <file>",
		Short: "compile a WEFT source file and print a summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := compileFile(args[0], v, log)
			if err != nil {
				printCompileError(err)
				return err
			}
			fmt.Printf("session %s: %d bundle(s), %d visual unit(s), %d audio unit(s)\n",
				result.SessionID, len(result.Program.Bundles), len(result.VisualUnits), len(result.AudioUnits))
			for _, entry := range result.Program.Order {
				fmt.Printf("  %s\n", entry.Bundle)
			}
			return nil
		},
	}
}

func compileFile(path string, v *viper.Viper, log *logrus.Logger) (*compiler.Result, error) {
	cfg := config.Load(v)
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	sess := compiler.NewSession(compiler.Options{
		SearchPaths:          cfg.SearchPaths,
		StdlibDir:            cfg.StdlibDir,
		MaterializeThreshold: cfg.MaterializeThreshold,
		Logger:               log,
	})
	return sess.Compile(string(source), path)
}

func printCompileError(err error) {
	file, line, col, msg := compiler.FormatError(err)
	if file == "" {
		fmt.Fprintf(os.Stderr, "error: %s\n", msg)
		return
	}
	fmt.Fprintf(os.Stderr, "%s:%d:%d: error: %s\n", file, line, col, msg)
}
