// Command weft compiles WEFT dataflow sources to visual kernels and
// audio expression trees.
//
// Usage:
//
//	weft build scene.weft         # compile and print a summary
//	weft check scene.weft         # compile and dump the IR
//	weft watch scene.weft         # recompile on every file change
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/weft-lang/weft/internal/config"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	log := logrus.StandardLogger()

	root := &cobra.Command{
		Use:           "weft",
		Short:         "compile WEFT dataflow sources",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.PersistentFlags().String("config", "", "config file (default: $HOME/.weft.yaml)")
	root.PersistentFlags().Bool("verbose", false, "enable debug logging")

	if err := config.BindFlags(root.PersistentFlags(), v); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	cobra.OnInitialize(func() {
		if cfgFile, _ := root.PersistentFlags().GetString("config"); cfgFile != "" {
			v.SetConfigFile(cfgFile)
		} else {
			v.SetConfigName(".weft")
			v.AddConfigPath("$HOME")
		}
		_ = v.ReadInConfig()
		if verbose, _ := root.PersistentFlags().GetBool("verbose"); verbose {
			log.SetLevel(logrus.DebugLevel)
		}
	})

	root.AddCommand(newBuildCmd(v, log))
	root.AddCommand(newCheckCmd(v, log))
	root.AddCommand(newWatchCmd(v, log))
	return root
}
