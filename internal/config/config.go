// Package config loads weft's CLI configuration: stdlib search paths,
// the visual codegen materialize threshold, and the watch loop's
// debounce interval. It layers flags over a config file the way
// skaffold's root command wires viper and pflag together.
package config

import (
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config is the resolved configuration for one `weft` invocation.
type Config struct {
	SearchPaths          []string
	StdlibDir            string
	MaterializeThreshold int
	WatchDebounce        time.Duration
}

const (
	keySearchPaths  = "search-paths"
	keyStdlibDir    = "stdlib-dir"
	keyMaterialize  = "materialize-threshold"
	keyWatchDebounc = "watch-debounce"
)

// BindFlags registers the config-backed flags on fs and binds them to
// v, so command-line, config-file, and default values resolve through
// one precedence chain (flag > config file > default).
func BindFlags(fs *pflag.FlagSet, v *viper.Viper) error {
	fs.StringSlice(keySearchPaths, nil, "additional #include search paths")
	fs.String(keyStdlibDir, "", "directory containing the weft standard library")
	fs.Int(keyMaterialize, 30, "visual codegen: node-count threshold for pre-materializing an expression")
	fs.Duration(keyWatchDebounc, 150*time.Millisecond, "watch loop: debounce interval between a file event and recompilation")

	return v.BindPFlags(fs)
}

// Load resolves a Config from the already-bound viper instance, after
// an optional config file has been read by the caller.
func Load(v *viper.Viper) *Config {
	v.SetEnvPrefix("WEFT")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	return &Config{
		SearchPaths:          v.GetStringSlice(keySearchPaths),
		StdlibDir:            v.GetString(keyStdlibDir),
		MaterializeThreshold: v.GetInt(keyMaterialize),
		WatchDebounce:        v.GetDuration(keyWatchDebounc),
	}
}
