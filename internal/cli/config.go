package cli

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/viper"

	"github.com/roach88/sfbtools/internal/receiver"
	"github.com/roach88/sfbtools/internal/replay"
)

// Configuration keys. Each can also be set through the environment as
// SFBTOOLS_<KEY> with dots replaced by underscores.
const (
	keyLogLevel       = "log_level"
	keyTrimPeriod     = "trim_period"
	keySDN            = "sdn"
	keyODBC           = "odbc"
	keyReceiverListen = "receiver.listen"
	keyReceiverPath   = "receiver.path"
	keyReceiverOut    = "receiver.out"
	keyJournal        = "journal"
	envPrefix         = "SFBTOOLS"
	defaultLogLevel   = "info"
	defaultTrimPeriod = true
)

// loadConfig reads the optional YAML config file and the SFBTOOLS_*
// environment. A missing path means environment and defaults only; a path
// that was given must be readable.
func loadConfig(path string) (*viper.Viper, error) {
	v := viper.New()

	v.SetDefault(keyLogLevel, defaultLogLevel)
	v.SetDefault(keyTrimPeriod, defaultTrimPeriod)
	v.SetDefault(keyReceiverListen, receiver.DefaultListen)
	v.SetDefault(keyReceiverPath, receiver.DefaultPath)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	return v, nil
}

// logLevel resolves the slog level from --verbose and log_level.
func logLevel(v *viper.Viper, verbose bool) (slog.Level, error) {
	if verbose {
		return slog.LevelDebug, nil
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(v.GetString(keyLogLevel))); err != nil {
		return slog.LevelInfo, fmt.Errorf("%s: %w", keyLogLevel, err)
	}
	return level, nil
}

// senderMap returns the configuration map for a sender. A non-empty flag
// wins over the config file; neither yields nil (no sender).
func senderMap(v *viper.Viper, key, flag string) (map[string]any, error) {
	if strings.TrimSpace(flag) != "" {
		m, err := replay.ParseSenderMap(flag)
		if err != nil {
			return nil, fmt.Errorf("--%s-config: %w", key, err)
		}
		return m, nil
	}
	if v.IsSet(key) {
		m := v.GetStringMap(key)
		if len(m) == 0 {
			return nil, fmt.Errorf("%s: expected a mapping", key)
		}
		return m, nil
	}
	return nil, nil
}
