// Package config loads nostrd's runtime configuration: the data directory,
// listen address, NIP-11 relay metadata, and Blossom blob directory. It
// follows the same flags-plus-viper shape as the rest of the pack's
// cobra-based CLIs: cobra owns flag parsing, viper owns defaults/env-var/
// config-file binding, and a plain Config struct is what the rest of the
// program reads.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config is the fully-resolved configuration for a running relay.
type Config struct {
	// DataDir is where nostrd.db lives.
	DataDir string

	// ListenAddr is the address the WebSocket/HTTP relay surface binds to.
	ListenAddr string

	// MetricsAddr is the address the /metrics, /health, /ready, /live
	// endpoints bind to.
	MetricsAddr string

	// BlossomDir is the base directory for the Blossom blob store.
	BlossomDir string

	// RelayName, RelayDescription, and RelayContact populate the NIP-11
	// relay information document.
	RelayName        string
	RelayDescription string
	RelayContact     string

	// MaxSubscriptions bounds how many open REQ subscriptions a single
	// connection may hold; reported in the NIP-11 limitation object.
	MaxSubscriptions int

	// MaxMessageBytes bounds the size of a single WebSocket text message
	// nostrd will decode.
	MaxMessageBytes int64
}

var v *viper.Viper

// Init sets up the viper singleton used to resolve defaults, an optional
// YAML config file, and NOSTRD_-prefixed environment variables. Called
// once at program start, before FromCommand.
//
// Precedence (highest first): command-line flag, environment variable,
// config file, built-in default.
//
// The config file is located the same way as the rest of the pack's
// viper-based CLIs: an explicit path via NOSTRD_CONFIG wins, otherwise
// /etc/nostrd/config.yaml and $HOME/.config/nostrd/config.yaml are tried
// in order. No config file at all is not an error — nostrd runs on
// defaults and environment variables alone.
func Init() error {
	v = viper.New()
	v.SetConfigType("yaml")

	v.SetEnvPrefix("NOSTRD")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("data-dir", "/var/lib/nostrd")
	v.SetDefault("listen-addr", ":8080")
	v.SetDefault("metrics-addr", ":9090")
	v.SetDefault("blossom-dir", "/var/lib/nostrd/blossom")
	v.SetDefault("relay-name", "nostrd")
	v.SetDefault("relay-description", "")
	v.SetDefault("relay-contact", "")
	v.SetDefault("max-subscriptions", 20)
	v.SetDefault("max-message-bytes", int64(1<<20))

	configPath, found := locateConfigFile()
	if !found {
		return nil
	}
	v.SetConfigFile(configPath)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("config: read %s: %w", configPath, err)
	}
	return nil
}

// locateConfigFile finds nostrd's optional YAML config file: an explicit
// NOSTRD_CONFIG path, else /etc/nostrd/config.yaml, else
// $HOME/.config/nostrd/config.yaml, in that order.
func locateConfigFile() (string, bool) {
	if explicit := os.Getenv("NOSTRD_CONFIG"); explicit != "" {
		if _, err := os.Stat(explicit); err == nil {
			return explicit, true
		}
		return "", false
	}

	if _, err := os.Stat("/etc/nostrd/config.yaml"); err == nil {
		return "/etc/nostrd/config.yaml", true
	}

	if homeDir, err := os.UserHomeDir(); err == nil {
		configPath := filepath.Join(homeDir, ".config", "nostrd", "config.yaml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath, true
		}
	}

	return "", false
}

// BindFlags registers the flags Init's defaults are layered under. Flags
// explicitly set on the command line take precedence over viper's
// defaults and environment variables (cobra/pflag sets the value directly;
// viper is only consulted for flags not explicitly set).
func BindFlags(flags *pflag.FlagSet) {
	flags.String("data-dir", "/var/lib/nostrd", "directory holding nostrd.db")
	flags.String("listen-addr", ":8080", "address the relay WebSocket/HTTP surface listens on")
	flags.String("metrics-addr", ":9090", "address the metrics/health HTTP surface listens on")
	flags.String("blossom-dir", "/var/lib/nostrd/blossom", "directory holding Blossom blobs")
	flags.String("relay-name", "nostrd", "relay name reported in the NIP-11 document")
	flags.String("relay-description", "", "relay description reported in the NIP-11 document")
	flags.String("relay-contact", "", "relay contact reported in the NIP-11 document")
	flags.Int("max-subscriptions", 20, "maximum open REQ subscriptions per connection")
	flags.Int64("max-message-bytes", 1<<20, "maximum accepted WebSocket message size in bytes")
}

// FromCommand resolves a Config from cmd's flags, falling back to viper's
// defaults/environment bindings for any flag left unset.
func FromCommand(cmd *cobra.Command) (*Config, error) {
	get := func(name string) (string, error) { return cmd.Flags().GetString(name) }
	getInt := func(name string) (int, error) { return cmd.Flags().GetInt(name) }
	getInt64 := func(name string) (int64, error) { return cmd.Flags().GetInt64(name) }

	str := func(name string) string {
		val, err := get(name)
		if err != nil || !cmd.Flags().Changed(name) {
			return v.GetString(name)
		}
		return val
	}
	integer := func(name string) int {
		val, err := getInt(name)
		if err != nil || !cmd.Flags().Changed(name) {
			return v.GetInt(name)
		}
		return val
	}
	integer64 := func(name string) int64 {
		val, err := getInt64(name)
		if err != nil || !cmd.Flags().Changed(name) {
			return v.GetInt64(name)
		}
		return val
	}

	cfg := &Config{
		DataDir:          str("data-dir"),
		ListenAddr:       str("listen-addr"),
		MetricsAddr:      str("metrics-addr"),
		BlossomDir:       str("blossom-dir"),
		RelayName:        str("relay-name"),
		RelayDescription: str("relay-description"),
		RelayContact:     str("relay-contact"),
		MaxSubscriptions: integer("max-subscriptions"),
		MaxMessageBytes:  integer64("max-message-bytes"),
	}

	if cfg.DataDir == "" {
		return nil, fmt.Errorf("config: data-dir must not be empty")
	}
	if cfg.ListenAddr == "" {
		return nil, fmt.Errorf("config: listen-addr must not be empty")
	}

	return cfg, nil
}
