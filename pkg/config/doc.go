/*
Package config resolves nostrd's runtime configuration from cobra flags,
layered over viper-managed defaults, an optional YAML config file, and
NOSTRD_-prefixed environment variables — mirroring the precedence chain
(flag > env var > config file > default) used elsewhere in the corpus for
viper-backed CLIs.

# Usage

	if err := config.Init(); err != nil {
		// malformed config file
	}
	// ... register flags on the root command via config.BindFlags ...
	cfg, err := config.FromCommand(cmd)
*/
package config
