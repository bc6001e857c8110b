// Package config resolves lockpass settings.
//
// Precedence, lowest first: built-in defaults, the optional dotenv file
// $XDG_CONFIG_HOME/lockpass/config.env, LOCKPASS_* environment variables,
// then command-line flags applied by the CLI.
package config
