// Package config reads and writes the ledctl TOML configuration file.
package config
