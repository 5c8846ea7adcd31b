// config.go - TOML daemon configuration
// Copyright (C) 2019  David Stainton.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

// Package config loads the daemon's TOML configuration file, grounded
// on the teacher's go.mod BurntSushi/toml requirement and
// core/pki/descriptor.go's struct-tag-driven marshaling style applied
// here to TOML instead of cbor.
package config

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// Config is the top-level shape of a dusklined TOML config file.
type Config struct {
	// Listen is the UDP address the Backhaul binds, e.g. "0.0.0.0:4433".
	Listen string `toml:"listen"`

	// IdentityKeyFile holds the server's long-term X25519 secret key,
	// generated on first run if absent.
	IdentityKeyFile string `toml:"identity_key_file"`

	// MetricsListen is the address the Prometheus HTTP handler binds;
	// empty disables metrics.
	MetricsListen string `toml:"metrics_listen"`

	// LogLevel names an op/go-logging level (CRITICAL, ERROR, WARNING,
	// NOTICE, INFO, DEBUG).
	LogLevel string `toml:"log_level"`
}

// defaults applied to any field left empty in the file.
func (c *Config) applyDefaults() {
	if c.Listen == "" {
		c.Listen = "0.0.0.0:4433"
	}
	if c.IdentityKeyFile == "" {
		c.IdentityKeyFile = "/var/lib/duskline/identity.key"
	}
	if c.LogLevel == "" {
		c.LogLevel = "NOTICE"
	}
}

// Load parses the TOML file at path and fills in any unset field with
// its default.
func Load(path string) (*Config, error) {
	var c Config
	if _, err := toml.DecodeFile(path, &c); err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}
	c.applyDefaults()
	return &c, nil
}
