// dlog.go - process-wide logging backend and named loggers
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

// Package dlog configures the process-wide logging backend and hands
// out named sub-loggers to every component, mirroring the role of
// core/log in the reference implementation this repository is derived
// from.
package dlog

import (
	"os"

	logging "gopkg.in/op/go-logging.v1"
)

var backendInitialized bool

// Init configures the logging backend at the given level ("DEBUG",
// "INFO", "NOTICE", "WARNING", "ERROR", "CRITICAL"). It must be called
// once before any logger returned by New is used; calling it again
// reconfigures the level for all existing loggers.
func Init(level string) error {
	lvl, err := logging.LogLevel(level)
	if err != nil {
		return err
	}

	backend := logging.NewLogBackend(os.Stderr, "", 0)
	formatter := logging.MustStringFormatter(
		"%{time:15:04:05.000} %{level:.4s} %{module}: %{message}",
	)
	formatted := logging.NewBackendFormatter(backend, formatter)
	leveled := logging.AddModuleLevel(formatted)
	leveled.SetLevel(lvl, "")
	logging.SetBackend(leveled)
	backendInitialized = true
	return nil
}

// New returns a named logger for a component ("listener", "inflight",
// "sessiontable", ...). If Init has not been called yet, it defaults
// to NOTICE so that tests and library users get reasonable output
// without wiring up configuration first.
func New(name string) *logging.Logger {
	if !backendInitialized {
		_ = Init("NOTICE")
	}
	return logging.MustGetLogger(name)
}
