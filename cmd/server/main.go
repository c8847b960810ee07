// Storefront - Commerce and CRM Administration Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storefront

// Command server runs the storefront admin backend: the audited admin API,
// log browsing and export, and real-time notifications.
//
// Subcommands:
//
//	server serve                               run the HTTP server and workers
//	server logs purge --older-than 90d         delete old audit records
//	server logs export --format csv --out f    write audit records to a file
//	server hash-password                       print a bcrypt hash for config
//
// Configuration comes from built-in defaults, then a YAML file (--config or
// CONFIG_PATH), then environment variables. Send SIGINT or SIGTERM to stop
// serve gracefully.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
