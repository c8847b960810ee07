// Storefront - Commerce and CRM Administration Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storefront

/*
Package supervisor runs the long-lived parts of the server under a suture v4
tree.

	root ("storefront")
	├── data-layer
	│   ├── audit-writer        (background audit persistence)
	│   └── audit-retention     (periodic purge, when retention_days > 0)
	├── messaging-layer
	│   ├── websocket-hub
	│   └── event-consumer      (domain events → notifications)
	└── api-layer
	    └── http-server

Each layer counts failures on its own, so a consumer that keeps failing
against a broken broker backs off without taking the HTTP server with it.
Supervision events are logged through sutureslog using the zerolog-backed
slog logger from the logging package.
*/
package supervisor
