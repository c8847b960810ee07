// Storefront - Commerce and CRM Administration Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storefront

/*
Package middleware holds the HTTP middleware shared by every route.

Order in the router, outermost first:

  - RequestID: propagates or generates X-Request-ID and seeds the logging
    context with request and correlation ids
  - PrometheusMetrics: request counts and latency labelled by chi route pattern
  - Sanitize: rewrites '$' and '.' in keys of the JSON body, query string and
    headers so operator-shaped keys never reach a store query
  - Audit (admin groups only, after authentication): records the request as an
    audit.Record once the handler has written its response

Audit never changes the response. A record that cannot be queued is reported
by the writer and dropped.
*/
package middleware
