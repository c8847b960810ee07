// Storefront - Commerce and CRM Administration Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storefront

package audit

import (
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Mask replaces sensitive values in recorded request bodies.
const Mask = "***"

// DefaultSensitiveKeys are always masked.
var DefaultSensitiveKeys = []string{"password", "token"}

// ExportMarkers are path segments that turn a request into an EXPORT and make
// safe reads worth recording.
var ExportMarkers = []string{"export", "report", "reports", "download"}

// Input is the completed request/response state seen by the middleware.
type Input struct {
	Method      string
	Path        string
	RouteParams map[string]string
	Query       url.Values
	Body        map[string]interface{}
	StatusCode  int
}

// Classification is what Classify derives from one request. EntityID is
// empty when the request names no single entity, and Details is never nil.
type Classification struct {
	Action   string
	Entity   string
	EntityID string
	Details  *Details
}

// Classifier derives the action, entity and details of a request. It performs
// no I/O and is safe for concurrent use.
type Classifier struct {
	sensitive map[string]struct{}
}

// NewClassifier masks DefaultSensitiveKeys plus extra. Keys match case
// insensitively.
func NewClassifier(extra ...string) *Classifier {
	c := &Classifier{sensitive: make(map[string]struct{})}
	for _, k := range DefaultSensitiveKeys {
		c.sensitive[strings.ToLower(k)] = struct{}{}
	}
	for _, k := range extra {
		if k = strings.TrimSpace(k); k != "" {
			c.sensitive[strings.ToLower(k)] = struct{}{}
		}
	}
	return c
}

var defaultClassifier = NewClassifier()

// Classify uses a classifier with only the default sensitive keys.
func Classify(in *Input) Classification {
	return defaultClassifier.Classify(in)
}

func (c *Classifier) Classify(in *Input) Classification {
	segments := pathSegments(in.Path)
	entityIdx := entityIndex(segments)

	action := ActionForMethod(in.Method)
	if HasExportMarker(in.Path) {
		action = ActionExport
	}

	var entity string
	if entityIdx >= 0 {
		entity = capitalize(segments[entityIdx])
	}

	return Classification{
		Action:   action,
		Entity:   entity,
		EntityID: entityID(in, segments, entityIdx),
		Details:  NewHTTPDetails(flattenQuery(in.Query), c.MaskBody(in.Body), in.StatusCode, http.StatusText(in.StatusCode)),
	}
}

// MaskBody returns a shallow copy of body with sensitive keys masked. Nested
// values are shared with the input.
func (c *Classifier) MaskBody(body map[string]interface{}) map[string]interface{} {
	if body == nil {
		return nil
	}
	out := make(map[string]interface{}, len(body))
	for k, v := range body {
		if _, ok := c.sensitive[strings.ToLower(k)]; ok {
			out[k] = Mask
			continue
		}
		out[k] = v
	}
	return out
}

// ActionForMethod maps an HTTP method onto an action verb.
func ActionForMethod(method string) string {
	switch strings.ToUpper(method) {
	case http.MethodPost:
		return ActionCreate
	case http.MethodPut, http.MethodPatch:
		return ActionUpdate
	case http.MethodDelete:
		return ActionDelete
	default:
		return strings.ToUpper(method)
	}
}

// HasExportMarker reports whether any path segment is an export marker.
func HasExportMarker(path string) bool {
	for _, seg := range pathSegments(path) {
		if isExportMarker(seg) {
			return true
		}
	}
	return false
}

// IsAuthPath reports whether the path belongs to the authentication
// endpoints, which record their own LOGIN/LOGOUT entries.
func IsAuthPath(path string) bool {
	for _, seg := range pathSegments(path) {
		if strings.EqualFold(seg, "auth") {
			return true
		}
	}
	return false
}

func isExportMarker(seg string) bool {
	for _, m := range ExportMarkers {
		if strings.EqualFold(seg, m) {
			return true
		}
	}
	return false
}

var versionSegment = regexp.MustCompile(`^v[0-9]+$`)

func pathSegments(path string) []string {
	parts := strings.Split(path, "/")
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// entityIndex skips the api prefix, version, admin group and any export
// marker segments, returning -1 when nothing is left.
func entityIndex(segments []string) int {
	for i, seg := range segments {
		lower := strings.ToLower(seg)
		if lower == "api" || lower == "admin" || versionSegment.MatchString(lower) || isExportMarker(lower) {
			continue
		}
		return i
	}
	return -1
}

// entityID prefers an explicit route parameter, then the path segment right
// after the entity whatever its shape, then an id field in the body.
func entityID(in *Input, segments []string, entityIdx int) string {
	if id := in.RouteParams["id"]; id != "" {
		return id
	}
	if entityIdx >= 0 && entityIdx+1 < len(segments) {
		if seg := segments[entityIdx+1]; !isExportMarker(seg) {
			if unescaped, err := url.PathUnescape(seg); err == nil {
				return unescaped
			}
			return seg
		}
	}
	for _, key := range []string{"id", "_id"} {
		switch v := in.Body[key].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// flattenQuery keeps repeated parameters as a comma-joined value.
func flattenQuery(q url.Values) map[string]string {
	if len(q) == 0 {
		return nil
	}
	out := make(map[string]string, len(q))
	for k, v := range q {
		out[k] = strings.Join(v, ",")
	}
	return out
}
