// Storefront - Commerce and CRM Administration Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storefront

package export

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// Missing is rendered for absent or nil values.
const Missing = "-"

// Ellipsis marks truncated text.
const Ellipsis = "..."

const shortDateLayout = "Jan 2, 2006"

// Lookup walks a dotted path ("user.name") through nested maps. Any missing
// step yields Missing.
func Lookup(row map[string]interface{}, path string) interface{} {
	if row == nil || path == "" {
		return Missing
	}
	var cur interface{} = row
	for _, part := range strings.Split(path, ".") {
		m, ok := asMap(cur)
		if !ok {
			return Missing
		}
		v, ok := m[part]
		if !ok || v == nil {
			return Missing
		}
		cur = v
	}
	return cur
}

func asMap(v interface{}) (map[string]interface{}, bool) {
	switch m := v.(type) {
	case map[string]interface{}:
		return m, true
	case map[string]string:
		out := make(map[string]interface{}, len(m))
		for k, s := range m {
			out[k] = s
		}
		return out, true
	default:
		return nil, false
	}
}

// Stringify is the default column formatter.
func Stringify(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return Missing
	case string:
		if x == "" {
			return Missing
		}
		return x
	case time.Time:
		if x.IsZero() {
			return Missing
		}
		return x.UTC().Format(time.RFC3339)
	case *time.Time:
		if x == nil {
			return Missing
		}
		return Stringify(*x)
	case bool:
		return YesNo(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

// Currency renders a number with exactly two decimals and no grouping.
func Currency(v interface{}) string {
	f, ok := toFloat(v)
	if !ok {
		return Missing
	}
	return strconv.FormatFloat(f, 'f', 2, 64)
}

func toFloat(v interface{}) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// ShortDate renders a time or an RFC 3339 string as "Jan 2, 2006".
func ShortDate(v interface{}) string {
	switch x := v.(type) {
	case time.Time:
		if x.IsZero() {
			return Missing
		}
		return x.Format(shortDateLayout)
	case *time.Time:
		if x == nil {
			return Missing
		}
		return ShortDate(*x)
	case string:
		if t, err := time.Parse(time.RFC3339Nano, x); err == nil {
			return t.Format(shortDateLayout)
		}
	}
	return Missing
}

// YesNo renders true as "Yes" and anything else as "No".
func YesNo(v interface{}) string {
	if b, ok := v.(bool); ok && b {
		return "Yes"
	}
	return "No"
}

// Truncate shortens s to at most max runes, ending in Ellipsis when cut.
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	if max <= len(Ellipsis) {
		return string([]rune(s)[:max])
	}
	return string([]rune(s)[:max-len(Ellipsis)]) + Ellipsis
}
