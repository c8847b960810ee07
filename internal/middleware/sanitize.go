// Storefront - Commerce and CRM Administration Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storefront

package middleware

import (
	"bytes"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/tomtom215/storefront/internal/logging"
)

// KeyReplacement substitutes for '$' and '.' in keys.
const KeyReplacement = "_"

// maxSanitizeBody is the largest JSON or urlencoded body rewritten. Larger
// bodies pass through untouched and are left to the handler's own size
// limits. It is also the in-memory limit for multipart forms.
const maxSanitizeBody = 1 << 20

var keyReplacer = strings.NewReplacer("$", KeyReplacement, ".", KeyReplacement)

// SanitizeKey rewrites the characters that select store operators or nested
// paths.
func SanitizeKey(k string) string {
	if !strings.ContainsAny(k, "$.") {
		return k
	}
	return keyReplacer.Replace(k)
}

// SanitizeValue walks decoded JSON and rewrites every object key. It returns
// the rewritten value and whether anything changed.
func SanitizeValue(v interface{}) (interface{}, bool) {
	switch t := v.(type) {
	case map[string]interface{}:
		changed := false
		out := make(map[string]interface{}, len(t))
		for k, inner := range t {
			nk := SanitizeKey(k)
			nv, innerChanged := SanitizeValue(inner)
			if nk != k || innerChanged {
				changed = true
			}
			// Collisions keep the later key; map order makes that arbitrary.
			out[nk] = nv
		}
		return out, changed
	case []interface{}:
		changed := false
		out := make([]interface{}, len(t))
		for i, inner := range t {
			nv, innerChanged := SanitizeValue(inner)
			changed = changed || innerChanged
			out[i] = nv
		}
		return out, changed
	default:
		return v, false
	}
}

// Sanitize applies SanitizeKey to query parameters, header names, JSON body
// keys, urlencoded form keys and multipart field names before any handler
// runs. Route parameter names come from route
// patterns and need no rewriting.
func Sanitize(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sanitizeQuery(r)
		sanitizeHeaders(r)
		if err := sanitizeBody(r); err != nil {
			logging.Ctx(r.Context()).Debug().Err(err).Msg("request body not sanitized")
		}
		next.ServeHTTP(w, r)
	})
}

func sanitizeQuery(r *http.Request) {
	if r.URL.RawQuery == "" || !strings.ContainsAny(r.URL.RawQuery, "$.%") {
		return
	}
	if clean, changed := sanitizeValues(r.URL.Query()); changed {
		r.URL.RawQuery = clean.Encode()
	}
}

// sanitizeValues merges values whose keys collide after rewriting.
func sanitizeValues(in url.Values) (url.Values, bool) {
	out := make(url.Values, len(in))
	changed := false
	for k, vs := range in {
		nk := SanitizeKey(k)
		if nk != k {
			changed = true
		}
		out[nk] = append(out[nk], vs...)
	}
	return out, changed
}

func sanitizeHeaders(r *http.Request) {
	for k, vs := range r.Header {
		if nk := SanitizeKey(k); nk != k {
			delete(r.Header, k)
			r.Header[http.CanonicalHeaderKey(nk)] = vs
		}
	}
}

func isJSON(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && (mt == "application/json" || strings.HasSuffix(mt, "+json"))
}

func sanitizeBody(r *http.Request) error {
	if r.Body == nil || r.Body == http.NoBody {
		return nil
	}
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return nil
	}
	switch {
	case mt == "application/json" || strings.HasSuffix(mt, "+json"):
		return sanitizeJSONBody(r)
	case mt == "application/x-www-form-urlencoded":
		return sanitizeFormBody(r)
	case mt == "multipart/form-data":
		return sanitizeMultipart(r)
	}
	return nil
}

// bufferBody reads the body into memory. ok is false when it exceeds
// maxSanitizeBody; the body is then restored unread.
func bufferBody(r *http.Request) (buf []byte, ok bool, err error) {
	buf, err = io.ReadAll(io.LimitReader(r.Body, maxSanitizeBody+1))
	if err != nil {
		return nil, false, err
	}
	if len(buf) > maxSanitizeBody {
		r.Body = readCloser{io.MultiReader(bytes.NewReader(buf), r.Body), r.Body}
		return nil, false, nil
	}
	_ = r.Body.Close()

	// Leave the raw bytes for the handler to reject if they do not decode.
	r.Body = io.NopCloser(bytes.NewReader(buf))
	return buf, true, nil
}

func replaceBody(r *http.Request, out []byte) {
	r.Body = io.NopCloser(bytes.NewReader(out))
	r.ContentLength = int64(len(out))
	r.Header.Set("Content-Length", strconv.Itoa(len(out)))
}

func sanitizeJSONBody(r *http.Request) error {
	buf, ok, err := bufferBody(r)
	if err != nil || !ok {
		return err
	}
	var decoded interface{}
	if err := json.Unmarshal(buf, &decoded); err != nil {
		return err
	}
	clean, changed := SanitizeValue(decoded)
	if !changed {
		return nil
	}
	out, err := json.Marshal(clean)
	if err != nil {
		return err
	}
	replaceBody(r, out)
	return nil
}

func sanitizeFormBody(r *http.Request) error {
	buf, ok, err := bufferBody(r)
	if err != nil || !ok {
		return err
	}
	values, err := url.ParseQuery(string(buf))
	if err != nil {
		return err
	}
	clean, changed := sanitizeValues(values)
	if !changed {
		return nil
	}
	replaceBody(r, []byte(clean.Encode()))
	return nil
}

// sanitizeMultipart parses the form up front and rewrites the parsed field
// and file names. Handlers must read r.MultipartForm or r.FormValue; the raw
// body is consumed.
func sanitizeMultipart(r *http.Request) error {
	if err := r.ParseMultipartForm(maxSanitizeBody); err != nil {
		return err
	}
	mf := r.MultipartForm
	mf.Value, _ = sanitizeValues(mf.Value)
	files := make(map[string][]*multipart.FileHeader, len(mf.File))
	for k, fh := range mf.File {
		nk := SanitizeKey(k)
		files[nk] = append(files[nk], fh...)
	}
	mf.File = files
	r.PostForm, _ = sanitizeValues(r.PostForm)
	r.Form, _ = sanitizeValues(r.Form)
	return nil
}

type readCloser struct {
	io.Reader
	io.Closer
}
