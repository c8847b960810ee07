// Storefront - Commerce and CRM Administration Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storefront

package audit

import (
	"net/url"
	"testing"
)

func TestClassify_ProductUpdate(t *testing.T) {
	in := &Input{
		Method:     "PUT",
		Path:       "/api/products/63f1c2a4b5d6e7f8a9b0c1d2/",
		Body:       map[string]interface{}{"name": "X", "password": "ignored"},
		StatusCode: 200,
	}
	got := Classify(in)

	if got.Action != ActionUpdate {
		t.Errorf("Action = %q, want UPDATE", got.Action)
	}
	if got.Entity != "Products" {
		t.Errorf("Entity = %q, want Products", got.Entity)
	}
	if got.EntityID != "63f1c2a4b5d6e7f8a9b0c1d2" {
		t.Errorf("EntityID = %q", got.EntityID)
	}
	if got.Details.Kind != DetailsHTTP || got.Details.StatusCode != 200 || got.Details.StatusMessage != "OK" {
		t.Errorf("Details = %+v", got.Details)
	}
	if got.Details.Body["password"] != Mask {
		t.Errorf("password = %v, want %q", got.Details.Body["password"], Mask)
	}
	if got.Details.Body["name"] != "X" {
		t.Errorf("name = %v", got.Details.Body["name"])
	}
	if in.Body["password"] != "ignored" {
		t.Error("input body must not be mutated")
	}
}

func TestActionForMethod(t *testing.T) {
	tests := map[string]string{
		"POST":    ActionCreate,
		"put":     ActionUpdate,
		"PATCH":   ActionUpdate,
		"DELETE":  ActionDelete,
		"GET":     "GET",
		"OPTIONS": "OPTIONS",
	}
	for method, want := range tests {
		if got := ActionForMethod(method); got != want {
			t.Errorf("ActionForMethod(%q) = %q, want %q", method, got, want)
		}
	}
}

func TestClassify_EntityDerivation(t *testing.T) {
	tests := []struct {
		path       string
		wantEntity string
		wantAction string
		wantID     string
	}{
		{"/api/v1/admin/orders", "Orders", ActionCreate, ""},
		{"/api/v1/admin/orders/42/status", "Orders", ActionCreate, "42"},
		{"/api/v1/admin/export/orders", "Orders", ActionExport, ""},
		{"/api/v1/admin/logs/export", "Logs", ActionExport, ""},
		{"/api/v1/admin/reports", "", ActionExport, ""},
		{"/api/warranties/6f9619ff-8b86-d011-b42d-00cf4fc964ff/approve", "Warranties", ActionCreate, "6f9619ff-8b86-d011-b42d-00cf4fc964ff"},
		{"/api/v1/admin/products/sku-42", "Products", ActionCreate, "sku-42"},
		{"/api/products/63f1a2/", "Products", ActionCreate, "63f1a2"},
		{"/api/v1/admin/orders/ORD-2024-001", "Orders", ActionCreate, "ORD-2024-001"},
		{"/api/v1/admin/customers/jane%20doe/notes", "Customers", ActionCreate, "jane doe"},
		{"/", "", ActionCreate, ""},
	}
	for _, tt := range tests {
		got := Classify(&Input{Method: "POST", Path: tt.path})
		if got.Entity != tt.wantEntity || got.Action != tt.wantAction || got.EntityID != tt.wantID {
			t.Errorf("%s: got (%q, %q, %q), want (%q, %q, %q)",
				tt.path, got.Entity, got.Action, got.EntityID, tt.wantEntity, tt.wantAction, tt.wantID)
		}
	}
}

func TestClassify_EntityIDPriority(t *testing.T) {
	in := &Input{
		Method:      "DELETE",
		Path:        "/api/products/63f1c2a4b5d6e7f8a9b0c1d2",
		RouteParams: map[string]string{"id": "from-route"},
		Body:        map[string]interface{}{"id": "from-body"},
	}
	if got := Classify(in).EntityID; got != "from-route" {
		t.Errorf("route param should win, got %q", got)
	}

	in.RouteParams = nil
	if got := Classify(in).EntityID; got != "63f1c2a4b5d6e7f8a9b0c1d2" {
		t.Errorf("path segment should beat body, got %q", got)
	}

	in.Path = "/api/products"
	if got := Classify(in).EntityID; got != "from-body" {
		t.Errorf("body id fallback, got %q", got)
	}

	in.Body = map[string]interface{}{"_id": float64(17)}
	if got := Classify(in).EntityID; got != "17" {
		t.Errorf("numeric _id fallback, got %q", got)
	}

	in.Body = nil
	if got := Classify(in).EntityID; got != "" {
		t.Errorf("no id available, got %q", got)
	}
}

func TestClassifier_MaskBody(t *testing.T) {
	c := NewClassifier("newPassword", " refreshToken ")
	body := map[string]interface{}{
		"Password":     "a",
		"token":        "b",
		"newPassword":  "c",
		"refreshtoken": "d",
		"email":        "e@example.com",
	}
	got := c.MaskBody(body)
	for _, k := range []string{"Password", "token", "newPassword", "refreshtoken"} {
		if got[k] != Mask {
			t.Errorf("%s = %v, want masked", k, got[k])
		}
	}
	if got["email"] != "e@example.com" {
		t.Errorf("email should pass through, got %v", got["email"])
	}
	if c.MaskBody(nil) != nil {
		t.Error("nil body stays nil")
	}
}

func TestClassify_QueryFlattening(t *testing.T) {
	q := url.Values{"tag": {"a", "b"}, "page": {"2"}}
	got := Classify(&Input{Method: "POST", Path: "/api/tags", Query: q})
	if got.Details.Query["tag"] != "a,b" || got.Details.Query["page"] != "2" {
		t.Errorf("Query = %v", got.Details.Query)
	}
}

func TestIsAuthPath(t *testing.T) {
	if !IsAuthPath("/api/v1/auth/login") {
		t.Error("auth path not detected")
	}
	if IsAuthPath("/api/v1/admin/authors") {
		t.Error("authors is not an auth path")
	}
}

func TestHasExportMarker(t *testing.T) {
	if !HasExportMarker("/api/v1/admin/orders/Download") {
		t.Error("marker match should be case-insensitive")
	}
	if HasExportMarker("/api/v1/admin/exporters") {
		t.Error("substring must not match")
	}
}
