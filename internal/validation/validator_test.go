// Storefront - Commerce and CRM Administration Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storefront

package validation

import (
	"strings"
	"testing"
)

type listRequest struct {
	Page   int    `json:"page" validate:"min=1"`
	Limit  int    `json:"limit" validate:"min=1,max=500"`
	Order  string `json:"sortOrder" validate:"omitempty,oneof=asc desc"`
	Filter string `json:"filter" validate:"omitempty,safekey"`
	Title  string `json:"title" validate:"notblank"`
}

func TestGetValidator_Singleton(t *testing.T) {
	if GetValidator() != GetValidator() {
		t.Error("GetValidator() should return the same instance")
	}
}

func TestValidateStruct(t *testing.T) {
	tests := []struct {
		name      string
		in        listRequest
		wantField string
		wantMsg   string
	}{
		{"valid", listRequest{Page: 1, Limit: 50, Order: "desc", Title: "x"}, "", ""},
		{"page zero", listRequest{Page: 0, Limit: 50, Title: "x"}, "page", "page must be at least 1"},
		{"limit too high", listRequest{Page: 1, Limit: 501, Title: "x"}, "limit", "limit must be at most 500"},
		{"bad order", listRequest{Page: 1, Limit: 5, Order: "up", Title: "x"}, "sortOrder", "sortOrder must be one of: asc desc"},
		{"operator key", listRequest{Page: 1, Limit: 5, Filter: "$where", Title: "x"}, "filter", "must not contain"},
		{"blank title", listRequest{Page: 1, Limit: 5, Title: "   "}, "title", "title must not be blank"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := tt.in
			verr := ValidateStruct(&in)
			if tt.wantField == "" {
				if verr != nil {
					t.Fatalf("unexpected error: %v", verr)
				}
				return
			}
			if verr == nil {
				t.Fatal("expected validation error")
			}
			if got := verr.Errors()[0].Field(); got != tt.wantField {
				t.Errorf("field = %q, want %q", got, tt.wantField)
			}
			if !strings.Contains(verr.Error(), tt.wantMsg) {
				t.Errorf("message = %q, want containing %q", verr.Error(), tt.wantMsg)
			}
		})
	}
}

func TestToAPIError(t *testing.T) {
	in := listRequest{Page: 0, Limit: 0, Title: "x"}
	verr := ValidateStruct(&in)
	if verr == nil {
		t.Fatal("expected errors")
	}
	apiErr := verr.ToAPIError()
	if apiErr.Code != "VALIDATION_ERROR" {
		t.Errorf("Code = %q", apiErr.Code)
	}
	fields, ok := apiErr.Details["fields"].([]map[string]interface{})
	if !ok || len(fields) != 2 {
		t.Errorf("expected two field entries, got %v", apiErr.Details)
	}

	single := ValidateStruct(&listRequest{Page: 1, Limit: 1})
	if single == nil || single.ToAPIError().Details["field"] != "title" {
		t.Errorf("single error details = %v", single)
	}

	empty := &RequestValidationError{}
	if empty.ToAPIError().Message != "Validation failed" {
		t.Error("empty collection should use the generic message")
	}
}
