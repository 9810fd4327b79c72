// ConcertWatch - Concert Monitoring and Notification Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/concertwatch

package validation

import (
	"strings"
	"testing"
)

func TestGetValidator_Singleton(t *testing.T) {
	v1 := GetValidator()
	v2 := GetValidator()

	if v1 == nil {
		t.Fatal("GetValidator() should not return nil")
	}
	if v1 != v2 {
		t.Error("GetValidator() should return the same singleton instance")
	}
}

type subscriberRequest struct {
	ID       string `validate:"required,max=64"`
	Username string `validate:"omitempty,max=64"`
}

type artistRequest struct {
	Name string `validate:"required,notblank_name,max=100"`
}

type scanSettings struct {
	Country string `validate:"required,country_code"`
	Months  int    `validate:"min=1,max=24"`
	Mode    string `validate:"oneof=json console"`
}

func TestValidateStruct_Valid(t *testing.T) {
	tests := []struct {
		name  string
		input interface{}
	}{
		{"subscriber", &subscriberRequest{ID: "123456789", Username: "mario"}},
		{"subscriber without username", &subscriberRequest{ID: "42"}},
		{"artist", &artistRequest{Name: "Måneskin"}},
		{"settings", &scanSettings{Country: "IT", Months: 6, Mode: "json"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ValidateStruct(tt.input); err != nil {
				t.Errorf("ValidateStruct() unexpected error: %v", err)
			}
		})
	}
}

func TestValidateStruct_Invalid(t *testing.T) {
	tests := []struct {
		name      string
		input     interface{}
		wantField string
		wantTag   string
	}{
		{"missing id", &subscriberRequest{}, "ID", "required"},
		{"blank artist", &artistRequest{Name: "   "}, "Name", "notblank_name"},
		{"control rune in artist", &artistRequest{Name: "Metal\x00lica"}, "Name", "notblank_name"},
		{"long artist", &artistRequest{Name: strings.Repeat("a", 101)}, "Name", "max"},
		{"lower-case country", &scanSettings{Country: "it", Months: 6, Mode: "json"}, "Country", "country_code"},
		{"three-letter country", &scanSettings{Country: "ITA", Months: 6, Mode: "json"}, "Country", "country_code"},
		{"months too high", &scanSettings{Country: "IT", Months: 25, Mode: "json"}, "Months", "max"},
		{"bad mode", &scanSettings{Country: "IT", Months: 6, Mode: "xml"}, "Mode", "oneof"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStruct(tt.input)
			if err == nil {
				t.Fatal("ValidateStruct() expected error, got nil")
			}
			errs := err.Errors()
			if len(errs) != 1 {
				t.Fatalf("expected 1 error, got %d: %v", len(errs), err)
			}
			if errs[0].Field() != tt.wantField {
				t.Errorf("Field() = %q, want %q", errs[0].Field(), tt.wantField)
			}
			if errs[0].Tag() != tt.wantTag {
				t.Errorf("Tag() = %q, want %q", errs[0].Tag(), tt.wantTag)
			}
		})
	}
}

func TestToAPIError_SingleError(t *testing.T) {
	err := ValidateStruct(&artistRequest{Name: ""})
	if err == nil {
		t.Fatal("expected validation error")
	}

	apiErr := err.ToAPIError()
	if apiErr.Code != "VALIDATION_ERROR" {
		t.Errorf("Code = %q, want VALIDATION_ERROR", apiErr.Code)
	}
	if apiErr.Message != "Name is required" {
		t.Errorf("Message = %q", apiErr.Message)
	}
	if apiErr.Details["field"] != "Name" {
		t.Errorf("Details[field] = %v", apiErr.Details["field"])
	}
}

func TestToAPIError_MultipleErrors(t *testing.T) {
	err := ValidateStruct(&scanSettings{Country: "xx", Months: 0, Mode: "json"})
	if err == nil {
		t.Fatal("expected validation error")
	}

	apiErr := err.ToAPIError()
	fields, ok := apiErr.Details["fields"].([]map[string]interface{})
	if !ok || len(fields) != 2 {
		t.Fatalf("expected 2 field errors, got %v", apiErr.Details["fields"])
	}
	if !strings.Contains(apiErr.Message, "Country: Country must be an upper-case ISO 3166-1 alpha-2 country code") {
		t.Errorf("Message = %q", apiErr.Message)
	}
	if !strings.Contains(apiErr.Message, "Months: Months must be at least 1") {
		t.Errorf("Message = %q", apiErr.Message)
	}
}

func TestErrorMessages(t *testing.T) {
	type messages struct {
		Short string `validate:"min=3"`
		Count int    `validate:"gte=2"`
		Site  string `validate:"omitempty,url"`
	}

	err := ValidateStruct(&messages{Short: "ab", Count: 1, Site: "not a url"})
	if err == nil {
		t.Fatal("expected validation error")
	}

	want := map[string]string{
		"Short": "Short must be at least 3 characters",
		"Count": "Count must be greater than or equal to 2",
		"Site":  "Site must be a valid URL",
	}
	for _, e := range err.Errors() {
		if want[e.Field()] != e.Error() {
			t.Errorf("%s: got %q, want %q", e.Field(), e.Error(), want[e.Field()])
		}
	}
}
