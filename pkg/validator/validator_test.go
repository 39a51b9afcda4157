package validator

import (
	"strings"
	"testing"
)

type confirmPayload struct {
	Channel string `json:"channel" validate:"required,oneof=email whatsapp sms"`
	Code    string `json:"code" validate:"required,len=6,numeric"`
}

func TestValidateStructAcceptsValidPayload(t *testing.T) {
	err := ValidateStruct(&confirmPayload{Channel: "email", Code: "483920"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestValidateStructCollectsFailures(t *testing.T) {
	err := ValidateStruct(&confirmPayload{Channel: "carrier-pigeon", Code: "12"})
	if err == nil {
		t.Fatal("expected validation error")
	}

	ve, ok := err.(ValidationErrors)
	if !ok {
		t.Fatalf("expected ValidationErrors, got %T", err)
	}
	if len(ve) != 2 {
		t.Fatalf("expected 2 failures, got %d", len(ve))
	}

	// Field names come from json tags.
	if ve[0].Field != "channel" {
		t.Fatalf("expected field \"channel\", got %q", ve[0].Field)
	}
	if !strings.Contains(ve.Error(), "code failed on len=6") {
		t.Fatalf("unexpected error string: %s", ve.Error())
	}
}

func TestValidateStructRejectsNonNumericCode(t *testing.T) {
	err := ValidateStruct(&confirmPayload{Channel: "sms", Code: "12a456"})
	if err == nil {
		t.Fatal("expected validation error for non-numeric code")
	}
}

func TestValidateStructFallsBackToFieldName(t *testing.T) {
	type payload struct {
		Untagged string `validate:"required"`
		Hidden   string `json:"-" validate:"required"`
		Options  string `json:",omitempty" validate:"required"`
	}

	err := ValidateStruct(&payload{})
	ve, ok := err.(ValidationErrors)
	if !ok {
		t.Fatalf("expected ValidationErrors, got %T", err)
	}

	got := map[string]bool{}
	for _, failure := range ve {
		got[failure.Field] = true
	}
	for _, want := range []string{"Untagged", "Hidden", "Options"} {
		if !got[want] {
			t.Fatalf("expected failure for field %q, got %v", want, ve)
		}
	}
}
