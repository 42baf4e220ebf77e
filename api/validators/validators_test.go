package validators

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	pkgerrors "github.com/angelmondragon/quizfunnel-backend/pkg/errors"
)

type sampleBody struct {
	Email string `json:"email" validate:"required,email"`
	Tier  string `json:"tier" validate:"omitempty,oneof=short medium long"`
}

func TestDecodeJSONBody(t *testing.T) {
	cases := []struct {
		name    string
		body    string
		wantErr bool
		field   string
	}{
		{"valid", `{"email":"a@example.com","tier":"short"}`, false, ""},
		{"missing email", `{"tier":"short"}`, true, "email"},
		{"bad tier", `{"email":"a@example.com","tier":"forever"}`, true, "tier"},
		{"unknown field", `{"email":"a@example.com","extra":1}`, true, ""},
		{"malformed", `{"email":`, true, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tc.body))
			var dest sampleBody
			err := DecodeJSONBody(httptest.NewRecorder(), req, &dest)
			if (err != nil) != tc.wantErr {
				t.Fatalf("wantErr=%v got %v", tc.wantErr, err)
			}
			if err == nil {
				return
			}
			typed := pkgerrors.As(err)
			if typed.Code() != pkgerrors.CodeValidation {
				t.Fatalf("expected validation code, got %s", typed.Code())
			}
			if tc.field != "" {
				details, _ := typed.Details().(map[string]string)
				if _, ok := details[tc.field]; !ok {
					t.Fatalf("expected detail for %s, got %v", tc.field, typed.Details())
				}
			}
		})
	}
}

func TestDecodeJSONBodyRejectsOversizedPayload(t *testing.T) {
	big := `{"email":"` + strings.Repeat("a", MaxBodyBytes) + `@example.com"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(big))
	var dest sampleBody
	err := DecodeJSONBody(httptest.NewRecorder(), req, &dest)
	if err == nil || pkgerrors.As(err).Message() != "request body too large" {
		t.Fatalf("expected size error, got %v", err)
	}
}

func TestParseQueryEnum(t *testing.T) {
	allowed := []string{"regular", "exit_discount"}

	req := httptest.NewRequest(http.MethodGet, "/offers", nil)
	if got, err := ParseQueryEnum(req, "tier", "regular", allowed); err != nil || got != "regular" {
		t.Fatalf("expected default, got %q %v", got, err)
	}

	req = httptest.NewRequest(http.MethodGet, "/offers?tier=EXIT_DISCOUNT", nil)
	if got, err := ParseQueryEnum(req, "tier", "regular", allowed); err != nil || got != "exit_discount" {
		t.Fatalf("expected normalized value, got %q %v", got, err)
	}

	req = httptest.NewRequest(http.MethodGet, "/offers?tier=free", nil)
	if _, err := ParseQueryEnum(req, "tier", "regular", allowed); err == nil {
		t.Fatal("expected rejection")
	}
}

func TestSanitizeString(t *testing.T) {
	if got := SanitizeString("  Jane  ", 3); got != "Jan" {
		t.Fatalf("unexpected %q", got)
	}
}

func TestSanitizeStringKeepsRunesWhole(t *testing.T) {
	if got := SanitizeString("Zoë Ørsted", 3); got != "Zoë" {
		t.Fatalf("unexpected %q", got)
	}
}
