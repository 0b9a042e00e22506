package validators

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	pkgerrors "github.com/jerseyleague/shop-backend/pkg/errors"
)

type signInBody struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

func TestDecodeJSONBody(t *testing.T) {
	var dest signInBody
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"fan@example.com","password":"long-enough"}`))
	if err := DecodeJSONBody(httptest.NewRecorder(), r, &dest); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if dest.Email != "fan@example.com" {
		t.Fatalf("unexpected body %+v", dest)
	}
}

func TestDecodeJSONBodyReportsFieldErrors(t *testing.T) {
	var dest signInBody
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"nope","password":"short"}`))
	err := DecodeJSONBody(httptest.NewRecorder(), r, &dest)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	details := typed.Details().(map[string]string)
	if details["email"] != "must be a valid email" || details["password"] != "must be at least 8" {
		t.Fatalf("unexpected details %v", details)
	}
}

func TestDecodeJSONBodyRejectsUnknownFieldsAndOversizedBodies(t *testing.T) {
	var dest signInBody
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"a@b.co","password":"long-enough","role":"admin"}`))
	if err := DecodeJSONBody(httptest.NewRecorder(), r, &dest); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for unknown field, got %v", err)
	}

	huge := `{"email":"` + strings.Repeat("a", maxBodyBytes) + `"}`
	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(huge))
	if err := DecodeJSONBody(httptest.NewRecorder(), r, &dest); !pkgerrors.IsCode(err, pkgerrors.CodeTooLarge) {
		t.Fatalf("expected too large, got %v", err)
	}
}

func TestParseQueryInt(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/?limit=30&bad=x&big=500", nil)
	if v, err := ParseQueryInt(r, "limit", 25, 1, 100); err != nil || v != 30 {
		t.Fatalf("limit: v=%d err=%v", v, err)
	}
	if v, err := ParseQueryInt(r, "missing", 25, 1, 100); err != nil || v != 25 {
		t.Fatalf("default: v=%d err=%v", v, err)
	}
	if _, err := ParseQueryInt(r, "bad", 25, 1, 100); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation for non numeric, got %v", err)
	}
	if _, err := ParseQueryInt(r, "big", 25, 1, 100); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation for out of range, got %v", err)
	}
}

func TestParseURLParamUUID(t *testing.T) {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("productId", "not-a-uuid")
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r = r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
	if _, err := ParseURLParamUUID(r, "productId"); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSanitizeText(t *testing.T) {
	cases := map[string]string{
		"  MESSI ":                      "MESSI",
		"<b>KANE</b>":                   "KANE",
		`<script>alert(1)</script>SAKA`: "SAKA",
		"O'NEIL":                        "O'NEIL",
		"Müller-Wohlfahrt Jr.":          "Müller-Wohl",
	}
	for in, want := range cases {
		if got := SanitizeText(in, 11); got != want {
			t.Errorf("SanitizeText(%q) = %q, want %q", in, got, want)
		}
	}
}

type itemBody struct {
	Name     string `json:"name" validate:"notblank,max=10"`
	Quantity int    `json:"quantity"`
}

func TestDecodeJSONBodyRejectsMalformedInput(t *testing.T) {
	cases := map[string]struct {
		body string
		want string
	}{
		"empty":         {body: "", want: "request body is empty"},
		"syntax":        {body: `{"name":`, want: "malformed JSON"},
		"trailing data": {body: `{"name":"kit"}{"name":"again"}`, want: "request body must contain a single JSON object"},
		"blank name":    {body: `{"name":"   "}`, want: "validation failed"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			var dest itemBody
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tc.body))
			typed := pkgerrors.As(DecodeJSONBody(httptest.NewRecorder(), r, &dest))
			if typed == nil || typed.Code() != pkgerrors.CodeValidation || typed.Message() != tc.want {
				t.Fatalf("expected validation error %q, got %v", tc.want, typed)
			}
		})
	}
}

func TestDecodeJSONBodyReportsTypeMismatchByField(t *testing.T) {
	var dest itemBody
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"kit","quantity":"two"}`))
	typed := pkgerrors.As(DecodeJSONBody(httptest.NewRecorder(), r, &dest))
	if typed == nil {
		t.Fatal("expected an error")
	}
	details, ok := typed.Details().(map[string]string)
	if !ok || details["quantity"] != "must be a int" {
		t.Fatalf("unexpected details %#v", typed.Details())
	}
}
