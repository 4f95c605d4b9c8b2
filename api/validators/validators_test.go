package validators

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/tombamento-backend/pkg/errors"
)

type confirmBody struct {
	AssetTag string  `json:"asset_tag" validate:"required,max=10"`
	Score    float64 `json:"score" validate:"gte=0,lte=1"`
}

func TestDecodeJSONBodyValidates(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"asset_tag":"","score":1.5}`))
	var body confirmBody
	err := DecodeJSONBody(req, &body)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	details, ok := typed.Details().(map[string]string)
	if !ok {
		t.Fatalf("expected field details, got %T", typed.Details())
	}
	if details["asset_tag"] != "is required" {
		t.Fatalf("unexpected asset_tag detail %q", details["asset_tag"])
	}
	if details["score"] != "must be less than or equal to 1" {
		t.Fatalf("unexpected score detail %q", details["score"])
	}
}

func TestDecodeJSONBodyRejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"asset_tag":"1","extra":true}`))
	var body confirmBody
	if err := DecodeJSONBody(req, &body); pkgerrors.As(err) == nil {
		t.Fatalf("expected typed error for unknown field")
	}
}

func TestParseUUIDParam(t *testing.T) {
	id := uuid.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rc := chi.NewRouteContext()
	rc.URLParams.Add("sessionId", id.String())
	rc.URLParams.Add("inventoryId", "nope")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))

	got, err := ParseUUIDParam(req, "sessionId")
	if err != nil || got != id {
		t.Fatalf("expected %s, got %s err=%v", id, got, err)
	}
	if _, err := ParseUUIDParam(req, "inventoryId"); pkgerrors.As(err) == nil {
		t.Fatalf("expected validation error for malformed uuid")
	}
	if _, err := ParseUUIDParam(req, "missing"); pkgerrors.As(err) == nil {
		t.Fatalf("expected validation error for missing param")
	}
}

func TestParseQueryInt(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?limit=500", nil)
	if _, err := ParseQueryInt(req, "limit", 25, 1, 100); err == nil {
		t.Fatalf("expected out of range error")
	}
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	if v, err := ParseQueryInt(req, "limit", 25, 1, 100); err != nil || v != 25 {
		t.Fatalf("expected default 25, got %d err=%v", v, err)
	}
}

func TestDecodeJSONBodyRejectsTrailingValues(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"asset_tag":"1"}{"asset_tag":"2"}`))
	var body confirmBody
	if err := DecodeJSONBody(req, &body); pkgerrors.As(err) == nil {
		t.Fatalf("expected typed error for trailing value")
	}
}

func TestSanitizeStringKeepsCharactersWhole(t *testing.T) {
	if got := SanitizeString("  Escola São José  ", 0); got != "Escola São José" {
		t.Fatalf("unexpected trim %q", got)
	}
	// "Sã" is three bytes; a cut at two must not split the "ã".
	if got := SanitizeString("São", 2); got != "S" {
		t.Fatalf("expected cut before multibyte rune, got %q", got)
	}
	if got := SanitizeString("ab\xffcd", 10); got != "abcd" {
		t.Fatalf("expected invalid bytes dropped, got %q", got)
	}
}
