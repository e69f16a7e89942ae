package utils

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRespondError(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondError(rec, http.StatusBadRequest, "query is required")

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != `{"error":"query is required"}` {
		t.Fatalf("unexpected body %s", got)
	}
}

func TestDecodeJSONRejectsOversizedBody(t *testing.T) {
	body := `{"query":"` + strings.Repeat("a", MaxBodyBytes) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/ask", strings.NewReader(body))
	rec := httptest.NewRecorder()

	var dst struct {
		Query string `json:"query"`
	}
	if err := DecodeJSON(rec, req, &dst); !errors.Is(err, ErrBadRequestBody) {
		t.Fatalf("expected ErrBadRequestBody, got %v", err)
	}
}

func TestDecodeJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/ask", strings.NewReader(`{"query":"hi","extra":1}`))
	rec := httptest.NewRecorder()

	var dst struct {
		Query string `json:"query"`
	}
	if err := DecodeJSON(rec, req, &dst); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if dst.Query != "hi" {
		t.Fatalf("unexpected query %q", dst.Query)
	}
}
