package qrcode

import (
	"errors"
	"strings"
	"testing"
)

func TestRenderProducesPNGDataURI(t *testing.T) {
	out, err := PNGDataURI{}.Render("otpauth://totp/authcore:alice@example.com?secret=ABC")
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if !strings.HasPrefix(out, "data:image/png;base64,") {
		t.Fatalf("expected data URI, got %q", out[:min(len(out), 40)])
	}
	if len(out) <= len("data:image/png;base64,") {
		t.Fatal("expected non-empty payload")
	}
}

func TestRenderRejectsEmptyContent(t *testing.T) {
	if _, err := (PNGDataURI{}).Render("   "); !errors.Is(err, ErrEmptyContent) {
		t.Fatalf("expected ErrEmptyContent, got %v", err)
	}
}
